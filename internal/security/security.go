// Package security handles sensitive-data encoding and display masking.
//
// A Manager signs claim maps into opaque HS256 tokens with a fixed
// symmetric key and verifies them on the way back in. Note that signing
// authenticates the claims but does not hide them: anyone holding a
// token can read its payload. Mask prepares credentials for display by
// replacing all but a short suffix with asterisks.
package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkemmer/servicegate/internal/secrets"
)

// DefaultVisibleChars is the number of trailing characters Mask leaves
// visible when callers have no reason to choose otherwise.
const DefaultVisibleChars = 4

// Sentinel errors for token operations.
var (
	ErrEncode           = errors.New("claims cannot be encoded")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrMalformedToken   = errors.New("token is malformed")
)

// Manager signs and verifies claim maps with a single symmetric key.
// The key is fixed at construction. All methods are safe for concurrent
// use; the Manager holds no mutable state.
type Manager struct {
	key []byte
}

// NewManager creates a Manager from the configured encryption key.
// An empty key is refused: tokens signed with it would be forgeable.
func NewManager(key secrets.Secret) (*Manager, error) {
	raw := key.Reveal()
	if raw == "" {
		return nil, errors.New("encryption key is empty")
	}
	return &Manager{key: []byte(raw)}, nil
}

// Encode signs the claims into an opaque HS256 token.
//
// The token is tamper-evident, not confidential: the claims are only
// base64-encoded in the payload. Claims that cannot be serialised to
// JSON return an error wrapping ErrEncode.
func (m *Manager) Encode(claims map[string]any) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return signed, nil
}

// Decode verifies the token signature and returns the embedded claims.
//
// Tokens signed with a different key or algorithm are rejected with
// ErrInvalidSignature; structurally broken tokens with
// ErrMalformedToken.
func (m *Manager) Decode(tokenString string) (map[string]any, error) {
	token, err := jwt.Parse(tokenString, func(_ *jwt.Token) (any, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	return map[string]any(claims), nil
}

// Mask replaces all but the last visible characters of value with
// asterisks. Values no longer than visible are masked entirely, so a
// short credential never leaks through a generous suffix length. The
// empty string masks to the empty string.
func Mask(value string, visible int) string {
	if visible < 0 {
		visible = 0
	}

	runes := []rune(value)
	if len(runes) <= visible {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-visible) + string(runes[len(runes)-visible:])
}
