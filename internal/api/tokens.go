package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dkemmer/servicegate/internal/audit"
	"github.com/dkemmer/servicegate/internal/security"
)

// tokenEncodeRequest carries the claims to sign.
type tokenEncodeRequest struct {
	Claims map[string]any `json:"claims"`
}

// tokenEncodeResponse carries the signed token.
type tokenEncodeResponse struct {
	Token string `json:"token"`
}

// tokenDecodeRequest carries the token to verify.
type tokenDecodeRequest struct {
	Token string `json:"token"`
}

// tokenDecodeResponse carries the verified claims.
type tokenDecodeResponse struct {
	Claims map[string]any `json:"claims"`
}

// handleTokenEncode signs the supplied claims and returns the token.
func (s *Server) handleTokenEncode(w http.ResponseWriter, r *http.Request) {
	var req tokenEncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if len(req.Claims) == 0 {
		writeBadRequest(w, "claims are required")
		return
	}

	token, err := s.security.Encode(req.Claims)
	if err != nil {
		writeBadRequest(w, "claims could not be encoded")
		return
	}

	s.recordAudit(r.Context(), &audit.Event{
		Action:  audit.ActionTokenEncoded,
		Service: "security",
		Detail:  map[string]any{"claim_count": len(req.Claims)},
	})

	writeJSON(w, http.StatusOK, tokenEncodeResponse{Token: token})
}

// handleTokenDecode verifies a token and returns its claims. A bad
// signature is a 401, a structurally broken token a 400. The token
// itself never appears in responses or audit details.
func (s *Server) handleTokenDecode(w http.ResponseWriter, r *http.Request) {
	var req tokenDecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}

	claims, err := s.security.Decode(req.Token)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, security.ErrInvalidSignature) {
			reason = "invalid_signature"
		}
		s.recordAudit(r.Context(), &audit.Event{
			Action:  audit.ActionTokenRejected,
			Service: "security",
			Detail:  map[string]any{"reason": reason},
		})

		if errors.Is(err, security.ErrInvalidSignature) {
			writeUnauthorized(w, "token signature is invalid")
			return
		}
		writeBadRequest(w, "token is malformed")
		return
	}

	writeJSON(w, http.StatusOK, tokenDecodeResponse{Claims: claims})
}
