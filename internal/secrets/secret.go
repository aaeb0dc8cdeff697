// Package secrets provides an opaque wrapper for sensitive strings.
//
// A Secret keeps a credential out of every incidental exposure path:
// fmt verbs, JSON/YAML marshalling, and structured logging all see a
// redaction placeholder. The raw value is obtainable only through an
// explicit Reveal() call.
package secrets

import (
	"encoding/json"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// redacted is the placeholder emitted wherever a Secret would otherwise
// leak into output.
const redacted = "**********"

// Secret wraps a sensitive string. The zero value is an empty secret.
// Secrets are immutable after construction and safe to copy.
type Secret struct {
	value string
}

// New wraps a raw sensitive value.
func New(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the raw value. This is the only accessor that exposes
// the wrapped string; it must never be called from a logging or
// formatting path.
func (s Secret) Reveal() string {
	return s.value
}

// String implements fmt.Stringer, returning the redaction placeholder.
func (s Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer so %#v does not leak the value.
func (s Secret) GoString() string {
	return "secrets.Secret{" + redacted + "}"
}

// LogValue implements slog.LogValuer, redacting the value in structured
// log output.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalJSON emits the redaction placeholder, never the raw value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// UnmarshalJSON reads a JSON string into the secret.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.value = raw
	return nil
}

// MarshalYAML emits the redaction placeholder, never the raw value.
func (s Secret) MarshalYAML() (any, error) {
	return redacted, nil
}

// UnmarshalYAML reads a YAML scalar into the secret, allowing config
// files to populate Secret fields directly.
func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.value = raw
	return nil
}
