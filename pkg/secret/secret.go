// Package secret provides a string wrapper for credentials and tokens that
// keeps their values out of logs, fmt output and JSON.
package secret

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// Secret holds a sensitive string. The zero value is an empty secret.
// The value is only available through Reveal.
//
// The plaintext sits behind a pointer: fmt cannot call methods on a Secret
// held in an unexported field and falls back to reflection, which prints a
// pointer as its address.
type Secret struct {
	value *string
}

// New wraps a sensitive value
func New(value string) Secret {
	if value == "" {
		return Secret{}
	}
	return Secret{value: &value}
}

// Reveal returns the plaintext. Call it only where the value is put on the wire
// (HTTP headers, encryption input).
func (s Secret) Reveal() string {
	if s.value == nil {
		return ""
	}
	return *s.value
}

// IsEmpty reports whether the secret holds no value
func (s Secret) IsEmpty() bool {
	return s.value == nil || *s.value == ""
}

// String implements fmt.Stringer
func (s Secret) String() string {
	if s.IsEmpty() {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer so %#v does not print the value
func (s Secret) GoString() string {
	return fmt.Sprintf("secret.Secret(%q)", s.String())
}

// Format covers every fmt verb, including %v on structs that embed a Secret
func (s Secret) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = fmt.Fprint(f, s.GoString())
		return
	}
	_, _ = fmt.Fprint(f, s.String())
}

// MarshalText implements encoding.TextMarshaler
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalLogObject lets zap.Object/zap.Any render the secret safely
func (s Secret) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("value", s.String())
	return nil
}
