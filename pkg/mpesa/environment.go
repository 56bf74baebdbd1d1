package mpesa

import (
	"embed"
	"fmt"
	"strings"

	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
)

//go:embed certs/*.cer
var certificates embed.FS

// Environment selects the provider deployment a client talks to
type Environment int

const (
	Sandbox Environment = iota
	Production
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"
)

// BaseURL returns the fixed API root for the environment
func (e Environment) BaseURL() string {
	switch e {
	case Production:
		return productionBaseURL
	default:
		return sandboxBaseURL
	}
}

// String returns the lower-case environment name
func (e Environment) String() string {
	switch e {
	case Sandbox:
		return "sandbox"
	case Production:
		return "production"
	default:
		return fmt.Sprintf("environment(%d)", int(e))
	}
}

// Valid reports whether e is a known environment
func (e Environment) Valid() bool {
	return e == Sandbox || e == Production
}

// Certificate returns the PEM public certificate used to encrypt initiator
// passwords for this environment
func (e Environment) Certificate() ([]byte, error) {
	if !e.Valid() {
		return nil, pkgerrors.NewValidationError("environment", "unknown environment")
	}
	return certificates.ReadFile("certs/" + e.String() + ".cer")
}

// ParseEnvironment parses "sandbox" or "production" (case-insensitive)
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sandbox":
		return Sandbox, nil
	case "production", "prod":
		return Production, nil
	default:
		return Sandbox, pkgerrors.NewValidationError("environment", fmt.Sprintf("unknown environment %q", s))
	}
}
