package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

// promptPassword reads a password from the terminal without echo
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("initiator password required: set MPESA_INITIATOR_PASSWORD or run in a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	passwordBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return string(passwordBytes), nil
}

// parseAmount turns a flag value into a decimal. Range checks are left to the client.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}
