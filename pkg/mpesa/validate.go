package mpesa

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
	"github.com/shopspring/decimal"
)

// maxAmount is the largest amount that survives conversion to the integer wire form
var maxAmount = decimal.NewFromInt(math.MaxInt64)

// Kenyan mobile numbers: optional 254, +254 or 0 prefix, then 7XXXXXXXX or 1XXXXXXXX
var phonePattern = regexp.MustCompile(`^(?:254|\+254|0)?((?:7|1)\d{8})$`)

// NormalizePhone returns phone in the 2547XXXXXXXX form the provider expects
func NormalizePhone(phone string) (string, error) {
	m := phonePattern.FindStringSubmatch(strings.TrimSpace(phone))
	if m == nil {
		return "", pkgerrors.NewValidationError("phone_number", fmt.Sprintf("%q is not a valid Kenyan mobile number", phone))
	}
	return "254" + m[1], nil
}

func validatePhone(field, phone string) error {
	if _, err := NormalizePhone(phone); err != nil {
		return pkgerrors.NewValidationError(field, fmt.Sprintf("%q is not a valid Kenyan mobile number", phone))
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return pkgerrors.NewValidationError(field, "is required")
	}
	return nil
}

// validateAmount requires a positive whole number of shillings
func validateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.NewValidationError(field, "must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(0)) {
		return pkgerrors.NewValidationError(field, "must be a whole number")
	}
	if amount.GreaterThan(maxAmount) {
		return pkgerrors.NewValidationError(field, "is out of range")
	}
	return nil
}

func validateURL(field, raw string) error {
	if err := required(field, raw); err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return pkgerrors.NewValidationError(field, fmt.Sprintf("%q is not an absolute http(s) URL", raw))
	}
	return nil
}

func validateCommand(field string, cmd CommandID, allowed ...CommandID) error {
	for _, a := range allowed {
		if cmd == a {
			return nil
		}
	}

	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return pkgerrors.NewValidationError(field, fmt.Sprintf("%q is not one of %s", cmd, strings.Join(names, ", ")))
}

func validateIdentifier(field string, t IdentifierType) error {
	if !t.valid() {
		return pkgerrors.NewValidationError(field, fmt.Sprintf("unknown identifier type %d", int(t)))
	}
	return nil
}

// firstError returns the first non-nil error
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
