// Package validation checks form input before anything is sent to the
// document store.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"transport-register/internal/models"
)

// MaxWorshippers bounds the per-registration head counts
const MaxWorshippers = 100

var (
	phonePattern  = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{6,19}$`)
	walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// FieldError describes one rejected form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the list of rejected fields of a form
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func (e *Errors) add(field, format string, args ...any) {
	*e = append(*e, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Normalize trims whitespace around the text fields
func Normalize(f models.RegistrationFields) models.RegistrationFields {
	f.FullName = strings.Join(strings.Fields(f.FullName), " ")
	f.Location = strings.TrimSpace(f.Location)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	return f
}

// Registration validates a registration form
func Registration(f models.RegistrationFields) error {
	var errs Errors

	if strings.TrimSpace(f.FullName) == "" {
		errs.add("fullName", "is required")
	}
	if strings.TrimSpace(f.Location) == "" {
		errs.add("location", "is required")
	}

	phone := strings.TrimSpace(f.PhoneNumber)
	switch {
	case phone == "":
		errs.add("phoneNumber", "is required")
	case !phonePattern.MatchString(phone):
		errs.add("phoneNumber", "is not a valid phone number")
	}

	checkCount(&errs, "worshippersToChurch", f.WorshippersToChurch)
	checkCount(&errs, "worshippersFromChurch", f.WorshippersFromChurch)

	return errs.orNil()
}

// SignOut validates a sign-out form
func SignOut(f models.SignOutFields) error {
	var errs Errors
	checkCount(&errs, "worshippersFromChurch", f.WorshippersFromChurch)
	return errs.orNil()
}

// WalletAddress accepts 0x followed by exactly 40 hex characters
func WalletAddress(address string) error {
	var errs Errors
	switch {
	case address == "":
		errs.add("walletAddress", "is required")
	case !walletPattern.MatchString(address):
		errs.add("walletAddress", "must be 0x followed by 40 hex characters")
	}
	return errs.orNil()
}

func checkCount(errs *Errors, field string, n int) {
	if n < 0 || n > MaxWorshippers {
		errs.add(field, "must be between 0 and %d", MaxWorshippers)
	}
}
