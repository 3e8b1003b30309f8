// Package validate implements the boundary request validation spec.md
// §1 explicitly places outside the reconciliation core: by the time a
// domain.Request reaches the core, it is already normalized and
// format-checked.
package validate

import (
	"errors"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
)

// ErrBothAbsent is returned when neither email nor phone is present.
var ErrBothAbsent = errors.New("either email or phoneNumber must be provided")

// ErrInvalidEmail is returned when email fails RFC-5322 format or
// length validation.
var ErrInvalidEmail = errors.New("invalid email address")

// ErrInvalidPhone is returned when phone fails the allowed-charset or
// length validation.
var ErrInvalidPhone = errors.New("invalid phone number")

var phonePattern = regexp.MustCompile(`^[+]?[\d\s\-()]+$`)

// Input mirrors the wire representation of an identify request: both
// fields are optional and, if present, may be empty strings (treated
// as absent).
type Input struct {
	Email *string
	Phone *string
}

// Normalized is the validated, normalized pair ready for the core.
type Normalized struct {
	Email *string
	Phone *string
}

// Normalize validates and normalizes an Input, per spec.md §3.1 and the
// "Coercion/validation properties" of §8.
//
// Email is trimmed and lowercased (Open Question 3 is about phone, not
// email — email normalization is unambiguous in spec.md §3.1). Phone is
// only whitespace-trimmed: digit canonicalization is deliberately not
// performed, per Open Question 3 in spec.md §9.
func Normalize(in Input) (Normalized, error) {
	email := trimmedOrNil(in.Email)
	phone := trimmedOrNil(in.Phone)

	if email == nil && phone == nil {
		return Normalized{}, ErrBothAbsent
	}

	if email != nil {
		lowered := strings.ToLower(*email)
		if len(lowered) > 320 || !govalidator.IsEmail(lowered) {
			return Normalized{}, ErrInvalidEmail
		}
		email = &lowered
	}

	if phone != nil {
		if len(*phone) > 20 || !phonePattern.MatchString(*phone) {
			return Normalized{}, ErrInvalidPhone
		}
	}

	return Normalized{Email: email, Phone: phone}, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
