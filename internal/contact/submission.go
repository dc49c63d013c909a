// Package contact implements the contact form pipeline: validation,
// notification composition and dispatch under a degraded-success policy.
package contact

import (
	"regexp"
	"strings"

	"github.com/tjfontaine/allmovieshub/internal/domain"
)

// Submission is one contact form entry. All fields are required.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

const (
	msgMissingField    = "All fields are required"
	msgMalformedEmail  = "Invalid email format"
	msgProcessingError = "Failed to send message. Please try again later."
)

// emailPattern is loose: something@something.something with no extra @ and
// no whitespace of any kind. RE2's \s is ASCII only, so vertical tab, the
// Unicode separators and BOM are listed explicitly.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// ErrMissingField is the validation error for an absent or blank field.
func ErrMissingField() *domain.APIError {
	return domain.ErrInvalidRequest(msgMissingField).WithCode(domain.ErrorCodeMissingField)
}

// ErrMalformedEmail is the validation error for an unusable email address.
func ErrMalformedEmail() *domain.APIError {
	return domain.ErrInvalidRequest(msgMalformedEmail).WithCode(domain.ErrorCodeMalformedEmail)
}

// ErrProcessing is the generic failure reported for faults after validation.
func ErrProcessing(cause error) *domain.APIError {
	return domain.ErrServer(msgProcessingError).
		WithCode(domain.ErrorCodeProcessingFailed).
		WithCause(cause)
}

// ParseSubmission builds a Submission from a decoded JSON object. Each of the
// four keys must be present and hold a string; anything else is a
// missing-field error. Blank checks are left to Validate.
func ParseSubmission(fields map[string]any) (Submission, error) {
	get := func(key string) (string, bool) {
		v, ok := fields[key]
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}

	var s Submission
	var ok bool
	if s.Name, ok = get("name"); !ok {
		return Submission{}, ErrMissingField()
	}
	if s.Email, ok = get("email"); !ok {
		return Submission{}, ErrMissingField()
	}
	if s.Subject, ok = get("subject"); !ok {
		return Submission{}, ErrMissingField()
	}
	if s.Message, ok = get("message"); !ok {
		return Submission{}, ErrMissingField()
	}
	return s, nil
}

// Trimmed returns s with surrounding whitespace removed from every field.
func (s Submission) Trimmed() Submission {
	return Submission{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Subject: strings.TrimSpace(s.Subject),
		Message: strings.TrimSpace(s.Message),
	}
}

// Validate checks required fields first, then the email format. It has no
// side effects.
func Validate(s Submission) error {
	for _, v := range []string{s.Name, s.Email, s.Subject, s.Message} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingField()
		}
	}
	if !emailPattern.MatchString(strings.TrimSpace(s.Email)) {
		return ErrMalformedEmail()
	}
	return nil
}
