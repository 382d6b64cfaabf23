// Package intake defines the data-collection forms behind ticket creation, payment
// capture and feedback, and turns raw submissions into typed requests.
package intake

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// Style selects a single-line or multi-line input.
type Style int

const (
	StyleShort Style = iota + 1
	StyleParagraph
)

// Field is one input of a form. Lengths count runes.
type Field struct {
	ID          string
	Label       string
	Placeholder string
	Style       Style
	Required    bool
	MinLength   int
	MaxLength   int
	// DigitsOnly rejects values containing anything but 0-9 with DigitsMessage.
	DigitsOnly    bool
	DigitsMessage string
}

// Form is a modal the platform renders. ID is the custom id the submission comes back with.
type Form struct {
	ID     string
	Title  string
	Fields []Field
}

// Values maps field ids to submitted text.
type Values map[string]string

// Validate trims every field and checks it against its constraints. The first failing
// field is reported as a validation error carrying the field id.
func (f Form) Validate(raw Values) (Values, error) {
	clean := make(Values, len(f.Fields))
	for _, field := range f.Fields {
		value := strings.TrimSpace(raw[field.ID])
		if err := field.check(value); err != nil {
			return nil, err
		}
		clean[field.ID] = value
	}
	return clean, nil
}

func (field Field) check(value string) error {
	details := map[string]any{"field": field.ID}
	length := utf8.RuneCountInString(value)

	if value == "" {
		if field.Required {
			return apperrors.NewValidationError(fmt.Sprintf("%s is required.", field.Label), details)
		}
		return nil
	}
	if field.DigitsOnly && !IsDigits(value) {
		msg := field.DigitsMessage
		if msg == "" {
			msg = fmt.Sprintf("%s must contain only numbers!", field.Label)
		}
		return apperrors.NewValidationError(msg, details)
	}
	if field.MinLength > 0 && length < field.MinLength {
		return apperrors.NewValidationError(fmt.Sprintf("%s must be at least %d characters.", field.Label, field.MinLength), details)
	}
	if field.MaxLength > 0 && length > field.MaxLength {
		return apperrors.NewValidationError(fmt.Sprintf("%s must be at most %d characters.", field.Label, field.MaxLength), details)
	}
	return nil
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
