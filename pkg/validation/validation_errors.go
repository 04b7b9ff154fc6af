package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps reported field names to user-facing labels
var FieldLabels = map[string]string{
	"candidateName":       "Candidate name",
	"professionalSummary": "Professional summary",
	"transcript":          "Transcript",
	"hardSkills":          "Hard skills",
	"softSkills":          "Soft skills",
	"tags":                "Tags",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", label)
	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: at most %s characters", label, param)
		}
		return fmt.Sprintf("%s: at most %s", label, param)
	case "no_emoji":
		return fmt.Sprintf("%s: must not contain emoji or special symbols", label)
	case "no_blank_items":
		return fmt.Sprintf("%s: items must not be blank", label)
	default:
		return fmt.Sprintf("%s: validation failed (%s)", label, e.Tag())
	}
}

// getFieldLabel returns the label for a field; list items ("tags[2]") use
// the list's label.
func getFieldLabel(fieldName string) string {
	base := fieldName
	if i := strings.IndexByte(base, '['); i >= 0 {
		base = base[:i]
	}
	if label, ok := FieldLabels[base]; ok {
		if base != fieldName {
			return label + fieldName[len(base):]
		}
		return label
	}
	return fieldName
}
