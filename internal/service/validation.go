package service

import (
	"strings"

	"github.com/spec-kit/field-service/internal/validation"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// normalizeMobile strips separators and the country code.
func normalizeMobile(raw string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "+91")
	if len(cleaned) == 11 && strings.HasPrefix(cleaned, "0") {
		cleaned = cleaned[1:]
	}
	return cleaned
}

// validateMobile accepts empty values and 10-digit numbers starting with 6-9.
func validateMobile(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	mobile := normalizeMobile(raw)
	if validation.Var(mobile, validation.MobileTag) != nil {
		return "", apperrors.NewValidationError("invalid mobile number", map[string]any{
			"field": field,
			"rule":  "10 digits starting with 6-9",
		})
	}
	return mobile, nil
}

func validateEmail(field, raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", nil
	}
	if validation.Var(email, "email") != nil {
		return "", apperrors.NewValidationError("invalid email address", map[string]any{"field": field})
	}
	return strings.ToLower(email), nil
}

func requireText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	return trimmed, nil
}

func ptrBool(v bool) *bool {
	return &v
}

