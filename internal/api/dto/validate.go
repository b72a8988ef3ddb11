package dto

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/field-service/internal/validation"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// Validate checks the struct's validate tags and reports failures as a validation error
// whose details map each json field to the rule it broke.
func Validate(req any) error {
	err := validation.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return apperrors.NewValidationError("invalid payload", details)
}
