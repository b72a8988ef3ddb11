// Package validation holds the validator shared by request DTOs and the services.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MobileTag accepts a 10-digit mobile number starting with 6-9.
const MobileTag = "in_mobile"

var std = New()

// New builds a validator that reports json field names and knows the mobile rule.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation(MobileTag, func(fl validator.FieldLevel) bool {
		return IsMobile(fl.Field().String())
	})
	return v
}

// IsMobile reports whether s is ten digits with a leading 6-9.
func IsMobile(s string) bool {
	if len(s) != 10 || s[0] < '6' || s[0] > '9' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Struct checks the validate tags of s.
func Struct(s any) error {
	return std.Struct(s)
}

// Var checks a single value against tag.
func Var(field any, tag string) error {
	return std.Var(field, tag)
}
