package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMobileRule(t *testing.T) {
	for _, ok := range []string{"9876543210", "6000000000"} {
		assert.NoError(t, Var(ok, MobileTag), ok)
	}
	for _, bad := range []string{"", "5876543210", "987654321", "98765432101", "98765x3210"} {
		assert.Error(t, Var(bad, MobileTag), bad)
	}
}

func TestEmailRule(t *testing.T) {
	assert.NoError(t, Var("desk@example.com", "email"))
	assert.Error(t, Var("desk@", "email"))
}

func TestStructReportsJSONNames(t *testing.T) {
	type request struct {
		Mobile string `json:"customer_mobile" validate:"required,in_mobile"`
	}
	err := Struct(request{Mobile: "12345"})
	require.Error(t, err)
	var fieldErrs validator.ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "customer_mobile", fieldErrs[0].Field())
	assert.Equal(t, MobileTag, fieldErrs[0].Tag())
}
