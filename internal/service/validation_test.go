package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

func TestValidateMobileNormalises(t *testing.T) {
	mobile, err := validateMobile("mobile", "+91 (987) 654-3210")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", mobile)

	mobile, err = validateMobile("mobile", "09876543210")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", mobile)

	mobile, err = validateMobile("mobile", "  ")
	require.NoError(t, err)
	assert.Empty(t, mobile)

	_, err = validateMobile("alt_mobile", "1234567890")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, "alt_mobile", apperrors.ToDomainError(err).Details["field"])
}

func TestValidateEmail(t *testing.T) {
	email, err := validateEmail("email", " Desk@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "desk@example.com", email)

	email, err = validateEmail("email", "")
	require.NoError(t, err)
	assert.Empty(t, email)

	_, err = validateEmail("email", "not-an-email")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
