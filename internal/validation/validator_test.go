package validation

import (
	"testing"

	"github.com/dukerupert/railinspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	FullName string `json:"fullName" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=inspector manager"`
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	t.Run("valid", func(t *testing.T) {
		err := v.Validate(&signupRequest{Email: "a@example.com", FullName: "A", Password: "longenough"})
		assert.NoError(t, err)
	})

	t.Run("field messages keyed by json name", func(t *testing.T) {
		err := v.Validate(&signupRequest{Email: "nope", Password: "short", Role: "driver"})
		require.Error(t, err)
		assert.Equal(t, railinspect.EINVALID, railinspect.ErrorCode(err))

		fields := railinspect.ErrorFields(err)
		assert.Equal(t, "must be a valid email address", fields["email"])
		assert.Equal(t, "is required", fields["fullName"])
		assert.Equal(t, "must be at least 8 characters", fields["password"])
		assert.Equal(t, "must be one of: inspector manager", fields["role"])
	})
}
