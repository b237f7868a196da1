package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

func fixedClock() time.Time {
	return time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)
}

func validClient() *model.ClientRequest {
	return &model.ClientRequest{
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: "1990-01-15",
		Gender:      "M",
		PhoneNumber: "1234567890",
		Email:       "john.doe@example.com",
		Address:     "123 Main St",
		NationalID:  "ID12345",
	}
}

func TestValidate_ValidClient(t *testing.T) {
	v := NewWithClock(fixedClock)
	assert.NoError(t, v.Validate(validClient()))
}

func TestValidate_ReportsAllFieldErrors(t *testing.T) {
	v := NewWithClock(fixedClock)

	req := validClient()
	req.FirstName = ""
	req.Email = "not-an-email"
	req.DateOfBirth = "1990-02-30"
	req.Gender = "X"

	err := v.Validate(req)
	require.Error(t, err)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrValidation, appErr.Code)
	assert.Equal(t, []string{"This field is required."}, appErr.Fields["first_name"])
	assert.Equal(t, []string{"Enter a valid email address."}, appErr.Fields["email"])
	assert.Equal(t, []string{"Enter a valid date (YYYY-MM-DD)."}, appErr.Fields["date_of_birth"])
	assert.Contains(t, appErr.Fields["gender"][0], "M, F, O")
	assert.NotContains(t, appErr.Fields, "national_id")
}

func TestValidate_DateOfBirthNotInFuture(t *testing.T) {
	v := NewWithClock(fixedClock)

	req := validClient()
	req.DateOfBirth = "2026-10-16"
	err := v.Validate(req)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Date cannot be in the future."}, appErr.Fields["date_of_birth"])

	req.DateOfBirth = "2026-10-15"
	assert.NoError(t, v.Validate(req))
}

func TestValidate_EmailOptional(t *testing.T) {
	req := validClient()
	req.Email = ""
	assert.NoError(t, NewWithClock(fixedClock).Validate(req))
}

func TestValidate_EnrollProgramIDs(t *testing.T) {
	v := NewWithClock(fixedClock)

	err := v.Validate(&model.EnrollRequest{EnrollmentDate: "2026-10-01"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "program_ids")

	err = v.Validate(&model.EnrollRequest{
		ProgramIDs:     []string{"8c1f6a3e-2b1d-4a57-9a3a-0c6a1e0b9d11", "nope"},
		EnrollmentDate: "2026-10-01",
	})
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{`"nope" is not a valid identifier.`}, appErr.Fields["program_ids"])
}

func TestValidate_UpdateEnrollmentRequiresActiveFlag(t *testing.T) {
	err := NewWithClock(fixedClock).Validate(&model.UpdateEnrollmentRequest{EnrollmentDate: "2026-10-01"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "is_active")
}
