package model

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

const invalidDate = "Enter a valid date (YYYY-MM-DD)."

// ClientRequest is the registration and update form for a client.
type ClientRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02,notfuture"`
	Gender      string `json:"gender" validate:"required,oneof=M F O"`
	PhoneNumber string `json:"phone_number" validate:"required,max=20"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	NationalID  string `json:"national_id" validate:"required,max=50"`
}

// Trim strips surrounding whitespace from every field.
func (r *ClientRequest) Trim() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Gender = strings.TrimSpace(r.Gender)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Email = strings.TrimSpace(r.Email)
	r.Address = strings.TrimSpace(r.Address)
	r.NationalID = strings.TrimSpace(r.NationalID)
}

// Apply copies the form onto c. c is left untouched when the date of
// birth does not parse.
func (r *ClientRequest) Apply(c *Client) error {
	dob, err := ParseDate(r.DateOfBirth)
	if err != nil {
		return errors.FieldError("date_of_birth", invalidDate)
	}
	c.FirstName = r.FirstName
	c.LastName = r.LastName
	c.DateOfBirth = dob
	c.Gender = Gender(r.Gender)
	c.PhoneNumber = r.PhoneNumber
	c.Email = r.Email
	c.Address = r.Address
	c.NationalID = r.NationalID
	return nil
}

// ProgramRequest is the create and update form for a program.
type ProgramRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

func (r *ProgramRequest) Trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

// EnrollRequest enrolls one client in several programs.
type EnrollRequest struct {
	ProgramIDs     []string `json:"program_ids" validate:"required,min=1,dive,uuid"`
	EnrollmentDate string   `json:"enrollment_date" validate:"required,datetime=2006-01-02"`
	Notes          string   `json:"notes" validate:"omitempty,max=5000"`
}

// BulkEnrollRequest is the direct enrollment form naming the client.
type BulkEnrollRequest struct {
	ClientID string `json:"client_id" validate:"required,uuid"`
	EnrollRequest
}

// UpdateEnrollmentRequest edits a single enrollment.
type UpdateEnrollmentRequest struct {
	EnrollmentDate string `json:"enrollment_date" validate:"required,datetime=2006-01-02"`
	IsActive       *bool  `json:"is_active" validate:"required"`
	Notes          string `json:"notes" validate:"omitempty,max=5000"`
}

// EnrollCommand is a validated enrollment request.
type EnrollCommand struct {
	ClientID       uuid.UUID
	ProgramIDs     []uuid.UUID
	EnrollmentDate Date
	Notes          string
}

// NewEnrollCommand converts a request. IDs repeated in the request are
// collapsed, keeping first-seen order. Unparseable dates and IDs are
// reported as field errors.
func NewEnrollCommand(clientID uuid.UUID, r *EnrollRequest) (EnrollCommand, error) {
	date, err := ParseDate(r.EnrollmentDate)
	if err != nil {
		return EnrollCommand{}, errors.FieldError("enrollment_date", invalidDate)
	}

	seen := make(map[uuid.UUID]bool, len(r.ProgramIDs))
	ids := make([]uuid.UUID, 0, len(r.ProgramIDs))
	for _, raw := range r.ProgramIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return EnrollCommand{}, errors.FieldError("program_ids", "\""+raw+"\" is not a valid identifier.")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return EnrollCommand{}, errors.FieldError("program_ids", "Select at least 1 item(s).")
	}

	return EnrollCommand{
		ClientID:       clientID,
		ProgramIDs:     ids,
		EnrollmentDate: date,
		Notes:          strings.TrimSpace(r.Notes),
	}, nil
}
