package model

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a client to a program. At most one exists per pair.
type Enrollment struct {
	Base
	ClientID       uuid.UUID `json:"client_id" db:"client_id"`
	ProgramID      uuid.UUID `json:"program_id" db:"program_id"`
	EnrollmentDate Date      `json:"enrollment_date" db:"enrollment_date"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	Notes          string    `json:"notes" db:"notes"`
}

// EnrollmentDetail embeds the related program and/or client by value.
type EnrollmentDetail struct {
	*Enrollment
	Program *HealthProgram `json:"program,omitempty"`
	Client  *ClientView    `json:"client,omitempty"`
}

// EnrollmentRecord is an enrollment loaded together with both related rows.
type EnrollmentRecord struct {
	Enrollment *Enrollment
	Client     *Client
	Program    *HealthProgram
}

// WithProgram renders the record embedding only the program.
func (r *EnrollmentRecord) WithProgram() *EnrollmentDetail {
	return &EnrollmentDetail{Enrollment: r.Enrollment, Program: r.Program}
}

// WithClient renders the record embedding only the client.
func (r *EnrollmentRecord) WithClient(today time.Time) *EnrollmentDetail {
	return &EnrollmentDetail{Enrollment: r.Enrollment, Client: NewClientView(r.Client, today)}
}

// WithBoth renders the record embedding client and program.
func (r *EnrollmentRecord) WithBoth(today time.Time) *EnrollmentDetail {
	return &EnrollmentDetail{
		Enrollment: r.Enrollment,
		Program:    r.Program,
		Client:     NewClientView(r.Client, today),
	}
}

// EnrollmentEvent is published after an enrollment has been written.
type EnrollmentEvent struct {
	Type         string    `json:"type"`
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	ClientID     uuid.UUID `json:"client_id"`
	ProgramID    uuid.UUID `json:"program_id"`
	Created      bool      `json:"created"`
	OccurredAt   string    `json:"occurred_at"`
}
