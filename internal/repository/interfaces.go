package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/model"
)

// Store groups the repositories and the transaction boundary.
type Store interface {
	Clients() ClientRepository
	Programs() ProgramRepository
	Enrollments() EnrollmentRepository

	// WithTx runs fn against a transactional view of the store. Every write
	// made through that view is rolled back when fn returns an error.
	// Calling WithTx on a transactional view joins the outer transaction.
	WithTx(ctx context.Context, fn func(Store) error) error

	Ping(ctx context.Context) error
}

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
	Update(ctx context.Context, client *model.Client) error
	List(ctx context.Context, filter model.ClientFilter) ([]*model.Client, int, error)
	// ExistsNationalID ignores the row identified by excludeID.
	ExistsNationalID(ctx context.Context, nationalID string, excludeID uuid.UUID) (bool, error)
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]*model.Client, error)
	// ListByProgram returns each client enrolled in the program once.
	ListByProgram(ctx context.Context, programID uuid.UUID) ([]*model.Client, error)
}

type ProgramRepository interface {
	Create(ctx context.Context, program *model.HealthProgram) error
	Get(ctx context.Context, id uuid.UUID) (*model.HealthProgram, error)
	Update(ctx context.Context, program *model.HealthProgram) error
	List(ctx context.Context, filter model.ProgramFilter) ([]*model.HealthProgram, int, error)
	// GetMany returns the programs found among ids, keyed by id.
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.HealthProgram, error)
	// ListAvailableForClient excludes programs the client has any enrollment in.
	ListAvailableForClient(ctx context.Context, clientID uuid.UUID) ([]*model.HealthProgram, error)
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]*model.HealthProgram, error)
}

type EnrollmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Enrollment, error)
	Update(ctx context.Context, enrollment *model.Enrollment) error
	// Upsert inserts or overwrites the row for (client, program) and reports
	// whether a new row was created.
	Upsert(ctx context.Context, enrollment *model.Enrollment) (bool, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.EnrollmentRecord, error)
	ListByProgram(ctx context.Context, programID uuid.UUID) ([]*model.EnrollmentRecord, error)
	// ListAll returns every enrollment with client and program, newest first.
	ListAll(ctx context.Context) ([]*model.EnrollmentRecord, error)
	Count(ctx context.Context) (int, error)
	CountByProgram(ctx context.Context) ([]model.ProgramCount, error)
	// CountByMonth counts enrollments by calendar month of enrollment_date
	// for dates in [from, to).
	CountByMonth(ctx context.Context, from, to time.Time) (map[model.MonthKey]int, error)
}
