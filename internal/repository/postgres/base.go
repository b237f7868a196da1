package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/health-enrollment/internal/repository"
)

// Store implements repository.Store on PostgreSQL. Outside a transaction
// ext is the pool; inside one it is the *sqlx.Tx.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  *sqlx.Tx
}

// NewStore creates a store backed by db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

func (s *Store) Clients() repository.ClientRepository {
	return &clientRepository{ext: s.ext}
}

func (s *Store) Programs() repository.ProgramRepository {
	return &programRepository{ext: s.ext}
}

func (s *Store) Enrollments() repository.EnrollmentRepository {
	return &enrollmentRepository{ext: s.ext}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes a function within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{db: s.db, ext: tx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
