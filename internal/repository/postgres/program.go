package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/health-enrollment/internal/model"
)

type programRepository struct {
	ext sqlx.ExtContext
}

func (r *programRepository) Create(ctx context.Context, program *model.HealthProgram) error {
	query := `
		INSERT INTO health_programs (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	program.Base = model.Base{}
	program.Touch(time.Now().UTC())

	_, err := r.ext.ExecContext(ctx, query,
		program.ID,
		program.Name,
		program.Description,
		program.CreatedAt,
		program.UpdatedAt,
	)
	return translate("create program", "program", err)
}

func (r *programRepository) Get(ctx context.Context, id uuid.UUID) (*model.HealthProgram, error) {
	query := `SELECT ` + programColumns + ` FROM health_programs WHERE id = $1`

	var program model.HealthProgram
	if err := sqlx.GetContext(ctx, r.ext, &program, query, id); err != nil {
		return nil, translate("get program", "program", err)
	}
	return &program, nil
}

func (r *programRepository) Update(ctx context.Context, program *model.HealthProgram) error {
	query := `
		UPDATE health_programs
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
		RETURNING created_at
	`
	program.UpdatedAt = time.Now().UTC()

	err := r.ext.QueryRowxContext(ctx, query,
		program.Name,
		program.Description,
		program.UpdatedAt,
		program.ID,
	).Scan(&program.CreatedAt)
	return translate("update program", "program", err)
}

func (r *programRepository) List(ctx context.Context, filter model.ProgramFilter) ([]*model.HealthProgram, int, error) {
	list, count, args, countArgs := programListQuery(filter)

	var total int
	if err := sqlx.GetContext(ctx, r.ext, &total, count, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count programs: %w", err)
	}

	programs := []*model.HealthProgram{}
	if err := sqlx.SelectContext(ctx, r.ext, &programs, list, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list programs: %w", err)
	}
	return programs, total, nil
}

func (r *programRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.HealthProgram, error) {
	found := make(map[uuid.UUID]*model.HealthProgram, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query := `SELECT ` + programColumns + ` FROM health_programs WHERE id = ANY($1::uuid[])`
	var programs []*model.HealthProgram
	if err := sqlx.SelectContext(ctx, r.ext, &programs, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("failed to load programs: %w", err)
	}
	for _, p := range programs {
		found[p.ID] = p
	}
	return found, nil
}

func (r *programRepository) ListAvailableForClient(ctx context.Context, clientID uuid.UUID) ([]*model.HealthProgram, error) {
	query := `
		SELECT ` + programColumns + `
		FROM health_programs p
		WHERE NOT EXISTS (
			SELECT 1 FROM enrollments e
			WHERE e.program_id = p.id AND e.client_id = $1
		)
		ORDER BY name, id
	`
	programs := []*model.HealthProgram{}
	if err := sqlx.SelectContext(ctx, r.ext, &programs, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to list available programs: %w", err)
	}
	return programs, nil
}

func (r *programRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.ext, &n, `SELECT COUNT(*) FROM health_programs`); err != nil {
		return 0, fmt.Errorf("failed to count programs: %w", err)
	}
	return n, nil
}

func (r *programRepository) Recent(ctx context.Context, limit int) ([]*model.HealthProgram, error) {
	query := `SELECT ` + programColumns + ` FROM health_programs ORDER BY created_at DESC, id ASC LIMIT $1`

	programs := []*model.HealthProgram{}
	if err := sqlx.SelectContext(ctx, r.ext, &programs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent programs: %w", err)
	}
	return programs, nil
}
