package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/health-enrollment/internal/model"
)

type clientRepository struct {
	ext sqlx.ExtContext
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	query := `
		INSERT INTO clients (
			id, first_name, last_name, date_of_birth, gender, phone_number,
			email, address, national_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`
	client.Base = model.Base{}
	client.Touch(time.Now().UTC())

	_, err := r.ext.ExecContext(ctx, query,
		client.ID,
		client.FirstName,
		client.LastName,
		client.DateOfBirth,
		client.Gender,
		client.PhoneNumber,
		client.Email,
		client.Address,
		client.NationalID,
		client.CreatedAt,
		client.UpdatedAt,
	)
	return translate("create client", "client", err)
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	var client model.Client
	if err := sqlx.GetContext(ctx, r.ext, &client, query, id); err != nil {
		return nil, translate("get client", "client", err)
	}
	return &client, nil
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	query := `
		UPDATE clients
		SET first_name = $1, last_name = $2, date_of_birth = $3, gender = $4,
			phone_number = $5, email = $6, address = $7, national_id = $8, updated_at = $9
		WHERE id = $10
		RETURNING created_at
	`
	client.UpdatedAt = time.Now().UTC()

	err := r.ext.QueryRowxContext(ctx, query,
		client.FirstName,
		client.LastName,
		client.DateOfBirth,
		client.Gender,
		client.PhoneNumber,
		client.Email,
		client.Address,
		client.NationalID,
		client.UpdatedAt,
		client.ID,
	).Scan(&client.CreatedAt)
	return translate("update client", "client", err)
}

func (r *clientRepository) List(ctx context.Context, filter model.ClientFilter) ([]*model.Client, int, error) {
	list, count, args, countArgs := clientListQuery(filter)

	var total int
	if err := sqlx.GetContext(ctx, r.ext, &total, count, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	clients := []*model.Client{}
	if err := sqlx.SelectContext(ctx, r.ext, &clients, list, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, total, nil
}

func (r *clientRepository) ExistsNationalID(ctx context.Context, nationalID string, excludeID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM clients WHERE national_id = $1 AND id <> $2)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.ext, &exists, query, nationalID, excludeID); err != nil {
		return false, fmt.Errorf("failed to check national ID: %w", err)
	}
	return exists, nil
}

func (r *clientRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.ext, &n, `SELECT COUNT(*) FROM clients`); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return n, nil
}

func (r *clientRepository) Recent(ctx context.Context, limit int) ([]*model.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY created_at DESC, id ASC LIMIT $1`

	clients := []*model.Client{}
	if err := sqlx.SelectContext(ctx, r.ext, &clients, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent clients: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) ListByProgram(ctx context.Context, programID uuid.UUID) ([]*model.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients c
		WHERE EXISTS (
			SELECT 1 FROM enrollments e
			WHERE e.client_id = c.id AND e.program_id = $1
		)
		ORDER BY last_name, first_name, id
	`
	clients := []*model.Client{}
	if err := sqlx.SelectContext(ctx, r.ext, &clients, query, programID); err != nil {
		return nil, fmt.Errorf("failed to list program clients: %w", err)
	}
	return clients, nil
}
