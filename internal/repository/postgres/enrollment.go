package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/health-enrollment/internal/model"
)

type enrollmentRepository struct {
	ext sqlx.ExtContext
}

// enrollmentRow scans a join of enrollments with clients and programs.
// Related columns are aliased as "client.<col>" and "program.<col>".
type enrollmentRow struct {
	model.Enrollment
	Client  model.Client        `db:"client"`
	Program model.HealthProgram `db:"program"`
}

func (row *enrollmentRow) record() *model.EnrollmentRecord {
	e, c, p := row.Enrollment, row.Client, row.Program
	return &model.EnrollmentRecord{Enrollment: &e, Client: &c, Program: &p}
}

func aliased(table, prefix, columns string) string {
	var out []string
	for _, col := range strings.Split(columns, ",") {
		col = strings.TrimSpace(col)
		out = append(out, fmt.Sprintf(`%s.%s AS "%s.%s"`, table, col, prefix, col))
	}
	return strings.Join(out, ", ")
}

func prefixed(table, columns string) string {
	var out []string
	for _, col := range strings.Split(columns, ",") {
		out = append(out, table+"."+strings.TrimSpace(col))
	}
	return strings.Join(out, ", ")
}

var recordSelect = `SELECT ` + prefixed("e", enrollmentColumns) + `, ` +
	aliased("c", "client", clientColumns) + `, ` +
	aliased("p", "program", programColumns) + `
	FROM enrollments e
	JOIN clients c ON c.id = e.client_id
	JOIN health_programs p ON p.id = e.program_id`

func (r *enrollmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`

	var enrollment model.Enrollment
	if err := sqlx.GetContext(ctx, r.ext, &enrollment, query, id); err != nil {
		return nil, translate("get enrollment", "enrollment", err)
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *model.Enrollment) error {
	query := `
		UPDATE enrollments
		SET enrollment_date = $1, is_active = $2, notes = $3, updated_at = $4
		WHERE id = $5
		RETURNING client_id, program_id, created_at
	`
	enrollment.UpdatedAt = time.Now().UTC()

	err := r.ext.QueryRowxContext(ctx, query,
		enrollment.EnrollmentDate,
		enrollment.IsActive,
		enrollment.Notes,
		enrollment.UpdatedAt,
		enrollment.ID,
	).Scan(&enrollment.ClientID, &enrollment.ProgramID, &enrollment.CreatedAt)
	return translate("update enrollment", "enrollment", err)
}

// Upsert relies on the (client_id, program_id) unique constraint. xmax is
// zero only for a freshly inserted tuple, which tells inserts from updates.
func (r *enrollmentRepository) Upsert(ctx context.Context, enrollment *model.Enrollment) (bool, error) {
	query := `
		INSERT INTO enrollments (
			id, client_id, program_id, enrollment_date, is_active, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, TRUE, $5, $6, $6)
		ON CONFLICT (client_id, program_id) DO UPDATE
		SET enrollment_date = EXCLUDED.enrollment_date,
			notes = EXCLUDED.notes,
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at
		RETURNING id, is_active, created_at, updated_at, (xmax = 0) AS inserted
	`
	now := time.Now().UTC()

	var inserted bool
	err := r.ext.QueryRowxContext(ctx, query,
		uuid.New(),
		enrollment.ClientID,
		enrollment.ProgramID,
		enrollment.EnrollmentDate,
		enrollment.Notes,
		now,
	).Scan(&enrollment.ID, &enrollment.IsActive, &enrollment.CreatedAt, &enrollment.UpdatedAt, &inserted)
	if err != nil {
		return false, translate("upsert enrollment", "enrollment", err)
	}
	return inserted, nil
}

func (r *enrollmentRepository) selectRecords(ctx context.Context, query string, args ...interface{}) ([]*model.EnrollmentRecord, error) {
	var rows []enrollmentRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	records := make([]*model.EnrollmentRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].record())
	}
	return records, nil
}

func (r *enrollmentRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.EnrollmentRecord, error) {
	return r.selectRecords(ctx, recordSelect+`
		WHERE e.client_id = $1
		ORDER BY e.enrollment_date DESC, e.created_at DESC, e.id`, clientID)
}

func (r *enrollmentRepository) ListByProgram(ctx context.Context, programID uuid.UUID) ([]*model.EnrollmentRecord, error) {
	return r.selectRecords(ctx, recordSelect+`
		WHERE e.program_id = $1
		ORDER BY e.enrollment_date DESC, e.created_at DESC, e.id`, programID)
}

func (r *enrollmentRepository) ListAll(ctx context.Context) ([]*model.EnrollmentRecord, error) {
	return r.selectRecords(ctx, recordSelect+`
		ORDER BY e.created_at DESC, e.id`)
}

func (r *enrollmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.ext, &n, `SELECT COUNT(*) FROM enrollments`); err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return n, nil
}

func (r *enrollmentRepository) CountByProgram(ctx context.Context) ([]model.ProgramCount, error) {
	query := `
		SELECT p.id AS program_id, p.name AS program_name, COUNT(e.id) AS count
		FROM health_programs p
		LEFT JOIN enrollments e ON e.program_id = p.id
		GROUP BY p.id, p.name
		ORDER BY count DESC, p.name, p.id
	`
	counts := []model.ProgramCount{}
	if err := sqlx.SelectContext(ctx, r.ext, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to count enrollments by program: %w", err)
	}
	return counts, nil
}

func (r *enrollmentRepository) CountByMonth(ctx context.Context, from, to time.Time) (map[model.MonthKey]int, error) {
	query := `
		SELECT EXTRACT(YEAR FROM enrollment_date)::int AS year,
			EXTRACT(MONTH FROM enrollment_date)::int AS month,
			COUNT(*) AS count
		FROM enrollments
		WHERE enrollment_date >= $1 AND enrollment_date < $2
		GROUP BY 1, 2
	`
	var rows []struct {
		Year  int `db:"year"`
		Month int `db:"month"`
		Count int `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, model.DateOf(from), model.DateOf(to)); err != nil {
		return nil, fmt.Errorf("failed to count enrollments by month: %w", err)
	}

	counts := make(map[model.MonthKey]int, len(rows))
	for _, row := range rows {
		counts[model.MonthKey{Year: row.Year, Month: time.Month(row.Month)}] = row.Count
	}
	return counts, nil
}
