package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/internal/repository"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

var _ repository.Store = (*Store)(nil)

func seedClient(t *testing.T, s *Store, first, last, nationalID string) *model.Client {
	t.Helper()
	c := &model.Client{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: model.NewDate(1990, time.January, 15),
		Gender:      model.GenderMale,
		PhoneNumber: "1234567890",
		Email:       fmt.Sprintf("%s@example.com", first),
		NationalID:  nationalID,
	}
	require.NoError(t, s.Clients().Create(context.Background(), c))
	return c
}

func seedProgram(t *testing.T, s *Store, name string) *model.HealthProgram {
	t.Helper()
	p := &model.HealthProgram{Name: name, Description: name + " program"}
	require.NoError(t, s.Programs().Create(context.Background(), p))
	return p
}

func TestClientRepository_CreateAssignsIdentity(t *testing.T) {
	s := NewStore()
	c := seedClient(t, s, "John", "Doe", "ID12345")

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	got, err := s.Clients().Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Doe", got.LastName)
}

func TestClientRepository_NationalIDUnique(t *testing.T) {
	s := NewStore()
	first := seedClient(t, s, "John", "Doe", "ID12345")

	err := s.Clients().Create(context.Background(), &model.Client{FirstName: "Jim", NationalID: "ID12345"})
	assert.True(t, errors.Is(err, errors.ErrConflict))

	taken, err := s.Clients().ExistsNationalID(context.Background(), "ID12345", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.Clients().ExistsNationalID(context.Background(), "ID12345", first.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestClientRepository_GetMissing(t *testing.T) {
	_, err := NewStore().Clients().Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestClientRepository_ListSearchOrderPaginate(t *testing.T) {
	s := NewStore()
	seedClient(t, s, "John", "Doe", "ID12345")
	seedClient(t, s, "Jane", "Smith", "ID67890")
	seedClient(t, s, "Ann", "Abbot", "XY00001")

	ctx := context.Background()

	got, total, err := s.Clients().List(ctx, model.ClientFilter{ListParams: model.ListParams{Search: "id12", Page: 1, PageSize: 20}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "John", got[0].FirstName)

	got, total, err = s.Clients().List(ctx, model.ClientFilter{ListParams: model.ListParams{Ordering: "last_name", Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 2)
	assert.Equal(t, "Abbot", got[0].LastName)
	assert.Equal(t, "Doe", got[1].LastName)

	got, _, err = s.Clients().List(ctx, model.ClientFilter{ListParams: model.ListParams{Page: 1, PageSize: 20}})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Ann", got[0].FirstName, "default ordering is newest first")

	got, _, err = s.Clients().List(ctx, model.ClientFilter{ListParams: model.ListParams{Page: 2, PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEnrollmentRepository_UpsertIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := seedClient(t, s, "John", "Doe", "ID12345")
	p := seedProgram(t, s, "TB")

	e := &model.Enrollment{ClientID: c.ID, ProgramID: p.ID, EnrollmentDate: model.NewDate(2026, time.October, 1), Notes: "first"}
	created, err := s.Enrollments().Upsert(ctx, e)
	require.NoError(t, err)
	assert.True(t, created)
	firstID := e.ID

	// deactivate, then upsert again
	e.IsActive = false
	require.NoError(t, s.Enrollments().Update(ctx, e))

	again := &model.Enrollment{ClientID: c.ID, ProgramID: p.ID, EnrollmentDate: model.NewDate(2026, time.October, 5), Notes: "second"}
	created, err = s.Enrollments().Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, again.ID)

	count, err := s.Enrollments().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := s.Enrollments().Get(ctx, firstID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "second", stored.Notes)
	assert.Equal(t, "2026-10-05", stored.EnrollmentDate.String())
}

func TestEnrollmentRepository_UpsertUnknownProgram(t *testing.T) {
	s := NewStore()
	c := seedClient(t, s, "John", "Doe", "ID12345")

	_, err := s.Enrollments().Upsert(context.Background(), &model.Enrollment{ClientID: c.ID, ProgramID: uuid.New()})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := seedClient(t, s, "John", "Doe", "ID12345")
	tb := seedProgram(t, s, "TB")

	err := s.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Enrollments().Upsert(ctx, &model.Enrollment{ClientID: c.ID, ProgramID: tb.ID}); err != nil {
			return err
		}
		_, err := tx.Enrollments().Upsert(ctx, &model.Enrollment{ClientID: c.ID, ProgramID: uuid.New()})
		return err
	})
	require.Error(t, err)

	count, err := s.Enrollments().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_WithTxCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx repository.Store) error {
		return tx.WithTx(ctx, func(inner repository.Store) error {
			return inner.Programs().Create(ctx, &model.HealthProgram{Name: "Malaria"})
		})
	})
	require.NoError(t, err)

	count, err := s.Programs().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProgramRepository_ListAvailableForClient(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := seedClient(t, s, "John", "Doe", "ID12345")
	tb := seedProgram(t, s, "TB")
	seedProgram(t, s, "Malaria")
	seedProgram(t, s, "HIV")

	e := &model.Enrollment{ClientID: c.ID, ProgramID: tb.ID}
	_, err := s.Enrollments().Upsert(ctx, e)
	require.NoError(t, err)
	e.IsActive = false
	require.NoError(t, s.Enrollments().Update(ctx, e))

	available, err := s.Programs().ListAvailableForClient(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "HIV", available[0].Name)
	assert.Equal(t, "Malaria", available[1].Name)
}

func TestClientRepository_ListByProgramDistinct(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	john := seedClient(t, s, "John", "Doe", "ID12345")
	jane := seedClient(t, s, "Jane", "Smith", "ID67890")
	tb := seedProgram(t, s, "TB")

	for _, c := range []*model.Client{john, jane, john} {
		_, err := s.Enrollments().Upsert(ctx, &model.Enrollment{ClientID: c.ID, ProgramID: tb.ID})
		require.NoError(t, err)
	}

	clients, err := s.Clients().ListByProgram(ctx, tb.ID)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Doe", clients[0].LastName)
	assert.Equal(t, "Smith", clients[1].LastName)
}

func TestEnrollmentRepository_Aggregates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	john := seedClient(t, s, "John", "Doe", "ID12345")
	jane := seedClient(t, s, "Jane", "Smith", "ID67890")
	tb := seedProgram(t, s, "TB")
	malaria := seedProgram(t, s, "Malaria")
	seedProgram(t, s, "HIV")

	upsert := func(c *model.Client, p *model.HealthProgram, d model.Date) {
		_, err := s.Enrollments().Upsert(ctx, &model.Enrollment{ClientID: c.ID, ProgramID: p.ID, EnrollmentDate: d})
		require.NoError(t, err)
	}
	upsert(john, tb, model.NewDate(2026, time.September, 30))
	upsert(jane, tb, model.NewDate(2026, time.October, 1))
	upsert(john, malaria, model.NewDate(2026, time.October, 15))

	dist, err := s.Enrollments().CountByProgram(ctx)
	require.NoError(t, err)
	require.Len(t, dist, 3)
	assert.Equal(t, "TB", dist[0].ProgramName)
	assert.Equal(t, 2, dist[0].Count)
	assert.Equal(t, "Malaria", dist[1].ProgramName)
	assert.Equal(t, "HIV", dist[2].ProgramName)
	assert.Equal(t, 0, dist[2].Count)

	months, err := s.Enrollments().CountByMonth(ctx,
		time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, map[model.MonthKey]int{{Year: 2026, Month: time.October}: 2}, months)
}
