package enrollment

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/internal/repository/memory"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
	"github.com/jwalitptl/health-enrollment/pkg/metrics"
	"github.com/jwalitptl/health-enrollment/pkg/validator"
)

var today = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

type recordingBroker struct {
	mu       sync.Mutex
	channels []string
	events   []model.EnrollmentEvent
	err      error
}

func (b *recordingBroker) Publish(_ context.Context, channel string, msg interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.channels = append(b.channels, channel)
	b.events = append(b.events, msg.(model.EnrollmentEvent))
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, stderrors.New("not supported")
}

func (b *recordingBroker) Close() error { return nil }

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

type fixture struct {
	store   *memory.Store
	svc     *Service
	broker  *recordingBroker
	reports *countingInvalidator
	metrics *metrics.Metrics

	client *model.Client
	hiv    *model.HealthProgram
	tb     *model.HealthProgram
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:   memory.NewStore(memory.WithClock(clock)),
		broker:  &recordingBroker{},
		reports: &countingInvalidator{},
		metrics: metrics.New("test"),
	}
	f.svc = NewService(Config{
		Store:     f.store,
		Validator: validator.NewWithClock(clock),
		Broker:    f.broker,
		Reports:   f.reports,
		Metrics:   f.metrics,
		Clock:     clock,
	})

	f.client = &model.Client{
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: model.NewDate(1990, time.January, 15),
		Gender:      model.GenderMale,
		PhoneNumber: "1234567890",
		NationalID:  "ID12345",
	}
	require.NoError(t, f.store.Clients().Create(ctx, f.client))

	f.hiv = &model.HealthProgram{Name: "HIV Care"}
	f.tb = &model.HealthProgram{Name: "TB Treatment"}
	require.NoError(t, f.store.Programs().Create(ctx, f.hiv))
	require.NoError(t, f.store.Programs().Create(ctx, f.tb))
	return f
}

func (f *fixture) enrollRequest(notes string, programs ...*model.HealthProgram) *model.EnrollRequest {
	req := &model.EnrollRequest{EnrollmentDate: "2026-10-01", Notes: notes}
	for _, p := range programs {
		req.ProgramIDs = append(req.ProgramIDs, p.ID.String())
	}
	return req
}

func TestEnrollClient_CreatesOneEnrollmentPerProgram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.EnrollClient(ctx, f.client.ID, f.enrollRequest("first visit", f.hiv, f.tb))
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	records, err := f.store.Enrollments().ListByClient(ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.True(t, rec.Enrollment.IsActive)
		assert.Equal(t, "first visit", rec.Enrollment.Notes)
		assert.Equal(t, "2026-10-01", rec.Enrollment.EnrollmentDate.String())
	}

	assert.Equal(t, 1, f.reports.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.EnrollmentsWritten.WithLabelValues("created")))
}

func TestEnrollClient_IsIdempotentPerPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.EnrollClient(ctx, f.client.ID, f.enrollRequest("first", f.hiv))
	require.NoError(t, err)

	records, err := f.store.Enrollments().ListByClient(ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	original := records[0].Enrollment

	deactivate := false
	_, err = f.svc.Update(ctx, original.ID, &model.UpdateEnrollmentRequest{
		EnrollmentDate: "2026-10-01",
		IsActive:       &deactivate,
	})
	require.NoError(t, err)

	req := f.enrollRequest("second", f.hiv)
	req.EnrollmentDate = "2026-10-10"
	created, err := f.svc.EnrollClient(ctx, f.client.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	records, err = f.store.Enrollments().ListByClient(ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0].Enrollment
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.CreatedAt, got.CreatedAt)
	assert.True(t, got.IsActive, "re-enrolling reactivates")
	assert.Equal(t, "second", got.Notes)
	assert.Equal(t, "2026-10-10", got.EnrollmentDate.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EnrollmentsWritten.WithLabelValues("updated")))
}

func TestEnrollClient_DuplicateIDsInOneRequestCollapse(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.EnrollClient(context.Background(), f.client.ID, f.enrollRequest("", f.hiv, f.hiv))
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	n, err := f.store.Enrollments().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnrollClient_UnknownProgramRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := uuid.New()
	req := f.enrollRequest("", f.hiv)
	req.ProgramIDs = append(req.ProgramIDs, missing.String())

	_, err := f.svc.EnrollClient(ctx, f.client.ID, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Contains(t, err.Error(), missing.String())

	n, err := f.store.Enrollments().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.broker.events)
	assert.Zero(t, f.reports.calls)
}

func TestEnrollClient_UnknownClient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.EnrollClient(context.Background(), uuid.New(), f.enrollRequest("", f.hiv))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Contains(t, err.Error(), "client")
}

func TestEnrollClient_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.EnrollClient(context.Background(), f.client.ID, &model.EnrollRequest{
		ProgramIDs:     []string{"not-a-uuid"},
		EnrollmentDate: "01/10/2026",
	})
	require.Error(t, err)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "program_ids")
	assert.Contains(t, appErr.Fields, "enrollment_date")
}

func TestEnrollClient_EmptyProgramList(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.EnrollClient(context.Background(), f.client.ID, &model.EnrollRequest{
		EnrollmentDate: "2026-10-01",
	})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "program_ids")
}

func TestBulkEnroll(t *testing.T) {
	f := newFixture(t)

	req := &model.BulkEnrollRequest{
		ClientID:      f.client.ID.String(),
		EnrollRequest: *f.enrollRequest("bulk", f.hiv, f.tb),
	}
	created, err := f.svc.BulkEnroll(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	_, err = f.svc.BulkEnroll(context.Background(), &model.BulkEnrollRequest{
		EnrollRequest: *f.enrollRequest("", f.hiv),
	})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "client_id")
}

func TestEnroll_PublishesEventsAfterCommit(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.EnrollClient(context.Background(), f.client.ID, f.enrollRequest("", f.hiv))
	require.NoError(t, err)

	require.Len(t, f.broker.events, 1)
	event := f.broker.events[0]
	assert.Equal(t, "enrollments", f.broker.channels[0])
	assert.Equal(t, EventUpserted, event.Type)
	assert.Equal(t, f.client.ID, event.ClientID)
	assert.Equal(t, f.hiv.ID, event.ProgramID)
	assert.NotEqual(t, uuid.Nil, event.EnrollmentID)
	assert.True(t, event.Created)
	assert.Equal(t, "2026-10-15T09:00:00Z", event.OccurredAt)
}

func TestEnroll_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.broker.err = stderrors.New("broker down")

	created, err := f.svc.EnrollClient(context.Background(), f.client.ID, f.enrollRequest("", f.hiv))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues("failed")))
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)
	active := true

	_, err := f.svc.Update(context.Background(), uuid.New(), &model.UpdateEnrollmentRequest{
		EnrollmentDate: "2026-10-01",
		IsActive:       &active,
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpdate_RequiresActiveFlag(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), uuid.New(), &model.UpdateEnrollmentRequest{
		EnrollmentDate: "2026-10-01",
	})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "is_active")
}

type acceptAll struct{}

func (acceptAll) Validate(interface{}) error { return nil }

func TestUnvalidatedInputIsRejectedBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewService(Config{Store: f.store, Validator: acceptAll{}, Clock: clock})

	_, err := svc.EnrollClient(ctx, f.client.ID, &model.EnrollRequest{
		ProgramIDs:     []string{f.hiv.ID.String()},
		EnrollmentDate: "not-a-date",
	})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "enrollment_date")

	_, err = svc.BulkEnroll(ctx, &model.BulkEnrollRequest{
		ClientID: f.client.ID.String(),
		EnrollRequest: model.EnrollRequest{
			ProgramIDs:     []string{"tb"},
			EnrollmentDate: "2026-10-01",
		},
	})
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "program_ids")

	n, err := f.store.Enrollments().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	active := true
	_, err = svc.Update(ctx, uuid.New(), &model.UpdateEnrollmentRequest{
		EnrollmentDate: "2026-13-40",
		IsActive:       &active,
	})
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "enrollment_date")

	_, err = svc.Update(ctx, uuid.New(), &model.UpdateEnrollmentRequest{EnrollmentDate: "2026-10-01"})
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "is_active")
}

func TestAvailablePrograms_ExcludesInactiveEnrollmentsToo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	available, err := f.svc.AvailablePrograms(ctx, f.client.ID)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	_, err = f.svc.EnrollClient(ctx, f.client.ID, f.enrollRequest("", f.hiv))
	require.NoError(t, err)

	records, err := f.store.Enrollments().ListByClient(ctx, f.client.ID)
	require.NoError(t, err)
	inactive := false
	_, err = f.svc.Update(ctx, records[0].Enrollment.ID, &model.UpdateEnrollmentRequest{
		EnrollmentDate: "2026-10-01",
		IsActive:       &inactive,
	})
	require.NoError(t, err)

	available, err = f.svc.AvailablePrograms(ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, f.tb.ID, available[0].ID)

	_, err = f.svc.AvailablePrograms(ctx, uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
