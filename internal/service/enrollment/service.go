package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/internal/repository"
	"github.com/jwalitptl/health-enrollment/internal/service"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
	"github.com/jwalitptl/health-enrollment/pkg/messaging"
	"github.com/jwalitptl/health-enrollment/pkg/metrics"
	"github.com/jwalitptl/health-enrollment/pkg/validator"
)

// EventUpserted is the event type published for every written enrollment.
const EventUpserted = "enrollment.upserted"

type Service struct {
	store    repository.Store
	validate validator.Validator
	broker   messaging.Broker
	channel  string
	reports  service.Invalidator
	metrics  *metrics.Metrics
	clock    service.Clock
}

type Config struct {
	Store     repository.Store
	Validator validator.Validator
	// Broker receives enrollment events after commit. Nil disables publishing.
	Broker  messaging.Broker
	Channel string
	Reports service.Invalidator
	Metrics *metrics.Metrics
	Clock   service.Clock
}

func NewService(cfg Config) *Service {
	s := &Service{
		store:    cfg.Store,
		validate: cfg.Validator,
		broker:   cfg.Broker,
		channel:  cfg.Channel,
		reports:  cfg.Reports,
		metrics:  cfg.Metrics,
		clock:    cfg.Clock,
	}
	if s.broker == nil {
		s.broker = messaging.NopBroker{}
	}
	if s.channel == "" {
		s.channel = "enrollments"
	}
	if s.reports == nil {
		s.reports = service.Nop{}
	}
	return s
}

type written struct {
	enrollment model.Enrollment
	created    bool
}

// Enroll upserts one enrollment per program in a single transaction and
// returns how many were newly created. An unknown client or program
// aborts the whole request before anything is committed.
func (s *Service) Enroll(ctx context.Context, cmd model.EnrollCommand) (int, error) {
	var results []written

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		results = results[:0]

		if _, err := tx.Clients().Get(ctx, cmd.ClientID); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.NotFound(fmt.Sprintf("client %s", cmd.ClientID), err)
			}
			return err
		}

		programs, err := tx.Programs().GetMany(ctx, cmd.ProgramIDs)
		if err != nil {
			return err
		}
		for _, id := range cmd.ProgramIDs {
			if _, ok := programs[id]; !ok {
				return errors.NotFound(fmt.Sprintf("program %s", id), nil)
			}
		}

		for _, programID := range cmd.ProgramIDs {
			e := &model.Enrollment{
				ClientID:       cmd.ClientID,
				ProgramID:      programID,
				EnrollmentDate: cmd.EnrollmentDate,
				Notes:          cmd.Notes,
				IsActive:       true,
			}
			created, err := tx.Enrollments().Upsert(ctx, e)
			if err != nil {
				return err
			}
			results = append(results, written{enrollment: *e, created: created})
		}
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return 0, err
		}
		return 0, fmt.Errorf("failed to enroll client: %w", err)
	}

	created := 0
	for _, r := range results {
		if r.created {
			created++
		}
	}

	s.reports.Invalidate()
	s.record(results)
	s.publish(ctx, results)

	log.Info().
		Str("client_id", cmd.ClientID.String()).
		Int("programs", len(cmd.ProgramIDs)).
		Int("created", created).
		Msg("client enrolled")
	return created, nil
}

// EnrollClient validates the client enrollment form and runs Enroll.
func (s *Service) EnrollClient(ctx context.Context, clientID uuid.UUID, req *model.EnrollRequest) (int, error) {
	if err := s.validate.Validate(req); err != nil {
		return 0, err
	}
	cmd, err := model.NewEnrollCommand(clientID, req)
	if err != nil {
		return 0, err
	}
	return s.Enroll(ctx, cmd)
}

// BulkEnroll validates the direct enrollment form naming the client.
func (s *Service) BulkEnroll(ctx context.Context, req *model.BulkEnrollRequest) (int, error) {
	if err := s.validate.Validate(req); err != nil {
		return 0, err
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return 0, errors.FieldError("client_id", "Select a valid client.")
	}
	cmd, err := model.NewEnrollCommand(clientID, &req.EnrollRequest)
	if err != nil {
		return 0, err
	}
	return s.Enroll(ctx, cmd)
}

// Update overwrites date, notes and active flag of one enrollment.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateEnrollmentRequest) (*model.Enrollment, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	date, err := model.ParseDate(req.EnrollmentDate)
	if err != nil {
		return nil, errors.FieldError("enrollment_date", "Enter a valid date (YYYY-MM-DD).")
	}
	if req.IsActive == nil {
		return nil, errors.FieldError("is_active", "This field is required.")
	}

	var enrollment *model.Enrollment
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Enrollments().Get(ctx, id)
		if err != nil {
			return err
		}
		existing.EnrollmentDate = date
		existing.IsActive = *req.IsActive
		existing.Notes = req.Notes
		enrollment = existing
		return tx.Enrollments().Update(ctx, existing)
	})
	if err != nil {
		return nil, err
	}

	s.reports.Invalidate()
	s.publish(ctx, []written{{enrollment: *enrollment}})
	return enrollment, nil
}

// AvailablePrograms lists programs the client has no enrollment in,
// active or not.
func (s *Service) AvailablePrograms(ctx context.Context, clientID uuid.UUID) ([]*model.HealthProgram, error) {
	if _, err := s.store.Clients().Get(ctx, clientID); err != nil {
		return nil, err
	}
	programs, err := s.store.Programs().ListAvailableForClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available programs: %w", err)
	}
	return programs, nil
}

func (s *Service) record(results []written) {
	if s.metrics == nil {
		return
	}
	for _, r := range results {
		outcome := "updated"
		if r.created {
			outcome = "created"
		}
		s.metrics.EnrollmentsWritten.WithLabelValues(outcome).Inc()
	}
}

// publish hands events to the broker. The enrollment is already committed,
// so failures are logged and counted but never returned.
func (s *Service) publish(ctx context.Context, results []written) {
	occurred := s.clock.Now().UTC().Format(time.RFC3339)
	for _, r := range results {
		event := model.EnrollmentEvent{
			Type:         EventUpserted,
			EnrollmentID: r.enrollment.ID,
			ClientID:     r.enrollment.ClientID,
			ProgramID:    r.enrollment.ProgramID,
			Created:      r.created,
			OccurredAt:   occurred,
		}

		status := "ok"
		if err := s.broker.Publish(ctx, s.channel, event); err != nil {
			status = "failed"
			log.Warn().Err(err).
				Str("enrollment_id", r.enrollment.ID.String()).
				Msg("failed to publish enrollment event")
		}
		if s.metrics != nil {
			s.metrics.EventsPublished.WithLabelValues(status).Inc()
		}
	}
}
