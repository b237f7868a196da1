package program

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/internal/repository"
	"github.com/jwalitptl/health-enrollment/internal/service"
	"github.com/jwalitptl/health-enrollment/pkg/validator"
)

type Service struct {
	store    repository.Store
	validate validator.Validator
	reports  service.Invalidator
	clock    service.Clock
}

func NewService(store repository.Store, v validator.Validator, reports service.Invalidator, clock service.Clock) *Service {
	if reports == nil {
		reports = service.Nop{}
	}
	return &Service{
		store:    store,
		validate: v,
		reports:  reports,
		clock:    clock,
	}
}

func (s *Service) Create(ctx context.Context, req *model.ProgramRequest) (*model.HealthProgram, error) {
	req.Trim()
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	program := &model.HealthProgram{Name: req.Name, Description: req.Description}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Programs().Create(ctx, program)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	s.reports.Invalidate()
	log.Info().Str("program_id", program.ID.String()).Str("name", program.Name).Msg("program created")
	return program, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.ProgramRequest) (*model.HealthProgram, error) {
	req.Trim()
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	var program *model.HealthProgram
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Programs().Get(ctx, id)
		if err != nil {
			return err
		}
		existing.Name = req.Name
		existing.Description = req.Description
		program = existing
		return tx.Programs().Update(ctx, existing)
	})
	if err != nil {
		return nil, err
	}

	s.reports.Invalidate()
	return program, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.HealthProgram, error) {
	return s.store.Programs().Get(ctx, id)
}

// Detail returns the program with its enrollments, each embedding the client.
func (s *Service) Detail(ctx context.Context, id uuid.UUID) (*model.ProgramDetail, error) {
	program, err := s.store.Programs().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	records, err := s.store.Enrollments().ListByProgram(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}

	today := s.clock.Now()
	detail := &model.ProgramDetail{
		HealthProgram: program,
		Enrollments:   make([]*model.EnrollmentDetail, 0, len(records)),
	}
	for _, rec := range records {
		detail.Enrollments = append(detail.Enrollments, rec.WithClient(today))
	}
	return detail, nil
}

// Clients lists every client enrolled in the program once, regardless of
// how the enrollment rows look.
func (s *Service) Clients(ctx context.Context, id uuid.UUID) ([]*model.ClientView, error) {
	if _, err := s.store.Programs().Get(ctx, id); err != nil {
		return nil, err
	}

	clients, err := s.store.Clients().ListByProgram(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list program clients: %w", err)
	}
	return model.ClientViews(clients, s.clock.Now()), nil
}

func (s *Service) List(ctx context.Context, filter model.ProgramFilter) (model.Page[*model.HealthProgram], error) {
	filter.Normalize()

	programs, total, err := s.store.Programs().List(ctx, filter)
	if err != nil {
		return model.Page[*model.HealthProgram]{}, fmt.Errorf("failed to list programs: %w", err)
	}
	return service.PageOf(programs, total, filter.ListParams)
}
