package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/internal/repository"
	"github.com/jwalitptl/health-enrollment/internal/service"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
	"github.com/jwalitptl/health-enrollment/pkg/validator"
)

const duplicateNationalID = "Client with this National ID already exists."

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

// Register validates the form and creates the client.
func (s *Service) Register(ctx context.Context, req *model.ClientRequest) (*model.ClientView, error) {
	req.Trim()
	if err := s.validateForm(ctx, req, uuid.Nil); err != nil {
		return nil, err
	}

	client := &model.Client{}
	if err := req.Apply(client); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := s.checkNationalID(ctx, tx, client.NationalID, uuid.Nil); err != nil {
			return err
		}
		return tx.Clients().Create(ctx, client)
	})
	if err != nil {
		return nil, s.writeError("register client", err)
	}

	s.reports.Invalidate()
	log.Info().Str("client_id", client.ID.String()).Msg("client registered")
	return model.NewClientView(client, s.clock.Now()), nil
}

// Update overwrites every editable field of an existing client.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.ClientRequest) (*model.ClientView, error) {
	req.Trim()
	if err := s.validateForm(ctx, req, id); err != nil {
		return nil, err
	}

	var client *model.Client
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Clients().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkNationalID(ctx, tx, req.NationalID, id); err != nil {
			return err
		}
		if err := req.Apply(existing); err != nil {
			return err
		}
		client = existing
		return tx.Clients().Update(ctx, existing)
	})
	if err != nil {
		return nil, s.writeError("update client", err)
	}

	s.reports.Invalidate()
	return model.NewClientView(client, s.clock.Now()), nil
}

// validateForm runs the field rules. When they fail, a taken national ID
// is reported in the same error so every problem surfaces at once. A
// passing form is checked again inside the write transaction.
func (s *Service) validateForm(ctx context.Context, req *model.ClientRequest, self uuid.UUID) error {
	err := s.validate.Validate(req)
	if err == nil {
		return nil
	}
	appErr, ok := errors.As(err)
	if !ok || appErr.Code != errors.ErrValidation || req.NationalID == "" {
		return err
	}
	if _, bad := appErr.Fields["national_id"]; bad {
		return err
	}

	taken, lookupErr := s.store.Clients().ExistsNationalID(ctx, req.NationalID, self)
	if lookupErr != nil {
		return fmt.Errorf("failed to check national ID: %w", lookupErr)
	}
	if !taken {
		return err
	}

	fields := make(map[string][]string, len(appErr.Fields)+1)
	for name, msgs := range appErr.Fields {
		fields[name] = msgs
	}
	fields["national_id"] = []string{duplicateNationalID}
	return errors.NewValidation(fields)
}

func (s *Service) checkNationalID(ctx context.Context, tx repository.Store, nationalID string, self uuid.UUID) error {
	taken, err := tx.Clients().ExistsNationalID(ctx, nationalID, self)
	if err != nil {
		return err
	}
	if taken {
		return errors.FieldError("national_id", duplicateNationalID)
	}
	return nil
}

// writeError reports a lost uniqueness race as the same field error the
// pre-check produces.
func (s *Service) writeError(op string, err error) error {
	if errors.Is(err, errors.ErrConflict) {
		return errors.FieldError("national_id", duplicateNationalID)
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ClientView, error) {
	client, err := s.store.Clients().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.NewClientView(client, s.clock.Now()), nil
}

// Detail returns the client with its enrollments. withAvailable adds the
// programs the client is not enrolled in.
func (s *Service) Detail(ctx context.Context, id uuid.UUID, withAvailable bool) (*model.ClientDetail, error) {
	client, err := s.store.Clients().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	records, err := s.store.Enrollments().ListByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}

	detail := &model.ClientDetail{
		ClientView:  model.NewClientView(client, s.clock.Now()),
		Enrollments: make([]*model.EnrollmentDetail, 0, len(records)),
	}
	for _, rec := range records {
		detail.Enrollments = append(detail.Enrollments, rec.WithProgram())
	}

	if withAvailable {
		available, err := s.store.Programs().ListAvailableForClient(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load available programs: %w", err)
		}
		detail.AvailablePrograms = available
	}
	return detail, nil
}

// Enrollments lists the client's enrollments, each embedding its program.
func (s *Service) Enrollments(ctx context.Context, id uuid.UUID) ([]*model.EnrollmentDetail, error) {
	if _, err := s.store.Clients().Get(ctx, id); err != nil {
		return nil, err
	}

	records, err := s.store.Enrollments().ListByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}
	out := make([]*model.EnrollmentDetail, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.WithProgram())
	}
	return out, nil
}

// List searches, filters, orders and paginates clients.
func (s *Service) List(ctx context.Context, filter model.ClientFilter) (model.Page[*model.ClientView], error) {
	filter.Normalize()
	if filter.Gender != "" && !filter.Gender.Valid() {
		return model.Page[*model.ClientView]{}, errors.FieldError("gender",
			fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", filter.Gender))
	}

	clients, total, err := s.store.Clients().List(ctx, filter)
	if err != nil {
		return model.Page[*model.ClientView]{}, fmt.Errorf("failed to list clients: %w", err)
	}
	return service.PageOf(model.ClientViews(clients, s.clock.Now()), total, filter.ListParams)
}
