package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

type programRepository struct {
	s *Store
}

func (r *programRepository) Create(ctx context.Context, program *model.HealthProgram) error {
	defer r.s.lock()()

	program.Base = model.Base{}
	program.Touch(r.s.tick())
	r.s.data.programs[program.ID] = *program
	return nil
}

func (r *programRepository) Get(ctx context.Context, id uuid.UUID) (*model.HealthProgram, error) {
	defer r.s.rlock()()

	p, ok := r.s.data.programs[id]
	if !ok {
		return nil, errors.NotFound("program", nil)
	}
	return &p, nil
}

func (r *programRepository) Update(ctx context.Context, program *model.HealthProgram) error {
	defer r.s.lock()()

	existing, ok := r.s.data.programs[program.ID]
	if !ok {
		return errors.NotFound("program", nil)
	}
	program.CreatedAt = existing.CreatedAt
	program.UpdatedAt = r.s.tick()
	r.s.data.programs[program.ID] = *program
	return nil
}

func (r *programRepository) List(ctx context.Context, filter model.ProgramFilter) ([]*model.HealthProgram, int, error) {
	defer r.s.rlock()()

	var matched []*model.HealthProgram
	for _, p := range r.s.data.programs {
		if !containsFold(filter.Search, p.Name, p.Description) {
			continue
		}
		p := p
		matched = append(matched, &p)
	}

	sortPrograms(matched, model.ParseOrdering(filter.Ordering, model.ProgramOrderFields, model.DefaultOrdering))
	return paginate(matched, filter.ListParams), len(matched), nil
}

func (r *programRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.HealthProgram, error) {
	defer r.s.rlock()()

	found := make(map[uuid.UUID]*model.HealthProgram, len(ids))
	for _, id := range ids {
		if p, ok := r.s.data.programs[id]; ok {
			found[id] = &p
		}
	}
	return found, nil
}

func (r *programRepository) ListAvailableForClient(ctx context.Context, clientID uuid.UUID) ([]*model.HealthProgram, error) {
	defer r.s.rlock()()

	enrolled := make(map[uuid.UUID]bool)
	for _, e := range r.s.data.enrollments {
		if e.ClientID == clientID {
			enrolled[e.ProgramID] = true
		}
	}

	var available []*model.HealthProgram
	for id, p := range r.s.data.programs {
		if enrolled[id] {
			continue
		}
		p := p
		available = append(available, &p)
	}
	sortPrograms(available, model.Ordering{Field: "name"})
	return available, nil
}

func (r *programRepository) Count(ctx context.Context) (int, error) {
	defer r.s.rlock()()
	return len(r.s.data.programs), nil
}

func (r *programRepository) Recent(ctx context.Context, limit int) ([]*model.HealthProgram, error) {
	defer r.s.rlock()()

	all := make([]*model.HealthProgram, 0, len(r.s.data.programs))
	for _, p := range r.s.data.programs {
		p := p
		all = append(all, &p)
	}
	sortPrograms(all, model.DefaultOrdering)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
