package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

type clientRepository struct {
	s *Store
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	defer r.s.lock()()

	if r.nationalIDTaken(client.NationalID, uuid.Nil) {
		return errors.NewConflict("client with this national ID already exists", nil)
	}
	client.Base = model.Base{}
	client.Touch(r.s.tick())
	r.s.data.clients[client.ID] = *client
	return nil
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	defer r.s.rlock()()

	c, ok := r.s.data.clients[id]
	if !ok {
		return nil, errors.NotFound("client", nil)
	}
	return &c, nil
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	defer r.s.lock()()

	existing, ok := r.s.data.clients[client.ID]
	if !ok {
		return errors.NotFound("client", nil)
	}
	if r.nationalIDTaken(client.NationalID, client.ID) {
		return errors.NewConflict("client with this national ID already exists", nil)
	}
	client.CreatedAt = existing.CreatedAt
	client.UpdatedAt = r.s.tick()
	r.s.data.clients[client.ID] = *client
	return nil
}

func (r *clientRepository) List(ctx context.Context, filter model.ClientFilter) ([]*model.Client, int, error) {
	defer r.s.rlock()()

	var matched []*model.Client
	for _, c := range r.s.data.clients {
		if filter.Gender != "" && c.Gender != filter.Gender {
			continue
		}
		if !containsFold(filter.Search, c.FirstName, c.LastName, c.NationalID, c.PhoneNumber, c.Email) {
			continue
		}
		c := c
		matched = append(matched, &c)
	}

	sortClients(matched, model.ParseOrdering(filter.Ordering, model.ClientOrderFields, model.DefaultOrdering))
	return paginate(matched, filter.ListParams), len(matched), nil
}

func (r *clientRepository) ExistsNationalID(ctx context.Context, nationalID string, excludeID uuid.UUID) (bool, error) {
	defer r.s.rlock()()
	return r.nationalIDTaken(nationalID, excludeID), nil
}

func (r *clientRepository) nationalIDTaken(nationalID string, excludeID uuid.UUID) bool {
	for id, c := range r.s.data.clients {
		if id != excludeID && c.NationalID == nationalID {
			return true
		}
	}
	return false
}

func (r *clientRepository) Count(ctx context.Context) (int, error) {
	defer r.s.rlock()()
	return len(r.s.data.clients), nil
}

func (r *clientRepository) Recent(ctx context.Context, limit int) ([]*model.Client, error) {
	defer r.s.rlock()()

	all := make([]*model.Client, 0, len(r.s.data.clients))
	for _, c := range r.s.data.clients {
		c := c
		all = append(all, &c)
	}
	sortClients(all, model.DefaultOrdering)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *clientRepository) ListByProgram(ctx context.Context, programID uuid.UUID) ([]*model.Client, error) {
	defer r.s.rlock()()

	seen := make(map[uuid.UUID]bool)
	var clients []*model.Client
	for _, e := range r.s.data.enrollments {
		if e.ProgramID != programID || seen[e.ClientID] {
			continue
		}
		c, ok := r.s.data.clients[e.ClientID]
		if !ok {
			continue
		}
		seen[e.ClientID] = true
		clients = append(clients, &c)
	}

	sort.Slice(clients, func(i, j int) bool {
		a, b := clients[i], clients[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return compareIDs(a.ID, b.ID) < 0
	})
	return clients, nil
}
