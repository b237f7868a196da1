package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

type enrollmentRepository struct {
	s *Store
}

func (r *enrollmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Enrollment, error) {
	defer r.s.rlock()()

	e, ok := r.s.data.enrollments[id]
	if !ok {
		return nil, errors.NotFound("enrollment", nil)
	}
	return &e, nil
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *model.Enrollment) error {
	defer r.s.lock()()

	existing, ok := r.s.data.enrollments[enrollment.ID]
	if !ok {
		return errors.NotFound("enrollment", nil)
	}
	// the pair is immutable once created
	enrollment.ClientID = existing.ClientID
	enrollment.ProgramID = existing.ProgramID
	enrollment.CreatedAt = existing.CreatedAt
	enrollment.UpdatedAt = r.s.tick()
	r.s.data.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r *enrollmentRepository) Upsert(ctx context.Context, enrollment *model.Enrollment) (bool, error) {
	defer r.s.lock()()

	if _, ok := r.s.data.clients[enrollment.ClientID]; !ok {
		return false, errors.NotFound(fmt.Sprintf("client %s", enrollment.ClientID), nil)
	}
	if _, ok := r.s.data.programs[enrollment.ProgramID]; !ok {
		return false, errors.NotFound(fmt.Sprintf("program %s", enrollment.ProgramID), nil)
	}

	now := r.s.tick()
	for id, existing := range r.s.data.enrollments {
		if existing.ClientID != enrollment.ClientID || existing.ProgramID != enrollment.ProgramID {
			continue
		}
		existing.EnrollmentDate = enrollment.EnrollmentDate
		existing.Notes = enrollment.Notes
		existing.IsActive = true
		existing.UpdatedAt = now
		r.s.data.enrollments[id] = existing
		*enrollment = existing
		return false, nil
	}

	enrollment.Base = model.Base{}
	enrollment.Touch(now)
	enrollment.IsActive = true
	r.s.data.enrollments[enrollment.ID] = *enrollment
	return true, nil
}

func (r *enrollmentRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.EnrollmentRecord, error) {
	defer r.s.rlock()()
	return r.records(func(e model.Enrollment) bool { return e.ClientID == clientID }, byEnrollmentDate), nil
}

func (r *enrollmentRepository) ListByProgram(ctx context.Context, programID uuid.UUID) ([]*model.EnrollmentRecord, error) {
	defer r.s.rlock()()
	return r.records(func(e model.Enrollment) bool { return e.ProgramID == programID }, byEnrollmentDate), nil
}

func (r *enrollmentRepository) ListAll(ctx context.Context) ([]*model.EnrollmentRecord, error) {
	defer r.s.rlock()()
	return r.records(func(model.Enrollment) bool { return true }, byCreatedAt), nil
}

func byEnrollmentDate(a, b *model.Enrollment) int {
	if c := b.EnrollmentDate.Compare(a.EnrollmentDate.Time); c != 0 {
		return c
	}
	return byCreatedAt(a, b)
}

func byCreatedAt(a, b *model.Enrollment) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

func (r *enrollmentRepository) records(keep func(model.Enrollment) bool, cmp func(a, b *model.Enrollment) int) []*model.EnrollmentRecord {
	var out []*model.EnrollmentRecord
	for _, e := range r.s.data.enrollments {
		if !keep(e) {
			continue
		}
		c, okC := r.s.data.clients[e.ClientID]
		p, okP := r.s.data.programs[e.ProgramID]
		if !okC || !okP {
			continue
		}
		e := e
		out = append(out, &model.EnrollmentRecord{Enrollment: &e, Client: &c, Program: &p})
	}
	sort.Slice(out, func(i, j int) bool {
		return cmp(out[i].Enrollment, out[j].Enrollment) < 0
	})
	return out
}

func (r *enrollmentRepository) Count(ctx context.Context) (int, error) {
	defer r.s.rlock()()
	return len(r.s.data.enrollments), nil
}

func (r *enrollmentRepository) CountByProgram(ctx context.Context) ([]model.ProgramCount, error) {
	defer r.s.rlock()()

	counts := make(map[uuid.UUID]int, len(r.s.data.programs))
	for _, e := range r.s.data.enrollments {
		counts[e.ProgramID]++
	}

	out := make([]model.ProgramCount, 0, len(r.s.data.programs))
	for id, p := range r.s.data.programs {
		out = append(out, model.ProgramCount{ProgramID: id, ProgramName: p.Name, Count: counts[id]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].ProgramName != out[j].ProgramName {
			return out[i].ProgramName < out[j].ProgramName
		}
		return strings.Compare(out[i].ProgramID.String(), out[j].ProgramID.String()) < 0
	})
	return out, nil
}

func (r *enrollmentRepository) CountByMonth(ctx context.Context, from, to time.Time) (map[model.MonthKey]int, error) {
	defer r.s.rlock()()

	counts := make(map[model.MonthKey]int)
	for _, e := range r.s.data.enrollments {
		d := e.EnrollmentDate.Time
		if d.Before(from) || !d.Before(to) {
			continue
		}
		counts[model.MonthKeyOf(d)]++
	}
	return counts, nil
}
