// Package memory provides an in-process transactional store used by tests
// and by ephemeral deployments started with storage.driver=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/internal/repository"
)

type state struct {
	clients     map[uuid.UUID]model.Client
	programs    map[uuid.UUID]model.HealthProgram
	enrollments map[uuid.UUID]model.Enrollment
	lastTick    time.Time
}

func newState() *state {
	return &state{
		clients:     map[uuid.UUID]model.Client{},
		programs:    map[uuid.UUID]model.HealthProgram{},
		enrollments: map[uuid.UUID]model.Enrollment{},
	}
}

// clone copies the maps. Rows hold only value fields so a shallow copy of
// each row is a deep copy.
func (s *state) clone() *state {
	c := &state{
		clients:     make(map[uuid.UUID]model.Client, len(s.clients)),
		programs:    make(map[uuid.UUID]model.HealthProgram, len(s.programs)),
		enrollments: make(map[uuid.UUID]model.Enrollment, len(s.enrollments)),
		lastTick:    s.lastTick,
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.programs {
		c.programs[k] = v
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	return c
}

// Store keeps all rows in maps guarded by a single lock. Transactions hold
// the write lock for their whole duration and work on a copy of the state
// that replaces the committed state only when the callback succeeds.
type Store struct {
	mu    sync.RWMutex
	data  *state
	inTx  bool
	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for row timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{data: newState(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Clients() repository.ClientRepository {
	return &clientRepository{s: s}
}

func (s *Store) Programs() repository.ProgramRepository {
	return &programRepository{s: s}
}

func (s *Store) Enrollments() repository.EnrollmentRepository {
	return &enrollmentRepository{s: s}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{data: s.data.clone(), inTx: true, clock: s.clock}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// tick returns a strictly increasing timestamp so that rows written in the
// same instant keep their insertion order. Callers hold the write lock.
func (s *Store) tick() time.Time {
	now := s.clock().UTC()
	if !now.After(s.data.lastTick) {
		now = s.data.lastTick.Add(time.Microsecond)
	}
	s.data.lastTick = now
	return now
}
