package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"earnings/models"
)

// Memory is an in-process Store used by tests and local tooling.
type Memory struct {
	mu     sync.Mutex
	rows   map[uint]models.Earning
	nextID uint
	fail   error
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[uint]models.Earning), nextID: 1}
}

// FailWith makes every following session call return err. Pass nil to heal.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *Memory) Session(ctx context.Context) Session {
	return &memSession{m: m, ctx: ctx}
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fail
}

func (m *Memory) Close() error { return nil }

// ResetSequence restarts id assignment at 1. The store must be empty.
func (m *Memory) ResetSequence(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) > 0 {
		return fmt.Errorf("reset ids: %d rows still present", len(m.rows))
	}
	m.nextID = 1
	return nil
}

// sorted returns rows ordered like the Postgres listing: date desc, id desc.
func (m *Memory) sorted(keep func(models.Earning) bool) []models.Earning {
	out := make([]models.Earning, 0, len(m.rows))
	for _, r := range m.rows {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[j].Date.Before(out[i].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

type memSession struct {
	m      *Memory
	ctx    context.Context
	closed bool
}

// begin locks the store and checks the session is still usable. Callers
// must unlock m.mu when err is nil.
func (s *memSession) begin() error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	if s.m.fail != nil {
		err := s.m.fail
		s.m.mu.Unlock()
		return err
	}
	return nil
}

func (s *memSession) List() ([]models.Earning, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.m.mu.Unlock()
	return s.m.sorted(nil), nil
}

func (s *memSession) ListRange(start, end models.Date) ([]models.Earning, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.m.mu.Unlock()
	return s.m.sorted(func(e models.Earning) bool {
		return !e.Date.Before(start) && !end.Before(e.Date)
	}), nil
}

func (s *memSession) Get(id uint) (models.Earning, error) {
	if err := s.begin(); err != nil {
		return models.Earning{}, err
	}
	defer s.m.mu.Unlock()
	e, ok := s.m.rows[id]
	if !ok {
		return models.Earning{}, ErrNotFound
	}
	return e, nil
}

func (s *memSession) Create(e *models.Earning) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.m.mu.Unlock()
	e.ID = s.m.nextID
	s.m.nextID++
	s.m.rows[e.ID] = *e
	return nil
}

func (s *memSession) CreateAll(es []models.Earning) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.m.mu.Unlock()
	for i := range es {
		es[i].ID = s.m.nextID
		s.m.nextID++
		s.m.rows[es[i].ID] = es[i]
	}
	return nil
}

func (s *memSession) Delete(id uint) (int64, error) {
	if err := s.begin(); err != nil {
		return 0, err
	}
	defer s.m.mu.Unlock()
	if _, ok := s.m.rows[id]; !ok {
		return 0, nil
	}
	delete(s.m.rows, id)
	return 1, nil
}

func (s *memSession) Clear() (int64, error) {
	if err := s.begin(); err != nil {
		return 0, err
	}
	defer s.m.mu.Unlock()
	n := int64(len(s.m.rows))
	s.m.rows = make(map[uint]models.Earning)
	return n, nil
}

func (s *memSession) Stats() (models.Stats, error) {
	if err := s.begin(); err != nil {
		return models.Stats{}, err
	}
	defer s.m.mu.Unlock()
	return models.Summarize(s.m.sorted(nil)), nil
}

func (s *memSession) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return nil
}
