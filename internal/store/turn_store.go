package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTurnNotFound = errors.New("turn not found")
)

const defaultTurnCapacity = 500

// TurnRecord summarizes one answered chat turn for diagnostics.
type TurnRecord struct {
	ID         string    `json:"turn_id"`
	Question   string    `json:"question"`
	Stage      string    `json:"stage"`
	Path       string    `json:"path,omitempty"`
	Status     string    `json:"status,omitempty"`
	Rows       int       `json:"rows"`
	Charts     int       `json:"charts"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

type TurnStore interface {
	Begin(ctx context.Context, question string) string
	Finish(ctx context.Context, record TurnRecord) error
	Get(ctx context.Context, turnID string) (TurnRecord, error)
}

// inMemoryTurnStore keeps the most recent turns, evicting the oldest first.
type inMemoryTurnStore struct {
	turns    map[string]TurnRecord
	order    []string
	capacity int
	mu       sync.RWMutex
	now      func() time.Time
}

func NewInMemoryTurnStore() TurnStore {
	return newInMemoryTurnStore(defaultTurnCapacity, time.Now)
}

func newInMemoryTurnStore(capacity int, now func() time.Time) *inMemoryTurnStore {
	return &inMemoryTurnStore{
		turns:    make(map[string]TurnRecord),
		capacity: capacity,
		now:      now,
	}
}

func (s *inMemoryTurnStore) Begin(ctx context.Context, question string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.turns[id] = TurnRecord{ID: id, Question: question, Stage: "started", StartedAt: s.now()}
	s.order = append(s.order, id)
	for len(s.order) > s.capacity {
		delete(s.turns, s.order[0])
		s.order = s.order[1:]
	}
	return id
}

func (s *inMemoryTurnStore) Finish(ctx context.Context, record TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.turns[record.ID]
	if !ok {
		return ErrTurnNotFound
	}
	record.Question = existing.Question
	record.StartedAt = existing.StartedAt
	record.FinishedAt = s.now()
	s.turns[record.ID] = record
	return nil
}

func (s *inMemoryTurnStore) Get(ctx context.Context, turnID string) (TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.turns[turnID]; ok {
		return t, nil
	}
	return TurnRecord{}, ErrTurnNotFound
}
