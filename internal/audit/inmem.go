package audit

import (
	"context"
	"sync"
)

// InMemoryStore is an append-only slice-backed Store for tests and local
// bootstrapping.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
	// FailWith, when set, makes Insert fail to exercise gap reporting.
	FailWith error
}

// NewInMemoryStore constructs an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Insert appends one record.
func (s *InMemoryStore) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.records = append(s.records, rec)
	return nil
}

// List returns a window of records, newest first.
func (s *InMemoryStore) List(ctx context.Context, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if q.Actor != 0 && rec.ActingUserID != q.Actor {
			continue
		}
		if q.Action != "" && rec.Action != q.Action {
			continue
		}
		if !q.From.IsZero() && rec.Timestamp.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && rec.Timestamp.After(q.To) {
			continue
		}
		matched = append(matched, rec)
	}
	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// All returns every stored record in insertion order.
func (s *InMemoryStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

var _ Store = (*InMemoryStore)(nil)
