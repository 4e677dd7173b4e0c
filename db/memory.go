package db

import (
	"context"
	"sync"
	"time"

	"pricecast/ml"
)

// MemoryStore is an in-process Store for tests and --use-memory runs.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []PredictionRecord
	nextID int64
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store whose IDs start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, rec ml.FeatureRecord, prediction float64) error {
	if err := ctx.Err(); err != nil {
		return persistErr("save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, PredictionRecord{
		ID:             s.nextID,
		Features:       rec,
		PredictedPrice: prediction,
		PredictionDate: s.now().UTC(),
	})
	s.nextID++
	return nil
}

// LoadHistory returns copies, newest first. Rows are appended in id order, so
// walking backwards gives date DESC, id DESC.
func (s *MemoryStore) LoadHistory(ctx context.Context) ([]PredictionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistErr("load history", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]PredictionRecord, 0, len(s.rows))
	for i := len(s.rows) - 1; i >= 0; i-- {
		history = append(history, s.rows[i])
	}
	return history, nil
}

func (s *MemoryStore) Close() error { return nil }
