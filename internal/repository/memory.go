package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/foodscan/foodscan-api/internal/domain"
)

// MemoryScanStore keeps scan results in process memory. Used in tests and for
// running the API without a database.
type MemoryScanStore struct {
	mu      sync.RWMutex
	results map[string][]byte
}

func NewMemoryScanStore() *MemoryScanStore {
	return &MemoryScanStore{
		results: make(map[string][]byte),
	}
}

// Save stores a deep copy so callers cannot mutate persisted state.
func (s *MemoryScanStore) Save(ctx context.Context, result *domain.ScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.ID]; exists {
		return fmt.Errorf("scan result %s already exists", result.ID)
	}
	s.results[result.ID] = payload
	return nil
}

// GetByID returns the stored scan result, or (nil, nil) when none exists.
func (s *MemoryScanStore) GetByID(ctx context.Context, id string) (*domain.ScanResult, error) {
	s.mu.RLock()
	payload, ok := s.results[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var result domain.ScanResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan result: %w", err)
	}
	return &result, nil
}
