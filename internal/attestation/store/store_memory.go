// Package store keeps attestation records keyed by an external subject ID.
// Records carry only commitment-level data.
package store

import (
	"context"
	"sync"

	"zkattest/internal/attestation/models"
	"zkattest/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, record models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SubjectID] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, subjectID string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[subjectID]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return record, nil
}
