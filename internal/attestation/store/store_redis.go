package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zkattest/internal/attestation/models"
	"zkattest/pkg/platform/sentinel"
)

const recordKeyPrefix = "attestation:record:"

// RedisStore keeps records as JSON values. A zero TTL keeps them forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Upsert(ctx context.Context, record models.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal attestation record: %w", err)
	}
	if err := s.client.Set(ctx, recordKeyPrefix+record.SubjectID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("upsert attestation record: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, subjectID string) (models.Record, error) {
	payload, err := s.client.Get(ctx, recordKeyPrefix+subjectID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("get attestation record: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	var record models.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal attestation record: %w", err)
	}
	return record, nil
}
