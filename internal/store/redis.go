package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

// resolveAttempts bounds optimistic-transaction retries when a concurrent
// writer touches the same key.
const resolveAttempts = 3

// RedisStore persists incidents as JSON blobs keyed by incident ID, with the
// record's TTL applied as the key expiry and a per-scenario set indexing the
// OPEN incidents for the scheduler's query.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies connectivity.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client (used by tests).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func incidentKey(id string) string {
	return "incident:" + id
}

func openSetKey(scenario models.Scenario) string {
	return "incidents:open:" + string(scenario)
}

func (s *RedisStore) Put(ctx context.Context, inc *models.Incident) error {
	data, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, incidentKey(inc.IncidentID), data, 0)
	if inc.TTL > 0 {
		pipe.ExpireAt(ctx, incidentKey(inc.IncidentID), time.Unix(inc.TTL, 0))
	}
	if inc.Status == models.StatusOpen {
		pipe.SAdd(ctx, openSetKey(inc.Scenario), inc.IncidentID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store incident %s: %w", inc.IncidentID, err)
	}
	return nil
}

func (s *RedisStore) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	data, err := s.client.Get(ctx, incidentKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get incident %s: %w", id, err)
	}

	var inc models.Incident
	if err := json.Unmarshal([]byte(data), &inc); err != nil {
		return nil, fmt.Errorf("unmarshal incident %s: %w", id, err)
	}
	return &inc, nil
}

func (s *RedisStore) QueryOpen(ctx context.Context, scenario models.Scenario) ([]*models.Incident, error) {
	ids, err := s.client.SMembers(ctx, openSetKey(scenario)).Result()
	if err != nil {
		return nil, fmt.Errorf("list open incidents: %w", err)
	}

	out := make([]*models.Incident, 0, len(ids))
	for _, id := range ids {
		inc, err := s.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Key expired; prune the stale index entry.
			s.client.SRem(ctx, openSetKey(scenario), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if inc.Status != models.StatusOpen {
			continue
		}
		out = append(out, inc)
	}
	return out, nil
}

// Resolve performs a conditional OPEN -> RESOLVED transition under an
// optimistic WATCH transaction so concurrent scheduler runs cannot double
// apply a resolution.
func (s *RedisStore) Resolve(ctx context.Context, id string, r *models.Resolution) error {
	key := incidentKey(id)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get incident %s: %w", id, err)
		}

		var inc models.Incident
		if err := json.Unmarshal([]byte(data), &inc); err != nil {
			return fmt.Errorf("unmarshal incident %s: %w", id, err)
		}
		if inc.Status != models.StatusOpen {
			return ErrPreconditionFailed
		}

		inc.Resolve(r)
		updated, err := json.Marshal(&inc)
		if err != nil {
			return fmt.Errorf("marshal incident %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			if inc.TTL > 0 {
				pipe.ExpireAt(ctx, key, time.Unix(inc.TTL, 0))
			}
			pipe.SRem(ctx, openSetKey(inc.Scenario), id)
			return nil
		})
		return err
	}

	for i := 0; i < resolveAttempts; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrPreconditionFailed
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
