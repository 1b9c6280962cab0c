// Package redisstate keeps active drug sets in Redis so several server
// instances can share them without a document database.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

const defaultMaxRetries = 10

// Store implements interfaces.ActiveDrugStore with one JSON value per
// (user, agent). Read-modify-write runs under WATCH/MULTI and is retried
// when another writer touched the key first. The key's TTL tracks the
// latest expiry, so fully expired sets disappear on their own.
type Store struct {
	client     redis.UniversalClient
	keyPrefix  string
	logger     *common.Logger
	maxRetries uint
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg common.RedisConfig, logger *common.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().
		Str("address", cfg.Address).
		Int("db", cfg.DB).
		Msg("Redis active drug store initialized")

	return NewWithClient(client, cfg.KeyPrefix, logger), nil
}

// NewWithClient creates a Store around a pre-configured client.
func NewWithClient(client redis.UniversalClient, keyPrefix string, logger *common.Logger) *Store {
	return &Store{
		client:     client,
		keyPrefix:  keyPrefix,
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}
}

func (s *Store) key(userID, agentID string) string {
	return fmt.Sprintf("%sactive_drugs:%s:%s", s.keyPrefix, userID, agentID)
}

func (s *Store) Add(ctx context.Context, userID, agentID string, entry models.ActiveDrug) error {
	key := s.key(userID, agentID)
	err := s.update(ctx, key, func(drugs []models.ActiveDrug) ([]models.ActiveDrug, bool) {
		return models.ReplaceDrug(drugs, entry), true
	})
	if err != nil {
		return fmt.Errorf("failed to add active drug: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, userID, agentID string) ([]models.ActiveDrug, error) {
	key := s.key(userID, agentID)
	stored, err := load(ctx, s.client, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list active drugs: %w", err)
	}

	active := models.FilterActive(stored, time.Now())
	if len(active) < len(stored) {
		err := s.update(ctx, key, func(drugs []models.ActiveDrug) ([]models.ActiveDrug, bool) {
			kept := models.FilterActive(drugs, time.Now())
			return kept, len(kept) < len(drugs)
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Str("agent_id", agentID).
				Msg("Failed to prune expired active drugs")
		}
	}
	return active, nil
}

func (s *Store) Clear(ctx context.Context, userID, agentID string) error {
	if err := s.client.Del(ctx, s.key(userID, agentID)).Err(); err != nil {
		return fmt.Errorf("failed to clear active drugs: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// update applies fn to the current set inside an optimistic transaction.
// fn reports whether anything changed; unchanged sets are not written.
func (s *Store) update(ctx context.Context, key string, fn func([]models.ActiveDrug) ([]models.ActiveDrug, bool)) error {
	txf := func(tx *redis.Tx) error {
		drugs, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		next, changed := fn(drugs)
		if !changed {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			ttl := setTTL(next, time.Now())
			if ttl <= 0 {
				pipe.Del(ctx, key)
				return nil
			}
			data, err := json.Marshal(next)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.client.Watch(ctx, txf, key)
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxRetries),
	)
	return err
}

func load(ctx context.Context, c redis.Cmdable, key string) ([]models.ActiveDrug, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var drugs []models.ActiveDrug
	if err := json.Unmarshal(data, &drugs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active drugs: %w", err)
	}
	return drugs, nil
}

// setTTL is the time until the latest entry expires.
func setTTL(drugs []models.ActiveDrug, now time.Time) time.Duration {
	var latest time.Time
	for _, d := range drugs {
		if d.ExpiresAt.After(latest) {
			latest = d.ExpiresAt
		}
	}
	return latest.Sub(now)
}

// Compile-time check
var _ interfaces.ActiveDrugStore = (*Store)(nil)
