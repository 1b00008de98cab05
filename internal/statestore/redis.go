// Package statestore persists open positions in Redis so a restart can
// restore them instead of orphaning live holdings. When Redis is
// unavailable it falls back to an in-memory cache so trading continues
// without interruption.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/position"
)

const (
	// positionKeyPrefix keys individual positions: fade:position:{tokenID}
	positionKeyPrefix = "fade:position"

	// positionSetKey holds the token ids of all open positions.
	positionSetKey = "fade:positions:open"

	// positionTTL bounds stale state. 15-minute markets settle within the
	// hour; a day-old key is garbage.
	positionTTL = 24 * time.Hour
)

// Store saves and restores the open-position set.
type Store struct {
	client         *redis.Client
	cache          map[string]*position.Position
	cacheMu        sync.RWMutex
	redisAvailable atomic.Bool
	logger         zerolog.Logger
}

// New creates a store. With cfg.Enabled false, or when Redis cannot be
// reached, the store runs purely in memory.
func New(cfg config.RedisConfig, logger zerolog.Logger) *Store {
	s := &Store{
		cache:  make(map[string]*position.Position),
		logger: logger,
	}

	if !cfg.Enabled {
		logger.Info().Msg("position state store running in memory only")
		return s
	}

	s.client = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, falling back to in-memory position state")
	} else {
		s.redisAvailable.Store(true)
		logger.Info().Str("address", cfg.Address).Msg("position state store connected to redis")
	}
	return s
}

func positionKey(tokenID string) string {
	return fmt.Sprintf("%s:%s", positionKeyPrefix, tokenID)
}

// Save persists one open position.
func (s *Store) Save(ctx context.Context, pos *position.Position) error {
	s.cacheMu.Lock()
	s.cache[pos.TokenID] = pos
	s.cacheMu.Unlock()

	if !s.redisAvailable.Load() {
		return nil
	}

	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position state: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, positionKey(pos.TokenID), data, positionTTL)
	pipe.SAdd(ctx, positionSetKey, pos.TokenID)
	pipe.Expire(ctx, positionSetKey, positionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.markUnavailable(err)
	}
	return nil
}

// Delete removes a position after it closes.
func (s *Store) Delete(ctx context.Context, tokenID string) error {
	s.cacheMu.Lock()
	delete(s.cache, tokenID)
	s.cacheMu.Unlock()

	if !s.redisAvailable.Load() {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, positionKey(tokenID))
	pipe.SRem(ctx, positionSetKey, tokenID)
	if _, err := pipe.Exec(ctx); err != nil {
		s.markUnavailable(err)
	}
	return nil
}

// LoadAll returns every persisted open position. When Redis is the backing
// store a read failure is returned to the caller; the in-memory cache only
// answers when Redis was never available, since on a fresh process it is
// empty and would silently orphan live holdings.
func (s *Store) LoadAll(ctx context.Context) ([]*position.Position, error) {
	if s.redisAvailable.Load() {
		positions, err := s.loadFromRedis(ctx)
		if err != nil {
			s.markUnavailable(err)
			return nil, fmt.Errorf("load position state from redis: %w", err)
		}
		return positions, nil
	}

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	positions := make([]*position.Position, 0, len(s.cache))
	for _, pos := range s.cache {
		positions = append(positions, pos)
	}
	return positions, nil
}

func (s *Store) loadFromRedis(ctx context.Context) ([]*position.Position, error) {
	tokenIDs, err := s.client.SMembers(ctx, positionSetKey).Result()
	if err != nil {
		return nil, err
	}

	var positions []*position.Position
	for _, tokenID := range tokenIDs {
		data, err := s.client.Get(ctx, positionKey(tokenID)).Bytes()
		if err == redis.Nil {
			s.client.SRem(ctx, positionSetKey, tokenID)
			continue
		}
		if err != nil {
			return nil, err
		}
		var pos position.Position
		if err := json.Unmarshal(data, &pos); err != nil {
			s.logger.Warn().Err(err).Str("token_id", tokenID).Msg("dropping corrupt position state")
			continue
		}
		positions = append(positions, &pos)
	}
	return positions, nil
}

func (s *Store) markUnavailable(err error) {
	if s.redisAvailable.CompareAndSwap(true, false) {
		s.logger.Warn().Err(err).Msg("redis error, switching position state to in-memory cache")
	}
}

// Close releases the Redis client.
func (s *Store) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
