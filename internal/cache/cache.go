package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"romdex/internal/gamedb"
	"romdex/internal/logging"
)

// reconnectInterval is how often a degraded durable tier is probed.
const reconnectInterval = 30 * time.Second

// durable is the minimal durable-tier interface. In production this is
// backed by Redis; tests supply an in-memory stub.
type durable interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) ([]any, error)
	Ping(ctx context.Context) error
}

// ErrMiss is the sentinel a durable implementation returns for absent keys.
var ErrMiss = redis.Nil

type redisTier struct {
	client *redis.Client
}

func (r redisTier) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r redisTier) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisTier) MGet(ctx context.Context, keys ...string) ([]any, error) {
	return r.client.MGet(ctx, keys...).Result()
}

func (r redisTier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Store memoizes metadata API responses by query fingerprint. The durable
// tier is attempted first; the local tier is always written as a mirror and
// serves every read while the durable tier is degraded. Callers never see
// durable-tier errors.
type Store struct {
	durable  durable
	local    *localCache
	ttl      time.Duration
	logger   *slog.Logger
	degraded atomic.Bool

	reconnectOnce sync.Once
	done          chan struct{}
	wg            sync.WaitGroup
}

// Options configures cache construction.
type Options struct {
	// RedisAddr enables the durable tier when non-empty.
	RedisAddr string
	TTL       time.Duration
	MaxItems  int
	MaxBytes  int64
}

// New builds a two-tier store. With no Redis address the store runs on the
// local tier alone.
func New(opts Options, logger *slog.Logger) *Store {
	store := &Store{
		local:  newLocalCache(opts.MaxItems, opts.MaxBytes),
		ttl:    opts.TTL,
		logger: logging.NewComponentLogger(logger, "cache"),
		done:   make(chan struct{}),
	}
	if store.ttl <= 0 {
		store.ttl = 24 * time.Hour
	}
	if opts.RedisAddr != "" {
		store.durable = redisTier{client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}
	}
	return store
}

// Close stops the reconnection loop if one was started.
func (s *Store) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.wg.Wait()
}

// Degraded reports whether the durable tier is currently unavailable.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

// Get returns the cached result list for a fingerprint, or absent.
func (s *Store) Get(ctx context.Context, key string) ([]gamedb.Game, bool) {
	if s.durable != nil && !s.degraded.Load() {
		value, err := s.durable.Get(ctx, key)
		switch {
		case err == nil:
			games, decodeErr := decodePayload([]byte(value))
			if decodeErr == nil {
				// Mirror so a later durable outage still serves this key.
				s.local.set(key, []byte(value), time.Now().Add(s.ttl))
				return games, true
			}
			s.logger.Warn("discarding undecodable durable entry", logging.String("key", key), logging.Error(decodeErr))
		case errors.Is(err, ErrMiss):
		default:
			s.markDegraded(err)
		}
	}

	payload, ok := s.local.get(key, time.Now())
	if !ok {
		return nil, false
	}
	games, err := decodePayload(payload)
	if err != nil {
		return nil, false
	}
	return games, true
}

// Set stores a result list in both tiers with the configured TTL.
func (s *Store) Set(ctx context.Context, key string, games []gamedb.Game) {
	payload, err := json.Marshal(games)
	if err != nil {
		s.logger.Warn("cache encode failed", logging.String("key", key), logging.Error(err))
		return
	}
	s.local.set(key, payload, time.Now().Add(s.ttl))

	if s.durable != nil && !s.degraded.Load() {
		if err := s.durable.Set(ctx, key, string(payload), s.ttl); err != nil {
			s.markDegraded(err)
		}
	}
}

// MGet returns cached result lists for a batch of fingerprints. Absent keys
// yield a false presence flag at the matching index.
func (s *Store) MGet(ctx context.Context, keys []string) ([][]gamedb.Game, []bool) {
	results := make([][]gamedb.Game, len(keys))
	present := make([]bool, len(keys))
	if len(keys) == 0 {
		return results, present
	}

	if s.durable != nil && !s.degraded.Load() {
		values, err := s.durable.MGet(ctx, keys...)
		if err != nil {
			s.markDegraded(err)
		} else {
			for i, value := range values {
				text, ok := value.(string)
				if !ok {
					continue
				}
				games, decodeErr := decodePayload([]byte(text))
				if decodeErr != nil {
					continue
				}
				s.local.set(keys[i], []byte(text), time.Now().Add(s.ttl))
				results[i] = games
				present[i] = true
			}
		}
	}

	now := time.Now()
	for i, key := range keys {
		if present[i] {
			continue
		}
		payload, ok := s.local.get(key, now)
		if !ok {
			continue
		}
		if games, err := decodePayload(payload); err == nil {
			results[i] = games
			present[i] = true
		}
	}
	return results, present
}

// markDegraded flips the store into local-only mode and schedules periodic
// reconnection probes. Safe to call from any goroutine; only the first call
// starts the loop.
func (s *Store) markDegraded(cause error) {
	if s.degraded.Swap(true) {
		return
	}
	s.logger.Warn("durable cache tier unavailable, serving local tier only", logging.Error(cause))
	s.reconnectOnce.Do(func() {
		s.wg.Add(1)
		go s.reconnectLoop()
	})
}

func (s *Store) reconnectLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(reconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if !s.degraded.Load() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := s.durable.Ping(ctx)
			cancel()
			if err == nil {
				s.degraded.Store(false)
				s.logger.Info("durable cache tier restored")
			}
		}
	}
}

func decodePayload(payload []byte) ([]gamedb.Game, error) {
	var games []gamedb.Game
	if err := json.Unmarshal(payload, &games); err != nil {
		return nil, err
	}
	return games, nil
}
