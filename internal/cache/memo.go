// Package cache memoizes provider lookups in a bounded, expiring in-process
// LRU with in-flight request coalescing and an optional shared tier.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned by a SharedStore when the key is absent.
var ErrMiss = errors.New("cache miss")

// SharedStore is a cross-process byte cache such as Valkey.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Recorder receives hit/miss notifications.
type Recorder interface {
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// Config configures a Memo.
type Config struct {
	// Provider and Operation label log lines, metrics and shared-tier keys.
	Provider  string
	Operation string

	// Capacity bounds the number of in-process entries. Default: 1024
	Capacity int

	// TTL expires entries in both tiers. Default: 1 hour
	TTL time.Duration

	// LoadTimeout bounds a shared load. The load outlives the caller that
	// started it so other waiters still get its result. Default: 30 seconds
	LoadTimeout time.Duration

	Shared   SharedStore
	Recorder Recorder
	Logger   zerolog.Logger
}

// Memo is a typed read-through cache. Concurrent misses on the same key share
// one load, and a hit returns the same value the load produced.
type Memo[V any] struct {
	cfg    Config
	lru    *expirable.LRU[string, V]
	flight singleflight.Group
}

// NewMemo creates a Memo with defaults applied.
func NewMemo[V any](cfg Config) *Memo[V] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 30 * time.Second
	}
	return &Memo[V]{
		cfg: cfg,
		lru: expirable.NewLRU[string, V](cfg.Capacity, nil, cfg.TTL),
	}
}

// Get returns the cached value for key, calling load on a miss. Failed loads
// are not cached. A caller whose ctx ends stops waiting with ctx.Err(); the
// load itself keeps running for the remaining waiters.
func (m *Memo[V]) Get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := m.lru.Get(key); ok {
		m.hit(key)
		return v, nil
	}

	ch := m.flight.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.LoadTimeout)
		defer cancel()

		if v, ok := m.lru.Get(key); ok {
			return v, nil
		}
		if v, ok := m.readShared(loadCtx, key); ok {
			m.lru.Add(key, v)
			return v, nil
		}

		m.miss(key)
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		m.lru.Add(key, v)
		m.writeShared(loadCtx, key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			m.cfg.Logger.Debug().
				Str("provider", m.cfg.Provider).
				Str("operation", m.cfg.Operation).
				Str("key", key).
				Msg("coalesced concurrent lookup")
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Peek returns the in-process value without loading.
func (m *Memo[V]) Peek(key string) (V, bool) {
	return m.lru.Peek(key)
}

// Len returns the number of in-process entries.
func (m *Memo[V]) Len() int {
	return m.lru.Len()
}

// Purge drops every in-process entry.
func (m *Memo[V]) Purge() {
	m.lru.Purge()
}

func (m *Memo[V]) sharedKey(key string) string {
	return m.cfg.Provider + ":" + m.cfg.Operation + ":" + key
}

func (m *Memo[V]) readShared(ctx context.Context, key string) (V, bool) {
	var v V
	if m.cfg.Shared == nil {
		return v, false
	}

	raw, err := m.cfg.Shared.Get(ctx, m.sharedKey(key))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			m.cfg.Logger.Warn().Err(err).Str("provider", m.cfg.Provider).Msg("shared cache read failed")
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		m.cfg.Logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable shared cache entry")
		return v, false
	}

	m.hit(key)
	return v, true
}

func (m *Memo[V]) writeShared(ctx context.Context, key string, v V) {
	if m.cfg.Shared == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		m.cfg.Logger.Warn().Err(err).Str("key", key).Msg("shared cache encode failed")
		return
	}
	if err := m.cfg.Shared.Set(ctx, m.sharedKey(key), raw, m.cfg.TTL); err != nil {
		m.cfg.Logger.Warn().Err(err).Str("provider", m.cfg.Provider).Msg("shared cache write failed")
	}
}

func (m *Memo[V]) hit(key string) {
	m.cfg.Logger.Debug().Str("provider", m.cfg.Provider).Str("operation", m.cfg.Operation).Str("key", key).Msg("cache hit")
	if m.cfg.Recorder != nil {
		m.cfg.Recorder.RecordCacheHit(m.cfg.Provider, m.cfg.Operation)
	}
}

func (m *Memo[V]) miss(key string) {
	m.cfg.Logger.Debug().Str("provider", m.cfg.Provider).Str("operation", m.cfg.Operation).Str("key", key).Msg("cache miss")
	if m.cfg.Recorder != nil {
		m.cfg.Recorder.RecordCacheMiss(m.cfg.Provider, m.cfg.Operation)
	}
}
