package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/teilomillet/promptsmith/metrics"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

// ComputeFunc produces the value for a cache miss.
type ComputeFunc func(ctx context.Context) (string, error)

// Stats reports cache performance since the Cache was created.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Cache is an exact-match reply cache over a Store.
type Cache struct {
	store   Store
	logger  utils.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records hits and misses in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func New(store Store, logger utils.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	c := &Cache{store: store, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key hashes the model, the temperature and the canonical conversation. Requests
// that differ in any of the three never share an entry.
func Key(req types.Request) string {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(req.Temperature, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(req.Conversation.Canonical()))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// GetOrCompute returns the cached reply for req, or runs compute, stores its
// result and returns it. A failed compute leaves the store untouched. Concurrent
// misses on the same key share one compute call; a caller whose own context is
// live never fails because a sibling caller was cancelled.
func (c *Cache) GetOrCompute(ctx context.Context, req types.Request, compute ComputeFunc) (string, error) {
	key := Key(req)

	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed, treating as miss", "key", key, "error", err)
	} else if ok {
		c.hits.Add(1)
		c.metrics.RecordCacheHit()
		c.logger.Debug("Cache hit", "key", key)
		return value, nil
	}

	c.misses.Add(1)
	c.metrics.RecordCacheMiss()
	c.logger.Debug("Cache miss", "key", key, "model", req.Model)

	for {
		var led bool
		ch := c.group.DoChan(key, func() (any, error) {
			led = true
			result, err := compute(ctx)
			if err != nil {
				return "", err
			}
			if err := c.store.Set(ctx, key, result); err != nil {
				// The reply is still good; only memoization is lost.
				c.logger.Error("Failed to persist cache entry", "key", key, "error", err)
			}
			return result, nil
		})

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(string), nil
			}
			// The shared call ran on another caller's context and was cancelled
			// with it; this caller is still live, so compute again.
			if !led && ctx.Err() == nil && isContextError(res.Err) {
				c.logger.Debug("Shared compute cancelled by another caller, retrying", "key", key)
				continue
			}
			c.logger.Debug("Compute failed, cache left unmodified", "key", key, "error", res.Err)
			return "", res.Err
		}
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Stats returns the entry count and the hit/miss counters.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	n, err := c.store.Len(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes every entry from the store.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
