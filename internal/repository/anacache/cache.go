// Package anacache stores finished analyses in a key-value store, keyed by
// the model and a hash of the prompt.
package anacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
)

const keyPrefix = "docqa:analysis:"

// store is the consumer interface for the analysis cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a read-through store for analysis results. Store failures are
// logged and treated as misses.
type Cache struct {
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates an analysis cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func New(s store, model string, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		model:      model,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns the cached analysis for p.
func (c *Cache) Get(ctx context.Context, p domain.Prompt) (string, bool) {
	key := c.key(p)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached analysis", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return "", false
	}
	if len(data) == 0 {
		c.inc("miss")
		return "", false
	}
	c.inc("hit")
	return string(data), true
}

// Put stores content for p. Empty content is not cached.
func (c *Cache) Put(ctx context.Context, p domain.Prompt, content string) {
	if content == "" {
		return
	}
	key := c.key(p)
	if err := c.store.SetWithTTL(ctx, key, []byte(content), c.ttl); err != nil {
		c.logger.Warn("Failed to cache analysis", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) key(p domain.Prompt) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(p.System))
	h.Write([]byte{0})
	h.Write([]byte(p.User))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
