package synth

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/charmbracelet/readaloud/internal/cache"
	"github.com/charmbracelet/readaloud/internal/observe"
)

// Store is the subset of the audio cache used for synthesis results.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Cached serves repeated requests from a store.
type Cached struct {
	next    Synthesizer
	store   Store
	metrics *observe.Metrics
	logger  *log.Logger
}

// NewCached wraps next with store.
func NewCached(next Synthesizer, store Store, metrics *observe.Metrics, logger *log.Logger) *Cached {
	if metrics == nil {
		metrics = observe.Noop()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{next: next, store: store, metrics: metrics, logger: logger}
}

// CacheKey identifies the audio a request produces. The credential is not
// part of it.
func CacheKey(req Request) string {
	return cache.Key(req.Model, req.Voice, string(req.Format), req.Text)
}

func (c *Cached) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	key := CacheKey(req)
	if data, ok := c.store.Get(key); ok {
		c.metrics.RecordCacheLookup(ctx, true)
		return data, nil
	}
	c.metrics.RecordCacheLookup(ctx, false)

	data, err := c.next.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(key, data); err != nil {
		c.logger.Debug("audio cache put failed", "err", err)
	}
	return data, nil
}
