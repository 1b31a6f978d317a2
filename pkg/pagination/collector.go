package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// CollectorConfig holds collector configuration
type CollectorConfig struct {
	// MaxConcurrency is the maximum number of traversals drained in parallel
	MaxConcurrency int
	// Timeout per traversal, zero disables it
	Timeout time.Duration
}

// DefaultConfig returns the default collector configuration
func DefaultConfig() CollectorConfig {
	return CollectorConfig{
		MaxConcurrency: 4,
		Timeout:        2 * time.Minute,
	}
}

// Collector drains several independent traversals with a bounded worker pool.
// Pages inside one traversal are always fetched one after another.
type Collector[T any] struct {
	config CollectorConfig
	logger zerolog.Logger
}

// NewCollector creates a new collector
func NewCollector[T any](config CollectorConfig) *Collector[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}
	return &Collector[T]{
		config: config,
		logger: log.With().Str("component", "pagination_collector").Logger(),
	}
}

// CollectAll drains every traversal from its first page.
// Returns map of traversal index -> items for traversals that completed.
// When a traversal fails the others still run; the partial results are
// returned together with the first error.
func (c *Collector[T]) CollectAll(ctx context.Context, traversals ...*Data[T]) (map[int][]T, error) {
	start := time.Now()
	results := make(map[int][]T, len(traversals))
	var mu sync.Mutex

	c.logger.Info().
		Int("traversals", len(traversals)).
		Int("max_concurrency", c.config.MaxConcurrency).
		Msg("Starting parallel collection")

	var g errgroup.Group
	g.SetLimit(c.config.MaxConcurrency)

	for i, data := range traversals {
		g.Go(func() error {
			items, err := c.drain(ctx, data)
			if err != nil {
				c.logger.Warn().
					Err(err).
					Int("traversal", i).
					Int("items", len(items)).
					Msg("Traversal failed")
				return fmt.Errorf("traversal %d: %w", i, err)
			}

			mu.Lock()
			results[i] = items
			done := len(results)
			mu.Unlock()

			c.logger.Debug().
				Int("traversal", i).
				Int("items", len(items)).
				Int("completed", done).
				Int("total", len(traversals)).
				Msg("Traversal complete")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Warn().
			Err(err).
			Int("completed", len(results)).
			Int("total", len(traversals)).
			Msg("Returning partial results")
		return results, fmt.Errorf("partial data: %d/%d traversals: %w", len(results), len(traversals), err)
	}

	c.logger.Info().
		Int("traversals", len(traversals)).
		Dur("duration", time.Since(start)).
		Msg("Collection complete")

	return results, nil
}

func (c *Collector[T]) drain(ctx context.Context, data *Data[T]) ([]T, error) {
	if data == nil {
		return nil, ErrMissingCaller
	}
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	return NewIterable(data).Collect(ctx)
}
