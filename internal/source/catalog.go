package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/forest-guardian/geocomposite/internal/metrics"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Catalog maps dataset identifiers to providers and adds bounded retries,
// a per-fetch timeout and parallel scene loading on top of them.
type Catalog struct {
	mu        sync.RWMutex
	providers map[string]Provider

	retries     int
	retryDelay  time.Duration
	timeout     time.Duration
	concurrency int
	log         logrus.FieldLogger
	metrics     *metrics.Manager
}

type Option func(*Catalog)

// WithRetries sets how many times a failed provider call is retried.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Catalog) {
		c.retries = max(0, n)
		c.retryDelay = delay
	}
}

// WithTimeout bounds a whole Fetch call.
func WithTimeout(d time.Duration) Option {
	return func(c *Catalog) { c.timeout = d }
}

// WithConcurrency bounds the number of scenes loaded at once.
func WithConcurrency(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Catalog) {
		if log != nil {
			c.log = log
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Catalog) { c.metrics = m }
}

func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		providers:   make(map[string]Provider),
		retries:     5,
		retryDelay:  5 * time.Second,
		concurrency: 4,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Catalog) Register(datasetID string, p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[datasetID] = p
}

func (c *Catalog) Datasets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.providers))
	for id := range c.providers {
		ids = append(ids, id)
	}
	return ids
}

// Fetch returns every scene of datasetID intersecting area within dates and
// accepted by filter, as a time-sorted series. No matching scene yields an
// empty series and no error. A deadline or cancellation yields ErrCancelled
// and never a partial series.
func (c *Catalog) Fetch(ctx context.Context, datasetID string, area region.Region, dates DateRange, filter MetadataFilter) (raster.Series, error) {
	c.mu.RLock()
	p, ok := c.providers[datasetID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown dataset %s", ErrSourceUnavailable, datasetID)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	log := c.log.WithField("dataset", datasetID)

	var scenes []Scene
	err := c.retry(ctx, datasetID, "search", func() error {
		var err error
		scenes, err = p.Search(ctx, area, dates)
		return err
	})
	if err != nil {
		return nil, err
	}

	kept := scenes[:0:0]
	for _, s := range scenes {
		if dates.Contains(s.Time) && (filter == nil || filter(s)) {
			kept = append(kept, s)
		}
	}
	log.WithFields(logrus.Fields{"found": len(scenes), "kept": len(kept)}).Debug("scenes selected")

	series := make(raster.Series, len(kept))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, s := range kept {
		g.Go(func() error {
			return c.retry(gctx, datasetID, "load "+s.ID, func() error {
				r, err := p.Load(gctx, s, area)
				if err != nil {
					return err
				}
				series[i] = raster.Timed{Time: s.Time, Raster: r}
				c.metrics.SceneFetched(datasetID)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return series.Sorted(), nil
}

func (c *Catalog) retry(ctx context.Context, datasetID, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrCancelled, datasetID, op, ctxErr)
		}
		if attempt > 0 {
			c.metrics.FetchRetried(datasetID)
			c.log.WithFields(logrus.Fields{
				"dataset": datasetID,
				"attempt": attempt,
				"error":   err,
			}).Warnf("%s failed, retrying", op)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s %s: %w", ErrCancelled, datasetID, op, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s: %w", ErrCancelled, datasetID, op, err)
		}
		if isPermanent(err) {
			break
		}
	}
	c.metrics.FetchFailed(datasetID)
	return fmt.Errorf("%w: %s %s: %w", ErrSourceUnavailable, datasetID, op, err)
}
