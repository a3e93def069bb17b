// Package pipeline runs the full chain from source fetch to composites and
// change products.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/forest-guardian/geocomposite/internal/change"
	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/datasets"
	"github.com/forest-guardian/geocomposite/internal/expression"
	"github.com/forest-guardian/geocomposite/internal/logging"
	"github.com/forest-guardian/geocomposite/internal/metrics"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/forest-guardian/geocomposite/internal/source"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrNoCatalog = errors.New("pipeline has no catalog")

// Pipeline wires a catalog to the processing stages. Metrics, Log and
// Progress may be left nil.
type Pipeline struct {
	Catalog  *source.Catalog
	Metrics  *metrics.Manager
	Log      logrus.FieldLogger
	Progress io.Writer
}

// Request selects scenes and describes how they are turned into composites.
// When Indices is empty every prepared band is composited.
type Request struct {
	Dataset  string
	Prepare  *datasets.Dataset
	Region   region.Region
	Dates    source.DateRange
	Filter   source.MetadataFilter
	Indices  []expression.BandExpression
	Rule     composite.Rule
	Reducer  composite.Reducer
	Template *raster.Grid
	// Clip sets pixels outside Region to no-data before compositing.
	Clip bool
}

type Result struct {
	RunID      string
	Scenes     int
	Composites composite.Series
}

// Change returns the change engine over the result's composites.
func (r Result) Change() *change.Engine {
	return change.New(r.Composites)
}

func (p *Pipeline) log() logrus.FieldLogger {
	if p.Log == nil {
		return logging.Discard()
	}
	return p.Log
}

func (p *Pipeline) bar(n int, description string) *progressbar.ProgressBar {
	w := p.Progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
	)
}

// Composite fetches the request's scenes, masks, scales and evaluates indices
// on each, then composites them.
func (p *Pipeline) Composite(ctx context.Context, req Request) (Result, error) {
	if p.Catalog == nil {
		return Result{}, ErrNoCatalog
	}
	runID := uuid.NewString()
	log := p.log().WithFields(logrus.Fields{"run": runID, "dataset": req.Dataset})

	done := p.Metrics.Stage("fetch")
	series, err := p.Catalog.Fetch(ctx, req.Dataset, req.Region, req.Dates, req.Filter)
	done()
	if err != nil {
		return Result{}, err
	}
	log.WithField("scenes", len(series)).Info("scenes fetched")

	done = p.Metrics.Stage("prepare")
	series, err = p.prepare(ctx, series, req)
	done()
	if err != nil {
		return Result{}, err
	}

	reducer := req.Reducer
	if reducer == nil {
		reducer = composite.Median
	}
	opts := []composite.Option{composite.WithLogger(log)}
	if req.Template != nil {
		opts = append(opts, composite.WithTemplate(*req.Template))
	}
	if len(req.Indices) > 0 {
		opts = append(opts, composite.WithBands(outputs(req.Indices)...))
	}

	done = p.Metrics.Stage("composite")
	composites, err := composite.Compose(ctx, series, req.Rule, reducer, opts...)
	done()
	if err != nil {
		return Result{}, err
	}
	p.Metrics.CompositesBuilt(reducer.Name(), len(composites))
	log.WithFields(logrus.Fields{"composites": len(composites), "reducer": reducer.Name()}).Info("composites built")
	return Result{RunID: runID, Scenes: len(series), Composites: composites}, nil
}

// prepare runs each scene through quality, scaling, index evaluation and
// clipping in parallel.
func (p *Pipeline) prepare(ctx context.Context, series raster.Series, req Request) (raster.Series, error) {
	out := make(raster.Series, len(series))
	bar := p.bar(len(series), "Preparing scenes")
	defer bar.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(raster.Workers())
	for i, t := range series {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", source.ErrCancelled, err)
			}
			r, err := prepareScene(t.Raster, req)
			if err != nil {
				return fmt.Errorf("scene %s: %w", t.Time.Format("2006-01-02"), err)
			}
			out[i] = raster.Timed{Time: t.Time, Raster: r}
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func prepareScene(r *raster.Raster, req Request) (*raster.Raster, error) {
	var err error
	if req.Prepare != nil {
		if r, err = req.Prepare.Prepare(r); err != nil {
			return nil, err
		}
	}
	if len(req.Indices) > 0 {
		if r, err = expression.EvaluateAll(r, req.Indices...); err != nil {
			return nil, err
		}
		if r, err = r.Select(outputs(req.Indices)...); err != nil {
			return nil, err
		}
	}
	if req.Clip && !req.Region.IsZero() {
		if r, err = req.Region.Clip(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func outputs(exprs []expression.BandExpression) []string {
	names := make([]string, len(exprs))
	for i, e := range exprs {
		names[i] = e.Output
	}
	return names
}
