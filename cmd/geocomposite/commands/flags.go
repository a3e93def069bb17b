package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/datasets"
	"github.com/forest-guardian/geocomposite/internal/expression"
	"github.com/forest-guardian/geocomposite/internal/pipeline"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/forest-guardian/geocomposite/internal/source"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
)

type areaFlags struct {
	plots  string
	plotID string
	lon    float64
	lat    float64
	buffer float64
}

func (a *areaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.plots, "plots", "", "GeoJSON feature collection of plots")
	cmd.Flags().StringVar(&a.plotID, "plot-id", "", "plot_id of the plot to process")
	cmd.Flags().Float64Var(&a.lon, "lon", 0, "longitude of a point of interest")
	cmd.Flags().Float64Var(&a.lat, "lat", 0, "latitude of a point of interest")
	cmd.Flags().Float64Var(&a.buffer, "buffer", 1000, "buffer in meters around --lon/--lat")
}

func (a *areaFlags) region() (region.Region, error) {
	if a.plots != "" {
		if a.plotID == "" {
			return region.Region{}, errors.New("--plots needs --plot-id")
		}
		return region.LoadPlot(a.plots, a.plotID)
	}
	if a.lon == 0 && a.lat == 0 {
		return region.Region{}, errors.New("set --plots and --plot-id, or --lon and --lat")
	}
	return region.PointBuffer(orb.Point{a.lon, a.lat}, a.buffer)
}

// label names outputs after the plot or the point.
func (a *areaFlags) label() string {
	if a.plotID != "" {
		return a.plotID
	}
	return strings.NewReplacer(".", "_", "-", "m").Replace(fmt.Sprintf("%.4f_%.4f", a.lon, a.lat))
}

type seriesFlags struct {
	dataset string
	from    int
	to      int
	indices []string
	reducer string
	season  string
	clip    bool
}

func (s *seriesFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.dataset, "dataset", copernicusDataset, "catalog dataset ID")
	cmd.Flags().IntVar(&s.from, "from", 2016, "first year")
	cmd.Flags().IntVar(&s.to, "to", 2016, "last year")
	cmd.Flags().StringSliceVar(&s.indices, "index", []string{"NDVI"}, "indices to compute")
	cmd.Flags().StringVar(&s.reducer, "reducer", "median", "mean, median, max, min or sum")
	cmd.Flags().StringVar(&s.season, "season", "yearly", "yearly or growing (May 1 to Sep 15)")
	cmd.Flags().BoolVar(&s.clip, "clip", true, "mask pixels outside the region")
}

func (s *seriesFlags) request(area region.Region) (pipeline.Request, error) {
	if s.to < s.from {
		return pipeline.Request{}, fmt.Errorf("--to %d is before --from %d", s.to, s.from)
	}
	var prepare *datasets.Dataset
	if d, ok := datasets.ByID(s.dataset); ok {
		prepare = &d
	}
	exprs := make([]expression.BandExpression, 0, len(s.indices))
	for _, name := range s.indices {
		expr, err := pipeline.Index(name, prepare)
		if err != nil {
			return pipeline.Request{}, err
		}
		exprs = append(exprs, expr)
	}
	if len(exprs) == 0 {
		return pipeline.Request{}, fmt.Errorf("at least one --index is required")
	}
	reducer, err := composite.ReducerByName(s.reducer)
	if err != nil {
		return pipeline.Request{}, err
	}
	var rule composite.Rule
	switch s.season {
	case "yearly":
		rule = composite.Yearly(s.from, s.to)
	case "growing":
		rule = composite.GrowingSeason(s.from, s.to)
	default:
		return pipeline.Request{}, fmt.Errorf("unknown season %q", s.season)
	}
	req := pipeline.Request{
		Dataset: s.dataset,
		Prepare: prepare,
		Region:  area,
		Dates:   source.Years(s.from, s.to),
		Indices: exprs,
		Rule:    rule,
		Reducer: reducer,
		Clip:    s.clip,
	}
	if prepare != nil {
		req.Filter = prepare.Filter
	}
	return req, nil
}

type exportFlags struct {
	scale     float64
	maxPixels int
	out       string
}

func (e *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&e.scale, "scale", 0, "output pixel size in meters, native when 0")
	cmd.Flags().IntVar(&e.maxPixels, "max-pixels", 1e9, "refuse exports larger than this")
	cmd.Flags().StringVar(&e.out, "out", "", "output folder, default <root>/data/result")
}

func (e *exportFlags) folder(elem ...string) string {
	if e.out != "" {
		return e.out
	}
	return app.cfg.DataPath(append([]string{"result"}, elem...)...)
}
