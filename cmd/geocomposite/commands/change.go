package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/export"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/output"
	"github.com/spf13/cobra"
)

func changeCmd() *cobra.Command {
	var (
		area      areaFlags
		series    seriesFlags
		exp       exportFlags
		mode      string
		year      string
		base      string
		histogram float64
	)
	cmd := &cobra.Command{
		Use:   "change",
		Short: "Compare composites: difference, z-score anomaly, distance from the mean",
		Long: `Modes:
  difference  --year minus --base, the change since --base
  zscore      (--year - mean) / stddev over every period
  from-mean   mean over every period minus --year
  mean        per-pixel mean over every period
  stddev      per-pixel sample standard deviation over every period`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			roi, err := area.region()
			if err != nil {
				return err
			}
			req, err := series.request(roi)
			if err != nil {
				return err
			}
			res, err := app.pipeline.Composite(ctx, req)
			if err != nil {
				return err
			}
			engine := res.Change()

			start := func(label string) (time.Time, error) {
				c, ok := res.Composites.FindLabel(label)
				if !ok {
					return time.Time{}, fmt.Errorf("no composite labelled %q", label)
				}
				return c.Bucket.Start, nil
			}
			done := app.metrics.Stage("change")
			var (
				out  *raster.Raster
				a, b time.Time
			)
			switch mode {
			case "difference":
				if a, err = start(year); err != nil {
					return err
				}
				if b, err = start(base); err != nil {
					return err
				}
				out, err = engine.Difference(b, a)
			case "zscore":
				if a, err = start(year); err != nil {
					return err
				}
				out, err = engine.ZScoreAnomaly(a)
			case "from-mean":
				if a, err = start(year); err != nil {
					return err
				}
				out, err = engine.DifferenceFromMean(a)
			case "mean":
				out, err = engine.TemporalMean()
			case "stddev":
				out, err = engine.TemporalStdDev()
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}
			done()
			if err != nil {
				return err
			}

			name := changeName(area.label(), mode, year)
			folder := exp.folder(area.label(), "change")
			result, err := app.exporter.Export(ctx, export.Request{
				Raster:            out,
				DestinationFolder: folder,
				FilenamePrefix:    name,
				Region:            roi,
				PixelScaleMeters:  exp.scale,
				MaxPixelBudget:    exp.maxPixels,
			})
			if err != nil {
				return err
			}
			if histogram > 0 {
				bins, err := output.Histogram(output.Descriptor{
					Raster:      out,
					Region:      roi,
					Reducer:     composite.Mean,
					BandMapping: []string{req.Indices[0].Output},
				}, histogram, 0)
				if err != nil {
					return err
				}
				if err := output.WriteCSV(&bins, filepath.Join(folder, name+"_histogram.csv")); err != nil {
					return err
				}
			}
			app.success(ctx, fmt.Sprintf("%s change written to %s", mode, result.Path))
			return nil
		},
	}
	area.register(cmd)
	series.register(cmd)
	exp.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", "zscore", "difference, zscore, from-mean, mean or stddev")
	cmd.Flags().StringVar(&year, "year", "", "period label to analyse, e.g. 2016")
	cmd.Flags().StringVar(&base, "base", "", "period label to subtract in difference mode")
	cmd.Flags().Float64Var(&histogram, "histogram", 0, "write a histogram with this minimum bucket width")
	return cmd
}

// changeName leaves out the period for the series-wide modes.
func changeName(label, mode, year string) string {
	parts := []string{label, mode}
	if year != "" {
		parts = append(parts, year)
	}
	return strings.Join(parts, "_")
}
