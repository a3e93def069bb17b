package commands

import (
	"fmt"
	"path/filepath"

	"github.com/forest-guardian/geocomposite/internal/export"
	"github.com/forest-guardian/geocomposite/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func compositeCmd() *cobra.Command {
	var (
		area      areaFlags
		series    seriesFlags
		exp       exportFlags
		png       bool
		timelapse bool
		chart     bool
		low, high float64
	)
	cmd := &cobra.Command{
		Use:   "composite",
		Short: "Build per-period composites of spectral indices over a region",
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
			log := app.log.WithFields(logrus.Fields{"run": res.RunID, "plot": area.label()})

			folder := exp.folder(area.label(), "composite")
			for _, c := range res.Composites {
				if c.Count == 0 {
					log.WithField("bucket", c.Bucket.String()).Warn("no scenes in bucket, exporting an empty composite")
				}
				_, err := app.exporter.Export(ctx, export.Request{
					Raster:            c.Raster,
					DestinationFolder: folder,
					FilenamePrefix:    fmt.Sprintf("%s_%s_%s", area.label(), series.reducer, c.Bucket.Label),
					Region:            roi,
					PixelScaleMeters:  exp.scale,
					MaxPixelBudget:    exp.maxPixels,
				})
				if err != nil {
					return err
				}
			}

			for _, index := range series.indices {
				d := output.Descriptor{
					Series:      res.Composites.Timed(),
					Region:      roi,
					Reducer:     req.Reducer,
					BandMapping: []string{index},
					Palette:     output.RedYellowGreen,
					Min:         low,
					Max:         high,
				}
				if chart {
					rows, err := output.Chart(d)
					if err != nil {
						return err
					}
					if err := output.WriteCSV(&rows, filepath.Join(folder, index+"_chart.csv")); err != nil {
						return err
					}
				}
				if !png && !timelapse {
					continue
				}
				paths, err := output.SaveSeries(d, filepath.Join(folder, "images", index), area.label())
				if err != nil {
					return err
				}
				if timelapse {
					if _, err := output.Timelapse(paths, filepath.Join(folder, index), 2); err != nil {
						return err
					}
				}
			}
			app.success(ctx, fmt.Sprintf("%d composites of %s written to %s", len(res.Composites), series.dataset, folder))
			return nil
		},
	}
	area.register(cmd)
	series.register(cmd)
	exp.register(cmd)
	cmd.Flags().BoolVar(&png, "png", false, "render a PNG per composite")
	cmd.Flags().BoolVar(&timelapse, "timelapse", false, "render an AVI timelapse of the composites")
	cmd.Flags().BoolVar(&chart, "chart", false, "write the regional time series as CSV")
	cmd.Flags().Float64Var(&low, "min", 0, "palette minimum")
	cmd.Flags().Float64Var(&high, "max", 1, "palette maximum")
	return cmd
}
