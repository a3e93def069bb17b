package commands

import (
	"fmt"

	"github.com/forest-guardian/geocomposite/internal/datasets"
	"github.com/forest-guardian/geocomposite/internal/export"
	"github.com/forest-guardian/geocomposite/internal/pipeline"
	"github.com/spf13/cobra"
)

func thiCmd() *cobra.Command {
	var (
		area    areaFlags
		exp     exportFlags
		year    int
		landsat string
		weather string
	)
	cmd := &cobra.Command{
		Use:   "thi",
		Short: "Yearly temperature-humidity index downscaled to Landsat resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			roi, err := area.region()
			if err != nil {
				return err
			}
			req := pipeline.THIRequest{Year: year, Region: roi}
			if landsat != "" {
				d, ok := datasets.ByID(landsat)
				if !ok {
					return fmt.Errorf("unknown landsat dataset %q", landsat)
				}
				req.Landsat = &d
			}
			if weather != "" {
				d, ok := datasets.ByID(weather)
				if !ok {
					return fmt.Errorf("unknown weather dataset %q", weather)
				}
				req.Weather = &d
			}
			out, err := app.pipeline.THI(ctx, req)
			if err != nil {
				return err
			}
			res, err := app.exporter.Export(ctx, export.Request{
				Raster:            out,
				DestinationFolder: exp.folder(area.label(), "thi"),
				FilenamePrefix:    fmt.Sprintf("%s_thi_%d", area.label(), year),
				Region:            roi,
				PixelScaleMeters:  exp.scale,
				MaxPixelBudget:    exp.maxPixels,
			})
			if err != nil {
				return err
			}
			app.success(ctx, fmt.Sprintf("THI %d written to %s", year, res.Path))
			return nil
		},
	}
	area.register(cmd)
	exp.register(cmd)
	cmd.Flags().IntVar(&year, "year", 2016, "year to process")
	cmd.Flags().StringVar(&landsat, "landsat", "", "Landsat dataset ID, by year when empty")
	cmd.Flags().StringVar(&weather, "weather", "", "weather dataset ID, "+openMeteoDataset+" when empty")
	return cmd
}
