package pipeline

import (
	"context"
	"fmt"

	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/datasets"
	"github.com/forest-guardian/geocomposite/internal/expression"
	"github.com/forest-guardian/geocomposite/internal/gdalio"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/reconcile"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/forest-guardian/geocomposite/internal/source"
	"github.com/sirupsen/logrus"
)

// Band names of a THI result.
const (
	BandTHI         = "THI"
	BandTemperature = "temperature"
	BandHumidity    = "humidity"
	BandNDVI        = "NDVI"
)

// THIRequest describes a yearly temperature-humidity index at Landsat
// resolution. Landsat defaults to the sensor flown that year and Weather to
// the Open-Meteo ERA5 dataset.
type THIRequest struct {
	Year    int
	Region  region.Region
	Landsat *datasets.Dataset
	Weather *datasets.Dataset
	// TemperatureBand and DewPointBand name the weather bands after
	// preparation.
	TemperatureBand string
	DewPointBand    string
}

// THI composites a year of Landsat scenes to fix the output grid, takes the
// yearly mean air and dew point temperature from the weather dataset,
// derives relative humidity, downscales both onto the Landsat grid and
// evaluates the index there.
func (p *Pipeline) THI(ctx context.Context, req THIRequest) (*raster.Raster, error) {
	landsat := req.Landsat
	if landsat == nil {
		d := datasets.LandsatForYear(req.Year)
		landsat = &d
	}
	weather := req.Weather
	if weather == nil {
		d := datasets.OpenMeteoERA5()
		weather = &d
	}
	tBand, dBand := req.TemperatureBand, req.DewPointBand
	if tBand == "" {
		tBand = "temperature_2m"
	}
	if dBand == "" {
		dBand = "dewpoint_temperature_2m"
	}
	log := p.log().WithFields(logrus.Fields{"year": req.Year, "landsat": landsat.ID, "weather": weather.ID})
	year := composite.Yearly(req.Year, req.Year)
	dates := source.Years(req.Year, req.Year)

	fine, err := p.Composite(ctx, Request{
		Dataset: landsat.ID,
		Prepare: landsat,
		Region:  req.Region,
		Dates:   dates,
		Filter:  landsat.Filter,
		Indices: []expression.BandExpression{expression.NormalizedDifference(BandNDVI, "nir", "red")},
		Rule:    year,
		Reducer: composite.Median,
	})
	if err != nil {
		return nil, fmt.Errorf("thi landsat: %w", err)
	}
	coarse, err := p.Composite(ctx, Request{
		Dataset: weather.ID,
		Prepare: weather,
		Region:  req.Region,
		Dates:   dates,
		Indices: []expression.BandExpression{
			{Output: BandTemperature, Inputs: []string{tBand}, Formula: func(in []float64) float64 { return in[0] }},
			expression.RelativeHumidity(BandHumidity, tBand, dBand),
		},
		Rule:    year,
		Reducer: composite.Mean,
	})
	if err != nil {
		return nil, fmt.Errorf("thi weather: %w", err)
	}
	ndvi := fine.Composites[0].Raster
	climate := coarse.Composites[0].Raster
	log.WithFields(logrus.Fields{
		"landsat_scenes": fine.Composites[0].Count,
		"weather_days":   coarse.Composites[0].Count,
	}).Info("thi inputs composited")

	done := p.Metrics.Stage("reconcile")
	downscaled, err := downscale(climate, ndvi.Grid())
	done()
	if err != nil {
		return nil, fmt.Errorf("thi downscale: %w", err)
	}
	out, err := downscaled.Merge(ndvi)
	if err != nil {
		return nil, err
	}
	return expression.Evaluate(out, expression.THI(BandTHI, BandTemperature, BandHumidity))
}

// downscale resamples coarse onto fine, transforming coordinates when the
// two grids use different coordinate systems.
func downscale(coarse *raster.Raster, fine raster.Grid) (*raster.Raster, error) {
	from, to := fine.Projection, coarse.Grid().Projection
	if from == "" || to == "" || from == to {
		return reconcile.Bicubic(coarse, fine)
	}
	tr, err := gdalio.NewTransformer(from, to)
	if err != nil {
		return nil, err
	}
	defer tr.Close()
	return reconcile.Bicubic(coarse, fine, reconcile.WithTransformer(tr))
}
