// Package datasets describes how scenes of known collections are masked,
// scaled and renamed before index evaluation.
package datasets

import (
	"fmt"

	"github.com/forest-guardian/geocomposite/internal/normalize"
	"github.com/forest-guardian/geocomposite/internal/quality"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/source"
)

// Dataset is the per-collection preparation applied to every scene: the
// quality mask first, then scaling, then renaming to common band names.
type Dataset struct {
	ID      string
	Quality *quality.Spec
	Scales  map[string]normalize.Scale
	// Aliases maps collection band names to common names such as "red".
	Aliases map[string]string
	// Filter is a suggested metadata filter for searches.
	Filter source.MetadataFilter
}

// Prepare masks, scales and renames r. Only the quality bands are required;
// scales and aliases apply to whichever bands the scene carries.
func (d Dataset) Prepare(r *raster.Raster) (*raster.Raster, error) {
	var err error
	if d.Quality != nil {
		if r, _, err = quality.Apply(r, *d.Quality); err != nil {
			return nil, fmt.Errorf("%s: %w", d.ID, err)
		}
	}
	scales := make(map[string]normalize.Scale, len(d.Scales))
	for name, s := range d.Scales {
		if r.HasBand(name) {
			scales[name] = s
		}
	}
	if len(scales) > 0 {
		if r, err = normalize.Apply(r, scales); err != nil {
			return nil, fmt.Errorf("%s: %w", d.ID, err)
		}
	}
	for from, to := range d.Aliases {
		if !r.HasBand(from) {
			continue
		}
		if r, err = r.Rename(from, to); err != nil {
			return nil, fmt.Errorf("%s: %w", d.ID, err)
		}
	}
	return r, nil
}

var (
	reflectance = normalize.Scale{Multiplier: 0.0000275, Offset: -0.2}
	surfaceTemp = normalize.Scale{Multiplier: 0.00341802, Offset: 149}
	kelvin      = normalize.Scale{Multiplier: 1, Offset: -273.15}
)

func landsatQuality() *quality.Spec {
	q := quality.LandsatC2()
	return &q
}

// Landsat5 is Landsat 5 TM collection 2 level 2. Landsat 7 ETM+ shares its
// band layout.
func Landsat5() Dataset {
	return Dataset{
		ID:      "LANDSAT/LT05/C02/T1_L2",
		Quality: landsatQuality(),
		Scales: map[string]normalize.Scale{
			"SR_B1": reflectance, "SR_B2": reflectance, "SR_B3": reflectance,
			"SR_B4": reflectance, "SR_B5": reflectance, "SR_B7": reflectance,
			"ST_B6": surfaceTemp,
		},
		Aliases: map[string]string{
			"SR_B1": "blue", "SR_B2": "green", "SR_B3": "red", "SR_B4": "nir",
			"SR_B5": "swir1", "SR_B7": "swir2", "ST_B6": "thermal",
		},
		Filter: source.CloudCoverBelow("CLOUD_COVER", 20),
	}
}

func Landsat7() Dataset {
	d := Landsat5()
	d.ID = "LANDSAT/LE07/C02/T1_L2"
	return d
}

// Landsat8 is Landsat 8 OLI/TIRS collection 2 level 2.
func Landsat8() Dataset {
	return Dataset{
		ID:      "LANDSAT/LC08/C02/T1_L2",
		Quality: landsatQuality(),
		Scales: map[string]normalize.Scale{
			"SR_B2": reflectance, "SR_B3": reflectance, "SR_B4": reflectance,
			"SR_B5": reflectance, "SR_B6": reflectance, "SR_B7": reflectance,
			"ST_B10": surfaceTemp,
		},
		Aliases: map[string]string{
			"SR_B2": "blue", "SR_B3": "green", "SR_B4": "red", "SR_B5": "nir",
			"SR_B6": "swir1", "SR_B7": "swir2", "ST_B10": "thermal",
		},
		Filter: source.CloudCoverBelow("CLOUD_COVER", 20),
	}
}

// LandsatForYear picks Landsat 5 before 2012 and Landsat 8 from then on.
func LandsatForYear(year int) Dataset {
	if year < 2012 {
		return Landsat5()
	}
	return Landsat8()
}

// sentinel2Aliases maps zero-padded band names to the short names the index
// presets read.
var sentinel2Aliases = map[string]string{
	"B01": "B1", "B02": "B2", "B03": "B3", "B04": "B4", "B05": "B5",
	"B06": "B6", "B07": "B7", "B08": "B8", "B8A": "B8A", "B09": "B9",
}

// Sentinel2SR masks on scene classification and cloud probability, as served
// by the Copernicus process API.
func Sentinel2SR() Dataset {
	q := quality.Sentinel2SCL()
	return Dataset{
		ID:      "COPERNICUS/S2_SR",
		Quality: &q,
		Aliases: sentinel2Aliases,
		Filter:  source.CloudCoverBelow("CLOUD_COVER", 20),
	}
}

// Sentinel2Probability masks on separate cloud and cirrus probability bands,
// both below maxProbability.
func Sentinel2Probability(cloudBand, cirrusBand string, maxProbability float64) (Dataset, error) {
	q, err := quality.Sentinel2Clouds(cloudBand, cirrusBand, maxProbability)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{
		ID:      "COPERNICUS/S2_SR_HARMONIZED",
		Quality: &q,
		Aliases: sentinel2Aliases,
		Filter:  source.CloudCoverBelow("CLOUDY_PIXEL_PERCENTAGE", 30),
	}, nil
}

// ModisLST converts MOD11A1 daytime land surface temperature to Celsius.
func ModisLST() Dataset {
	return Dataset{
		ID:      "MODIS/006/MOD11A1",
		Scales:  map[string]normalize.Scale{"LST_Day_1km": {Multiplier: 0.02, Offset: -273.15}},
		Aliases: map[string]string{"LST_Day_1km": "lst"},
	}
}

// ERA5Land converts 2 m air and dew point temperatures from Kelvin.
func ERA5Land() Dataset {
	return Dataset{
		ID: "ECMWF/ERA5_LAND",
		Scales: map[string]normalize.Scale{
			"temperature_2m":          kelvin,
			"dewpoint_temperature_2m": kelvin,
		},
	}
}

// OpenMeteoERA5 is already in Celsius.
func OpenMeteoERA5() Dataset {
	return Dataset{ID: "OPEN_METEO/ERA5"}
}

// TerraClimate applies the stored integer scale factors.
func TerraClimate() Dataset {
	return Dataset{
		ID: "IDAHO_EPSCOR/TERRACLIMATE",
		Scales: map[string]normalize.Scale{
			"aet":  {Multiplier: 0.1},
			"pet":  {Multiplier: 0.1},
			"soil": {Multiplier: 0.1},
			"pdsi": {Multiplier: 0.01},
		},
	}
}

// ByID returns the preset registered under id.
func ByID(id string) (Dataset, bool) {
	for _, d := range []Dataset{Landsat5(), Landsat7(), Landsat8(), Sentinel2SR(), ModisLST(), ERA5Land(), OpenMeteoERA5(), TerraClimate()} {
		if d.ID == id {
			return d, true
		}
	}
	return Dataset{}, false
}
