package quality

import "fmt"

// LandsatC2 masks fill, dilated cloud, cirrus, cloud and cloud shadow
// (QA_PIXEL bits 0-4) and any radiometric saturation.
func LandsatC2() Spec {
	return Spec{
		Name: "landsat-c2",
		Conditions: []Condition{
			BitsClear{BandName: "QA_PIXEL", Bits: 0b11111},
			Equals{BandName: "QA_RADSAT", Value: 0},
		},
	}
}

// Sentinel2Clouds masks pixels whose cloud probability or cirrus value
// reaches maxValue. The two bands must differ.
func Sentinel2Clouds(cloudBand, cirrusBand string, maxValue float64) (Spec, error) {
	if cloudBand == cirrusBand {
		return Spec{}, fmt.Errorf("%w: cloud and cirrus both read %s", ErrDuplicateMaskBand, cloudBand)
	}
	return Spec{
		Name: "sentinel2-clouds",
		Conditions: []Condition{
			Below{BandName: cloudBand, Max: maxValue},
			Below{BandName: cirrusBand, Max: maxValue},
		},
	}, nil
}

// Sentinel2SCL rejects any cloud probability above zero and the scene
// classes for cloud shadow, medium and high cloud and thin cirrus.
func Sentinel2SCL() Spec {
	return Spec{
		Name: "sentinel2-scl",
		Conditions: []Condition{
			AtMost{BandName: "CLD", Max: 0},
			ExcludeClasses{BandName: "SCL", Classes: []int{3, 8, 9, 10}},
		},
	}
}
