package expression

import "math"

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// NormalizedDifference is (a - b) / (a + b).
func NormalizedDifference(output, a, b string) BandExpression {
	return BandExpression{
		Output: output,
		Inputs: []string{a, b},
		Formula: func(in []float64) float64 {
			return ratio(in[0]-in[1], in[0]+in[1])
		},
	}
}

// Difference is a - b.
func Difference(output, a, b string) BandExpression {
	return BandExpression{
		Output:  output,
		Inputs:  []string{a, b},
		Formula: func(in []float64) float64 { return in[0] - in[1] },
	}
}

// EVI is 2.5 * (nir - red) / (nir + 6*red - 7.5*blue + 1) on surface
// reflectance.
func EVI(output, nir, red, blue string) BandExpression {
	return BandExpression{
		Output: output,
		Inputs: []string{nir, red, blue},
		Formula: func(in []float64) float64 {
			n, r, b := in[0], in[1], in[2]
			return 2.5 * ratio(n-r, n+6*r-7.5*b+1)
		},
	}
}

// ChlorophyllProxy is the depth of the red-edge dip: center - (left + right) / 2.
func ChlorophyllProxy(output, center, left, right string) BandExpression {
	return BandExpression{
		Output: output,
		Inputs: []string{center, left, right},
		Formula: func(in []float64) float64 {
			return in[0] - (in[1]+in[2])/2
		},
	}
}

// RelativeHumidity approximates RH in percent from air and dew-point
// temperatures in degrees Celsius: 100 - 5*(t - dew).
func RelativeHumidity(output, temperature, dewPoint string) BandExpression {
	return BandExpression{
		Output: output,
		Inputs: []string{temperature, dewPoint},
		Formula: func(in []float64) float64 {
			return 100 - 5*(in[0]-in[1])
		},
	}
}

// THI is the temperature-humidity index t - (0.55 - 0.0055*rh) * (t - 14.5)
// with t in degrees Celsius and rh in percent.
func THI(output, temperature, humidity string) BandExpression {
	return BandExpression{
		Output: output,
		Inputs: []string{temperature, humidity},
		Formula: func(in []float64) float64 {
			t, rh := in[0], in[1]
			return t - (0.55-0.0055*rh)*(t-14.5)
		},
	}
}

// Sentinel-2 band presets.

func NDVI() BandExpression { return NormalizedDifference("NDVI", "B8", "B4") }

func NDRE() BandExpression { return NormalizedDifference("NDRE", "B8", "B5") }

func NDMI() BandExpression { return NormalizedDifference("NDMI", "B8", "B11") }

// NDTI is the normalized difference turbidity index (red - green) / (red + green).
func NDTI() BandExpression { return NormalizedDifference("NDTI", "B4", "B3") }

// PSRI is the plant senescence reflectance index (B4 - B2) / B6.
func PSRI() BandExpression {
	return BandExpression{
		Output: "PSRI",
		Inputs: []string{"B4", "B2", "B6"},
		Formula: func(in []float64) float64 {
			return ratio(in[0]-in[1], in[2])
		},
	}
}
