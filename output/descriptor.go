// Package output renders composites and series as images, timelapses,
// charts and GeoJSON.
package output

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
)

var (
	ErrNothingToRender = errors.New("descriptor has neither raster nor series")
	ErrBandMapping     = errors.New("band mapping needs one or three bands")
)

// Descriptor is what a renderer needs to draw a raster or a series. A single
// mapped band is drawn through Palette; three mapped bands are drawn as RGB.
// Values are stretched from Min to Max.
type Descriptor struct {
	Raster           *raster.Raster
	Series           raster.Series
	Region           region.Region
	Reducer          composite.Reducer
	PixelScaleMeters float64
	BandMapping      []string
	Palette          Palette
	Min, Max         float64
}

func (d Descriptor) validate() error {
	if d.Raster == nil && len(d.Series) == 0 {
		return ErrNothingToRender
	}
	if n := len(d.BandMapping); n != 1 && n != 3 {
		return fmt.Errorf("%w: got %d", ErrBandMapping, n)
	}
	return nil
}

// Palette is a colour ramp sampled evenly between Min and Max.
type Palette []color.RGBA

var (
	// BlueGreenRed is the default ramp for index values.
	BlueGreenRed = Palette{{0, 0, 255, 255}, {0, 255, 0, 255}, {255, 0, 0, 255}}
	// RedYellowGreen suits vegetation indices where high is healthy.
	RedYellowGreen = Palette{{215, 48, 39, 255}, {254, 224, 139, 255}, {26, 152, 80, 255}}
	// NoDataColor marks pixels without a value.
	NoDataColor = color.RGBA{255, 255, 255, 0}
)

// At returns the ramp colour for a position in [0, 1].
func (p Palette) At(pos float64) color.RGBA {
	if len(p) == 0 {
		p = BlueGreenRed
	}
	if len(p) == 1 {
		return p[0]
	}
	pos = math.Max(0, math.Min(1, pos))
	scaled := pos * float64(len(p)-1)
	i := int(scaled)
	if i >= len(p)-1 {
		return p[len(p)-1]
	}
	t := scaled - float64(i)
	a, b := p[i], p[i+1]
	return color.RGBA{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
		A: lerp(a.A, b.A, t),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// stretch maps value onto [0, 1] between min and max.
func stretch(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	norm := (value - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}
