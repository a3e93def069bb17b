package raster

import (
	"fmt"
	"math"
)

// NoData is the value carried by invalid pixels. Any arithmetic touching it
// yields NoData again.
var NoData = math.NaN()

// IsNoData reports whether v is the no-data value.
func IsNoData(v float64) bool {
	return math.IsNaN(v)
}

type Band struct {
	Name string
	Data []float64
}

// Raster is a set of named bands over one Grid. A Raster is never modified
// after construction: every operation returns a new value, so band slices
// may be shared between rasters.
type Raster struct {
	grid  Grid
	bands []Band
	index map[string]int
}

// New returns a raster on grid with the given bands. Band data is used as is.
func New(grid Grid, bands ...Band) (*Raster, error) {
	r := &Raster{grid: grid, index: make(map[string]int, len(bands))}
	for _, b := range bands {
		if len(b.Data) != grid.Size() {
			return nil, fmt.Errorf("%w: band %s has %d values, grid has %d pixels", ErrBandLength, b.Name, len(b.Data), grid.Size())
		}
		if i, ok := r.index[b.Name]; ok {
			r.bands[i] = b
			continue
		}
		r.index[b.Name] = len(r.bands)
		r.bands = append(r.bands, b)
	}
	return r, nil
}

// Filled returns a raster whose bands all hold value.
func Filled(grid Grid, value float64, names ...string) *Raster {
	bands := make([]Band, len(names))
	for i, name := range names {
		data := make([]float64, grid.Size())
		for j := range data {
			data[j] = value
		}
		bands[i] = Band{Name: name, Data: data}
	}
	r, _ := New(grid, bands...)
	return r
}

func (r *Raster) Grid() Grid {
	return r.grid
}

func (r *Raster) BandNames() []string {
	names := make([]string, len(r.bands))
	for i, b := range r.bands {
		names[i] = b.Name
	}
	return names
}

func (r *Raster) HasBand(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Band returns the data of the named band. The slice must not be modified.
func (r *Raster) Band(name string) ([]float64, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingBand, name)
	}
	return r.bands[i].Data, nil
}

// At returns the value of band at pixel (x, y), or NoData when the band is absent.
func (r *Raster) At(band string, x, y int) float64 {
	data, err := r.Band(band)
	if err != nil || x < 0 || y < 0 || x >= r.grid.Width || y >= r.grid.Height {
		return NoData
	}
	return data[y*r.grid.Width+x]
}

// WithBand returns a copy of r with band name set to data, appended when new
// and replaced in place otherwise.
func (r *Raster) WithBand(name string, data []float64) (*Raster, error) {
	bands := make([]Band, len(r.bands), len(r.bands)+1)
	copy(bands, r.bands)
	bands = append(bands, Band{Name: name, Data: data})
	return New(r.grid, bands...)
}

// Select returns a raster holding only the named bands, in the given order.
func (r *Raster) Select(names ...string) (*Raster, error) {
	bands := make([]Band, 0, len(names))
	for _, name := range names {
		data, err := r.Band(name)
		if err != nil {
			return nil, err
		}
		bands = append(bands, Band{Name: name, Data: data})
	}
	return New(r.grid, bands...)
}

// Rename returns a copy of r with band from renamed to to.
func (r *Raster) Rename(from, to string) (*Raster, error) {
	if _, err := r.Band(from); err != nil {
		return nil, err
	}
	bands := make([]Band, len(r.bands))
	for i, b := range r.bands {
		if b.Name == from {
			b.Name = to
		}
		bands[i] = b
	}
	return New(r.grid, bands...)
}

// Merge returns a raster carrying the bands of r followed by those of other.
// Both rasters must share the same grid.
func (r *Raster) Merge(other *Raster) (*Raster, error) {
	if !r.grid.Equal(other.grid) {
		return nil, ErrGridMismatch
	}
	bands := make([]Band, 0, len(r.bands)+len(other.bands))
	bands = append(bands, r.bands...)
	bands = append(bands, other.bands...)
	return New(r.grid, bands...)
}

// WithMask returns a copy of r where every pixel invalid in mask is NoData in all bands.
func (r *Raster) WithMask(mask Mask) (*Raster, error) {
	if len(mask) != r.grid.Size() {
		return nil, fmt.Errorf("%w: mask has %d values, grid has %d pixels", ErrBandLength, len(mask), r.grid.Size())
	}
	bands := make([]Band, len(r.bands))
	for i, b := range r.bands {
		data := make([]float64, len(b.Data))
		src := b.Data
		Rows(r.grid.Height, func(y int) {
			for x := y * r.grid.Width; x < (y+1)*r.grid.Width; x++ {
				if mask[x] {
					data[x] = src[x]
				} else {
					data[x] = NoData
				}
			}
		})
		bands[i] = Band{Name: b.Name, Data: data}
	}
	return New(r.grid, bands...)
}

// ValidCount returns the number of pixels of band that are not NoData.
func (r *Raster) ValidCount(band string) (int, error) {
	data, err := r.Band(band)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range data {
		if !IsNoData(v) {
			n++
		}
	}
	return n, nil
}
