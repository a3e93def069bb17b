// Package region holds the area of interest a pipeline run is restricted to.
package region

import (
	"errors"
	"fmt"
	"math"

	"github.com/forest-guardian/geocomposite/internal/gdalio"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var (
	ErrEmptyRegion      = errors.New("region has no area")
	ErrUnsupportedShape = errors.New("geometry is not a polygon")
)

const (
	bufferSegments = 64
	// edgeSteps is how many pieces each edge is cut into before projection,
	// so straight lon/lat edges keep their shape in the target CRS.
	edgeSteps = 8
	lonLat    = "EPSG:4326"
)

// Region is an immutable polygonal area. Regions are built in lon/lat and
// projected into the CRS of a raster on use.
type Region struct {
	shape orb.MultiPolygon
}

func FromPolygon(p orb.Polygon) (Region, error) {
	return FromGeometry(p)
}

// FromGeometry accepts polygons and multipolygons.
func FromGeometry(g orb.Geometry) (Region, error) {
	var mp orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{v.Clone()}
	case orb.MultiPolygon:
		mp = v.Clone()
	case orb.Bound:
		mp = orb.MultiPolygon{v.ToPolygon()}
	default:
		return Region{}, fmt.Errorf("%w: %s", ErrUnsupportedShape, g.GeoJSONType())
	}
	if _, area := planar.CentroidArea(mp); area == 0 {
		return Region{}, ErrEmptyRegion
	}
	return Region{shape: mp}, nil
}

// PointBuffer approximates a circle of radius meters around a lon/lat point.
func PointBuffer(center orb.Point, meters float64) (Region, error) {
	if meters <= 0 {
		return Region{}, ErrEmptyRegion
	}
	ring := make(orb.Ring, 0, bufferSegments+1)
	for i := 0; i < bufferSegments; i++ {
		bearing := 360 * float64(i) / bufferSegments
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, meters))
	}
	ring = append(ring, ring[0])
	return FromPolygon(orb.Polygon{ring})
}

func (r Region) IsZero() bool {
	return len(r.shape) == 0
}

func (r Region) Geometry() orb.MultiPolygon {
	return r.shape.Clone()
}

func (r Region) Bound() orb.Bound {
	return r.shape.Bound()
}

// Centroid returns the area-weighted centre of the region.
func (r Region) Centroid() orb.Point {
	c, _ := planar.CentroidArea(r.shape)
	return c
}

func (r Region) Contains(p orb.Point) bool {
	return planar.MultiPolygonContains(r.shape, p)
}

// Intersects reports whether the region's bounding box overlaps b, given as
// minX, minY, maxX, maxY in the region's own coordinates.
func (r Region) Intersects(b [4]float64) bool {
	rb := r.Bound()
	return rb.Min[0] < b[2] && b[0] < rb.Max[0] && rb.Min[1] < b[3] && b[1] < rb.Max[1]
}

// IntersectsGrid reports whether the region overlaps the extent of grid,
// projecting the region into the grid's CRS first.
func (r Region) IntersectsGrid(grid raster.Grid) (bool, error) {
	p, err := r.Project(grid.Projection)
	if err != nil {
		return false, err
	}
	return p.Intersects(grid.Bounds()), nil
}

// Transformer converts coordinate arrays in place.
type Transformer interface {
	Transform(xs, ys []float64) error
}

// Transform returns the region with every vertex passed through t. Edges
// are densified first.
func (r Region) Transform(t Transformer) (Region, error) {
	out := make(orb.MultiPolygon, 0, len(r.shape))
	for _, poly := range r.shape {
		p := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			dense := densify(ring, edgeSteps)
			xs := make([]float64, len(dense))
			ys := make([]float64, len(dense))
			for i, pt := range dense {
				xs[i], ys[i] = pt[0], pt[1]
			}
			if err := t.Transform(xs, ys); err != nil {
				return Region{}, fmt.Errorf("transform region: %w", err)
			}
			for i := range dense {
				dense[i] = orb.Point{xs[i], ys[i]}
			}
			p = append(p, dense)
		}
		out = append(out, p)
	}
	return Region{shape: out}, nil
}

// Project returns the lon/lat region in projection. Empty and geographic
// projections leave the region as is.
func (r Region) Project(projection string) (Region, error) {
	if r.IsZero() || projection == "" {
		return r, nil
	}
	geographic, err := gdalio.Geographic(projection)
	if err != nil {
		return Region{}, err
	}
	if geographic {
		return r, nil
	}
	t, err := gdalio.NewTransformer(lonLat, projection)
	if err != nil {
		return Region{}, err
	}
	defer t.Close()
	return r.Transform(t)
}

func densify(ring orb.Ring, steps int) orb.Ring {
	if len(ring) < 2 {
		return ring.Clone()
	}
	out := make(orb.Ring, 0, (len(ring)-1)*steps+1)
	for i := 0; i < len(ring)-1; i++ {
		a, b := ring[i], ring[i+1]
		for s := 0; s < steps; s++ {
			f := float64(s) / float64(steps)
			out = append(out, orb.Point{a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f})
		}
	}
	return append(out, ring[len(ring)-1])
}

// Clip returns ras with every pixel whose centre lies outside the region set
// to no-data. The region is projected into the raster's CRS.
func (r Region) Clip(ras *raster.Raster) (*raster.Raster, error) {
	if r.IsZero() {
		return nil, ErrEmptyRegion
	}
	grid := ras.Grid()
	p, err := r.Project(grid.Projection)
	if err != nil {
		return nil, err
	}
	mask := make(raster.Mask, grid.Size())
	raster.Rows(grid.Height, func(y int) {
		for x := 0; x < grid.Width; x++ {
			gx, gy := grid.PixelCenter(x, y)
			mask[y*grid.Width+x] = p.Contains(orb.Point{gx, gy})
		}
	})
	return ras.WithMask(mask)
}

// AreaSquareMeters is the geodesic area of a lon/lat region.
func (r Region) AreaSquareMeters() float64 {
	return math.Abs(geo.Area(r.shape))
}

func (r Region) MarshalJSON() ([]byte, error) {
	return geojson.NewGeometry(r.shape).MarshalJSON()
}
