package gdalio

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/geocomposite/internal/utils"
)

// Transformer converts coordinates between two coordinate systems. It
// satisfies reconcile.Transformer.
type Transformer struct {
	src, dst *godal.SpatialRef
	tr       *godal.Transform
}

// NewTransformer accepts EPSG codes ("EPSG:32723"), WKT or PROJ strings.
func NewTransformer(from, to string) (*Transformer, error) {
	t := &Transformer{}
	err := utils.ExecuteWithGDAL(func() error {
		var err error
		if t.src, err = godal.NewSpatialRef(from); err != nil {
			return fmt.Errorf("source crs %q: %w", from, err)
		}
		if t.dst, err = godal.NewSpatialRef(to); err != nil {
			t.src.Close()
			return fmt.Errorf("target crs %q: %w", to, err)
		}
		if t.tr, err = godal.NewTransform(t.src, t.dst); err != nil {
			t.src.Close()
			t.dst.Close()
			return fmt.Errorf("transform %q to %q: %w", from, to, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transformer) Transform(xs, ys []float64) error {
	return utils.ExecuteWithGDAL(func() error {
		return t.tr.TransformEx(xs, ys, nil, nil)
	})
}

func (t *Transformer) Close() {
	_ = utils.ExecuteWithGDAL(func() error {
		t.tr.Close()
		t.src.Close()
		t.dst.Close()
		return nil
	})
}

// Geographic reports whether projection is a lon/lat coordinate system.
func Geographic(projection string) (bool, error) {
	var geographic bool
	err := utils.ExecuteWithGDAL(func() error {
		sr, err := godal.NewSpatialRef(projection)
		if err != nil {
			return fmt.Errorf("crs %q: %w", projection, err)
		}
		defer sr.Close()
		geographic = sr.Geographic()
		return nil
	})
	return geographic, err
}
