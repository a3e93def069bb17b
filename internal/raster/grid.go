package raster

import "math"

// Grid is the pixel geometry shared by every band of a Raster. GeoTransform
// follows the GDAL convention: x = gt[0] + col*gt[1] + row*gt[2],
// y = gt[3] + col*gt[4] + row*gt[5].
type Grid struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	Projection   string
}

// NorthUp builds a grid without rotation terms from its top-left corner and pixel size.
func NorthUp(width, height int, originX, originY, pixelWidth, pixelHeight float64, projection string) Grid {
	return Grid{
		Width:        width,
		Height:       height,
		GeoTransform: [6]float64{originX, pixelWidth, 0, originY, 0, -math.Abs(pixelHeight)},
		Projection:   projection,
	}
}

func (g Grid) Size() int {
	return g.Width * g.Height
}

func (g Grid) Equal(o Grid) bool {
	return g.Width == o.Width && g.Height == o.Height && g.GeoTransform == o.GeoTransform && g.Projection == o.Projection
}

// ToGeo converts continuous pixel coordinates (col, row) to grid coordinates.
func (g Grid) ToGeo(col, row float64) (float64, float64) {
	gt := g.GeoTransform
	return gt[0] + col*gt[1] + row*gt[2], gt[3] + col*gt[4] + row*gt[5]
}

// PixelCenter returns the grid coordinates of the centre of pixel (x, y).
func (g Grid) PixelCenter(x, y int) (float64, float64) {
	return g.ToGeo(float64(x)+0.5, float64(y)+0.5)
}

// ToPixel converts grid coordinates to continuous pixel coordinates. The
// boolean is false when the transform is degenerate.
func (g Grid) ToPixel(gx, gy float64) (float64, float64, bool) {
	gt := g.GeoTransform
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 {
		return 0, 0, false
	}
	dx, dy := gx-gt[0], gy-gt[3]
	col := (dx*gt[5] - dy*gt[2]) / det
	row := (dy*gt[1] - dx*gt[4]) / det
	return col, row, true
}

// Bounds returns the extent covered by the grid as minX, minY, maxX, maxY.
func (g Grid) Bounds() [4]float64 {
	w, h := float64(g.Width), float64(g.Height)
	corners := [][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}}
	b := [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, c := range corners {
		x, y := g.ToGeo(c[0], c[1])
		b[0] = math.Min(b[0], x)
		b[1] = math.Min(b[1], y)
		b[2] = math.Max(b[2], x)
		b[3] = math.Max(b[3], y)
	}
	return b
}

// PixelSize returns the absolute pixel width and height in grid units.
func (g Grid) PixelSize() (float64, float64) {
	gt := g.GeoTransform
	return math.Hypot(gt[1], gt[4]), math.Hypot(gt[2], gt[5])
}
