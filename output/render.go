package output

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/geocomposite/internal/gdalio"
	"github.com/forest-guardian/geocomposite/internal/raster"
)

const (
	legendHeight = 40
	legendMargin = 10
	metersPerDeg = 111320.0
)

// prepare resamples r to the descriptor's pixel scale and clips it to its
// region. Resampling produces a lon/lat grid.
func (d Descriptor) prepare(r *raster.Raster) (*raster.Raster, error) {
	var err error
	if d.PixelScaleMeters > 0 {
		if r, err = gdalio.Warp(r, "EPSG:4326", d.PixelScaleMeters/metersPerDeg); err != nil {
			return nil, err
		}
	}
	if !d.Region.IsZero() {
		if r, err = d.Region.Clip(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Image draws r according to d. No-data pixels are transparent.
func (d Descriptor) Image(r *raster.Raster) (*image.RGBA, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	bands := make([][]float64, len(d.BandMapping))
	for i, name := range d.BandMapping {
		data, err := r.Band(name)
		if err != nil {
			return nil, err
		}
		bands[i] = data
	}
	grid := r.Grid()
	img := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	raster.Rows(grid.Height, func(y int) {
		for x := 0; x < grid.Width; x++ {
			img.SetRGBA(x, y, d.pixel(bands, y*grid.Width+x))
		}
	})
	return img, nil
}

func (d Descriptor) pixel(bands [][]float64, i int) color.RGBA {
	for _, b := range bands {
		if raster.IsNoData(b[i]) {
			return NoDataColor
		}
	}
	if len(bands) == 1 {
		return d.Palette.At(stretch(bands[0][i], d.Min, d.Max))
	}
	return color.RGBA{
		R: uint8(255 * stretch(bands[0][i], d.Min, d.Max)),
		G: uint8(255 * stretch(bands[1][i], d.Min, d.Max)),
		B: uint8(255 * stretch(bands[2][i], d.Min, d.Max)),
		A: 255,
	}
}

// SavePNG renders the descriptor's raster to path with a colour bar legend
// under single-band images.
func SavePNG(d Descriptor, path string) error {
	if d.Raster == nil {
		return ErrNothingToRender
	}
	r, err := d.prepare(d.Raster)
	if err != nil {
		return err
	}
	return d.save(r, path, "")
}

func (d Descriptor) save(r *raster.Raster, path, title string) error {
	img, err := d.Image(r)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(path, ".png") {
		path += ".png"
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width < 120 {
		width = 120
	}
	total := height
	if len(d.BandMapping) == 1 {
		total += legendHeight
	}
	dc := gg.NewContext(width, total)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)
	if len(d.BandMapping) == 1 {
		d.drawLegend(dc, height, width, title)
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func (d Descriptor) drawLegend(dc *gg.Context, top, width int, title string) {
	barWidth := width - 2*legendMargin
	y := float64(top + 4)
	for i := 0; i < barWidth; i++ {
		c := d.Palette.At(float64(i) / float64(barWidth-1))
		dc.SetRGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		dc.DrawRectangle(float64(legendMargin+i), y, 1, 12)
		dc.Fill()
	}
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(float64(legendMargin), y, float64(barWidth), 12)
	dc.Stroke()

	labelY := y + 24
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", d.Min), float64(legendMargin), labelY, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", d.Max), float64(legendMargin+barWidth), labelY, 1, 0.5)
	label := d.BandMapping[0]
	if title != "" {
		label += " " + title
	}
	dc.DrawStringAnchored(label, float64(width)/2, labelY, 0.5, 0.5)
}

// SaveSeries renders every frame of the descriptor's series into dir, named
// prefix_YYYY_MM_DD.png, and returns the paths in time order.
func SaveSeries(d Descriptor, dir, prefix string) ([]string, error) {
	if len(d.Series) == 0 {
		return nil, ErrNothingToRender
	}
	var paths []string
	for _, frame := range d.Series.Sorted() {
		r, err := d.prepare(frame.Raster)
		if err != nil {
			return nil, err
		}
		date := frame.Time.Format("2006_01_02")
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", prefix, date))
		if err := d.save(r, path, frame.Time.Format("2006-01-02")); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
