package output

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/gocarina/gocsv"
)

var ErrBucketWidth = errors.New("histogram bucket width must be positive")

// ChartRow is the regional reduction of one band at one time.
type ChartRow struct {
	Date   string  `csv:"date"`
	Band   string  `csv:"band"`
	Value  float64 `csv:"value"`
	Pixels int     `csv:"pixels"`
}

// Chart reduces every mapped band over the region for each frame of the
// series, or for the single raster when no series is set. Frames without a
// valid pixel report NaN.
func Chart(d Descriptor) ([]ChartRow, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	reducer := d.Reducer
	if reducer == nil {
		reducer = composite.Mean
	}
	frames := d.Series.Sorted()
	if len(frames) == 0 {
		frames = raster.Series{{Raster: d.Raster}}
	}

	var rows []ChartRow
	for _, frame := range frames {
		r, err := d.prepare(frame.Raster)
		if err != nil {
			return nil, err
		}
		date := ""
		if !frame.Time.IsZero() {
			date = frame.Time.Format("2006-01-02")
		}
		for _, band := range d.BandMapping {
			values, err := valid(r, band)
			if err != nil {
				return nil, err
			}
			row := ChartRow{Date: date, Band: band, Value: math.NaN(), Pixels: len(values)}
			if len(values) > 0 {
				row.Value = reducer.Reduce(values)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// HistogramBin counts values in [Start, End).
type HistogramBin struct {
	Band  string  `csv:"band"`
	Start float64 `csv:"start"`
	End   float64 `csv:"end"`
	Count int     `csv:"count"`
}

// Histogram bins the valid pixels of each mapped band of the descriptor's
// raster. Bins are aligned to multiples of the bucket width, which starts at
// minBucketWidth and doubles while the bin count exceeds maxBuckets.
func Histogram(d Descriptor, minBucketWidth float64, maxBuckets int) ([]HistogramBin, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if d.Raster == nil {
		return nil, ErrNothingToRender
	}
	if minBucketWidth <= 0 {
		return nil, ErrBucketWidth
	}
	r, err := d.prepare(d.Raster)
	if err != nil {
		return nil, err
	}

	var bins []HistogramBin
	for _, band := range d.BandMapping {
		values, err := valid(r, band)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)
		width := minBucketWidth
		lo, hi := values[0], values[len(values)-1]
		for maxBuckets > 0 && int(math.Floor(hi/width)-math.Floor(lo/width))+1 > maxBuckets {
			width *= 2
		}
		counts := map[float64]int{}
		for _, v := range values {
			counts[math.Floor(v/width)]++
		}
		keys := make([]float64, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Float64s(keys)
		for _, k := range keys {
			bins = append(bins, HistogramBin{Band: band, Start: k * width, End: (k + 1) * width, Count: counts[k]})
		}
	}
	return bins, nil
}

func valid(r *raster.Raster, band string) ([]float64, error) {
	data, err := r.Band(band)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(data))
	for _, v := range data {
		if !raster.IsNoData(v) {
			values = append(values, v)
		}
	}
	return values, nil
}

// WriteCSV writes rows, a slice of ChartRow or HistogramBin, to path.
func WriteCSV(rows any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gocsv.MarshalFile(rows, file)
}
