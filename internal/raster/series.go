package raster

import (
	"time"

	"github.com/forest-guardian/geocomposite/internal/utils"
)

// Timed is one acquisition of a series.
type Timed struct {
	Time   time.Time
	Raster *Raster
}

// Series is an ordered sequence of timed rasters. It is not required to be
// sorted; call Sorted before any chronological operation.
type Series []Timed

// Sorted returns a copy of s ordered by timestamp. Equal timestamps keep
// their input order.
func (s Series) Sorted() Series {
	out := make(Series, len(s))
	copy(out, s)
	utils.SortStable(out, func(t Timed) time.Time { return t.Time })
	return out
}

// Between returns the acquisitions with start <= t < end.
func (s Series) Between(start, end time.Time) Series {
	var out Series
	for _, t := range s {
		if !t.Time.Before(start) && t.Time.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

func (s Series) Times() []time.Time {
	times := make([]time.Time, len(s))
	for i, t := range s {
		times[i] = t.Time
	}
	return times
}
