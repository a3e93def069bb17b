package composite

import (
	"strconv"
	"time"
)

// Bucket is the half-open interval [Start, End). Start is the timestamp the
// composite is tagged with.
type Bucket struct {
	Start time.Time
	End   time.Time
	Label string
}

func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

func (b Bucket) String() string {
	if b.Label != "" {
		return b.Label
	}
	return b.Start.Format(time.DateOnly) + "/" + b.End.Format(time.DateOnly)
}

// Rule produces the buckets of a composite, in output order.
type Rule interface {
	Buckets() []Bucket
}

type RuleFunc func() []Bucket

func (f RuleFunc) Buckets() []Bucket { return f() }

// Yearly buckets calendar years first..last inclusive, in UTC.
func Yearly(first, last int) Rule {
	return RuleFunc(func() []Bucket {
		var buckets []Bucket
		for y := first; y <= last; y++ {
			buckets = append(buckets, Bucket{
				Start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC),
				Label: strconv.Itoa(y),
			})
		}
		return buckets
	})
}

type MonthDay struct {
	Month time.Month
	Day   int
}

// Seasonal buckets the same window of every year from first to last. The
// start day is included and the end day is not.
func Seasonal(first, last int, start, end MonthDay) Rule {
	return RuleFunc(func() []Bucket {
		var buckets []Bucket
		for y := first; y <= last; y++ {
			buckets = append(buckets, Bucket{
				Start: time.Date(y, start.Month, start.Day, 0, 0, 0, 0, time.UTC),
				End:   time.Date(y, end.Month, end.Day, 0, 0, 0, 0, time.UTC),
				Label: strconv.Itoa(y),
			})
		}
		return buckets
	})
}

// GrowingSeason is May 1 up to, but not including, September 15.
func GrowingSeason(first, last int) Rule {
	return Seasonal(first, last, MonthDay{time.May, 1}, MonthDay{time.September, 15})
}

// Explicit uses the given buckets as is.
func Explicit(buckets ...Bucket) Rule {
	return RuleFunc(func() []Bucket {
		out := make([]Bucket, len(buckets))
		copy(out, buckets)
		return out
	})
}
