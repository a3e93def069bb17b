package utils

import (
	"sort"
	"time"
)

// SortStable orders items ascending by the time returned from key, keeping
// the input order of equal timestamps.
func SortStable[T any](items []T, key func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return key(items[i]).Before(key(items[j]))
	})
}
