package change

import "errors"

var (
	ErrBucketNotFound = errors.New("bucket not found in composite series")
	ErrEmptySeries    = errors.New("composite series is empty")
)
