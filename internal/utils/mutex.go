package utils

import "sync"

// GDAL handles are not safe for concurrent use, every dataset access goes
// through this lock.
var gdalMu sync.Mutex

func ExecuteWithGDAL(fn func() error) error {
	gdalMu.Lock()
	defer gdalMu.Unlock()
	return fn()
}
