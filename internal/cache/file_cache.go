// Package cache memoizes JSON-serializable values on disk.
package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type CacheEntry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	GenerateKey(params ...interface{}) string
}

// FileCache stores one JSON file per key under dir. Entries older than ttl
// or failing their checksum are misses; a zero ttl never expires.
type FileCache[T any] struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewFileCache[T any](dir string, ttl time.Duration) *FileCache[T] {
	return &FileCache[T]{dir: dir, ttl: ttl, now: time.Now}
}

func (fc *FileCache[T]) GenerateKey(params ...interface{}) string {
	return Key(params...)
}

// Key hashes the printed form of params.
func Key(params ...interface{}) string {
	var keyData string
	for _, param := range params {
		keyData += fmt.Sprintf("%v_", param)
	}
	h := sha1.Sum([]byte(keyData))
	return hex.EncodeToString(h[:])
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.dir, key+".json")
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, false
	}
	var entry CacheEntry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false
	}
	if entry.Checksum != checksum(entry.Data) {
		return zero, false
	}
	if fc.ttl > 0 && fc.now().Sub(entry.CreatedAt) > fc.ttl {
		return zero, false
	}
	return entry.Data, true
}

// Set writes through a temporary file so readers never see a partial entry.
func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	payload, err := json.Marshal(CacheEntry[T]{
		Data:      data,
		CreatedAt: fc.now(),
		Checksum:  checksum(data),
	})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	file := fc.path(key)
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

func checksum[T any](data T) string {
	payload, _ := json.Marshal(data)
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}
