// Package local serves scenes from a directory of GeoTIFF files whose names
// carry the acquisition date, such as LC08_20150601.tif or s2_2015-06-01.tif.
// An optional sidecar <name>.json holds numeric scene metadata.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/forest-guardian/geocomposite/internal/gdalio"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/forest-guardian/geocomposite/internal/source"
)

var datePattern = regexp.MustCompile(`(\d{4})-?(\d{2})-?(\d{2})`)

// Provider reads scenes from Dir. Bands are named from BandNames when set,
// otherwise from the GeoTIFF band descriptions.
type Provider struct {
	Dir       string
	BandNames []string
}

func New(dir string, bandNames ...string) *Provider {
	return &Provider{Dir: dir, BandNames: bandNames}
}

func (p *Provider) Search(ctx context.Context, area region.Region, dates source.DateRange) ([]source.Scene, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, source.Permanent(err)
		}
		return nil, err
	}
	var scenes []source.Scene
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if e.IsDir() || (ext != ".tif" && ext != ".tiff") {
			continue
		}
		when, ok := parseDate(name)
		if !ok || !dates.Contains(when) {
			continue
		}
		path := filepath.Join(p.Dir, name)
		if !area.IsZero() {
			grid, err := gdalio.Info(path)
			if err != nil {
				return nil, err
			}
			ok, err := area.IntersectsGrid(grid)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if !ok {
				continue
			}
		}
		meta, err := sidecar(path)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, source.Scene{
			ID:       strings.TrimSuffix(name, filepath.Ext(name)),
			Time:     when,
			Metadata: meta,
			Ref:      path,
		})
	}
	return scenes, nil
}

func (p *Provider) Load(ctx context.Context, scene source.Scene, area region.Region) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if area.IsZero() {
		return gdalio.Read(scene.Ref, p.BandNames...)
	}
	grid, err := gdalio.Info(scene.Ref)
	if err != nil {
		return nil, err
	}
	projected, err := area.Project(grid.Projection)
	if err != nil {
		return nil, err
	}
	b := projected.Bound()
	return gdalio.ReadWindow(scene.Ref, [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}, p.BandNames...)
}

func parseDate(name string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", m[1]+m[2]+m[3])
	return t, err == nil
}

func sidecar(path string) (map[string]float64, error) {
	data, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".json")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta map[string]float64
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", path, err)
	}
	return meta, nil
}
