package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
)

// Memory is a provider over rasters held in memory, used for fixtures and
// for feeding composites back into a pipeline.
type Memory struct {
	mu      sync.RWMutex
	scenes  []Scene
	rasters map[string]*raster.Raster
}

func NewMemory() *Memory {
	return &Memory{rasters: make(map[string]*raster.Raster)}
}

func (m *Memory) Add(scene Scene, r *raster.Raster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rasters[scene.ID]; !ok {
		m.scenes = append(m.scenes, scene)
	}
	m.rasters[scene.ID] = r
}

func (m *Memory) Search(ctx context.Context, area region.Region, dates DateRange) ([]Scene, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Scene
	for _, s := range m.scenes {
		if !dates.Contains(s.Time) {
			continue
		}
		if !area.IsZero() {
			ok, err := area.IntersectsGrid(m.rasters[s.ID].Grid())
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, s)
	}
	return out, ctx.Err()
}

func (m *Memory) Load(ctx context.Context, scene Scene, _ region.Region) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rasters[scene.ID]
	if !ok {
		return nil, Permanent(fmt.Errorf("scene %s not found", scene.ID))
	}
	return r, nil
}
