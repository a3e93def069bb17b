// Package openmeteo serves daily ERA5 reanalysis from the Open-Meteo archive
// API as coarse rasters sampled on a regular lon/lat grid.
package openmeteo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forest-guardian/geocomposite/internal/cache"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/forest-guardian/geocomposite/internal/source"
	"golang.org/x/sync/singleflight"
)

// Band names, all in degrees Celsius except precipitation (mm) and relative
// humidity (%).
const (
	Temperature   = "temperature_2m"
	DewPoint      = "dewpoint_temperature_2m"
	Precipitation = "total_precipitation"
	Humidity      = "relative_humidity_2m"
)

const (
	dateLayout = "2006-01-02"
	batchSize  = 100
)

type HourlyData struct {
	Time             []string   `json:"time"`
	RelativeHumidity []*float64 `json:"relative_humidity_2m"`
}

type DailyData struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m_mean"`
	DewPoint      []*float64 `json:"dew_point_2m_mean"`
	Precipitation []*float64 `json:"precipitation_sum"`
}

type WeatherResponse struct {
	Hourly HourlyData `json:"hourly"`
	Daily  DailyData  `json:"daily"`
}

// Provider samples one point per Resolution-degree cell of the region's
// bounding box. Responses are cached per cell batch and year.
type Provider struct {
	URL        string
	Resolution float64
	Client     *http.Client
	Cache      *cache.FileCache[[]WeatherResponse]

	group singleflight.Group
	mu    sync.Mutex
	years map[string][]WeatherResponse
}

func New(baseURL string, resolution float64, c *cache.FileCache[[]WeatherResponse]) *Provider {
	if resolution <= 0 {
		resolution = 0.1
	}
	return &Provider{URL: baseURL, Resolution: resolution, Client: http.DefaultClient, Cache: c}
}

// Search returns one scene per day of the range. No request is made.
func (p *Provider) Search(ctx context.Context, area region.Region, dates source.DateRange) ([]source.Scene, error) {
	var scenes []source.Scene
	start := time.Date(dates.Start.Year(), dates.Start.Month(), dates.Start.Day(), 0, 0, 0, 0, time.UTC)
	if start.Before(dates.Start) {
		start = start.AddDate(0, 0, 1)
	}
	for d := start; d.Before(dates.End); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scenes = append(scenes, source.Scene{ID: "era5_" + d.Format(dateLayout), Time: d})
	}
	return scenes, nil
}

func (p *Provider) Load(ctx context.Context, scene source.Scene, area region.Region) (*raster.Raster, error) {
	grid := p.Grid(area)
	xs, ys := centers(grid)
	year := scene.Time.Year()
	day := scene.Time.Format(dateLayout)

	bands := map[string][]float64{
		Temperature:   make([]float64, grid.Size()),
		DewPoint:      make([]float64, grid.Size()),
		Precipitation: make([]float64, grid.Size()),
		Humidity:      make([]float64, grid.Size()),
	}
	for lo := 0; lo < len(xs); lo += batchSize {
		hi := min(lo+batchSize, len(xs))
		responses, err := p.fetchYear(ctx, xs[lo:hi], ys[lo:hi], year)
		if err != nil {
			return nil, err
		}
		for i, resp := range responses {
			idx := lo + i
			daily := dailyIndex(resp.Daily.Time, day)
			bands[Temperature][idx] = at(resp.Daily.Temperature, daily)
			bands[DewPoint][idx] = at(resp.Daily.DewPoint, daily)
			bands[Precipitation][idx] = at(resp.Daily.Precipitation, daily)
			bands[Humidity][idx] = calculateMeanHumidity(resp.Hourly, day)
		}
	}
	return raster.New(grid,
		raster.Band{Name: Temperature, Data: bands[Temperature]},
		raster.Band{Name: DewPoint, Data: bands[DewPoint]},
		raster.Band{Name: Precipitation, Data: bands[Precipitation]},
		raster.Band{Name: Humidity, Data: bands[Humidity]},
	)
}

// Grid is the lon/lat grid the provider samples for area.
func (p *Provider) Grid(area region.Region) raster.Grid {
	b := area.Bound()
	w := max(1, cells(b.Max[0]-b.Min[0], p.Resolution))
	h := max(1, cells(b.Max[1]-b.Min[1], p.Resolution))
	return raster.NorthUp(w, h, b.Min[0], b.Max[1], p.Resolution, p.Resolution, "EPSG:4326")
}

// cells rounds span/res up, ignoring floating point residue.
func cells(span, res float64) int {
	return int(math.Ceil(span/res - 1e-9))
}

func centers(g raster.Grid) ([]float64, []float64) {
	xs := make([]float64, 0, g.Size())
	ys := make([]float64, 0, g.Size())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			cx, cy := g.PixelCenter(x, y)
			xs = append(xs, cx)
			ys = append(ys, cy)
		}
	}
	return xs, ys
}

// fetchYear returns a year of data for each point. Concurrent loads of days
// in the same year share one request.
func (p *Provider) fetchYear(ctx context.Context, lons, lats []float64, year int) ([]WeatherResponse, error) {
	key := cache.Key(lons, lats, year)
	p.mu.Lock()
	if cached, ok := p.years[key]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		out, err := p.request(ctx, lons, lats, year, key)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		if p.years == nil {
			p.years = make(map[string][]WeatherResponse)
		}
		p.years[key] = out
		p.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]WeatherResponse), nil
}

func (p *Provider) request(ctx context.Context, lons, lats []float64, year int, key string) ([]WeatherResponse, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	if p.Cache != nil {
		if cached, ok := p.Cache.Get(key); ok {
			return cached, nil
		}
	}

	q := url.Values{}
	q.Set("latitude", joinFloats(lats))
	q.Set("longitude", joinFloats(lons))
	q.Set("start_date", start.Format(dateLayout))
	q.Set("end_date", end.Format(dateLayout))
	q.Set("daily", "temperature_2m_mean,dew_point_2m_mean,precipitation_sum")
	q.Set("hourly", "relative_humidity_2m")
	q.Set("timezone", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusBadRequest {
		return nil, source.Permanent(fmt.Errorf("open-meteo rejected request: status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open-meteo status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse open-meteo response: %w", err)
	}
	var out []WeatherResponse
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		err = json.Unmarshal(raw, &out)
	} else {
		var single WeatherResponse
		err = json.Unmarshal(raw, &single)
		out = []WeatherResponse{single}
	}
	if err != nil {
		return nil, fmt.Errorf("parse open-meteo response: %w", err)
	}
	if len(out) != len(lons) {
		return nil, fmt.Errorf("open-meteo returned %d locations, asked for %d", len(out), len(lons))
	}
	if p.Cache != nil {
		_ = p.Cache.Set(key, out)
	}
	return out, nil
}

func joinFloats(v []float64) string {
	s := make([]string, len(v))
	for i, f := range v {
		s[i] = strconv.FormatFloat(f, 'f', 4, 64)
	}
	return strings.Join(s, ",")
}

func dailyIndex(days []string, day string) int {
	for i, d := range days {
		if d == day {
			return i
		}
	}
	return -1
}

func at(values []*float64, i int) float64 {
	if i < 0 || i >= len(values) || values[i] == nil {
		return raster.NoData
	}
	return *values[i]
}

// calculateMeanHumidity averages the hourly humidity of day.
func calculateMeanHumidity(hourly HourlyData, day string) float64 {
	var sum float64
	var n int
	for i, t := range hourly.Time {
		if !strings.HasPrefix(t, day) || i >= len(hourly.RelativeHumidity) || hourly.RelativeHumidity[i] == nil {
			continue
		}
		sum += *hourly.RelativeHumidity[i]
		n++
	}
	if n == 0 {
		return raster.NoData
	}
	return sum / float64(n)
}
