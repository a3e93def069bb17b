// Package sentinel provides Sentinel-2 L2A scenes from the Copernicus Data
// Space catalog and process APIs.
package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/forest-guardian/geocomposite/internal/cache"
	"github.com/forest-guardian/geocomposite/internal/gdalio"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/forest-guardian/geocomposite/internal/source"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	collection = "sentinel-2-l2a"
	maxPixels  = 2500
	pageLimit  = 100
)

// DefaultBands covers the indices and quality masks used downstream.
var DefaultBands = []string{"B02", "B03", "B04", "B05", "B06", "B08", "B11", "B12", "CLD", "SCL"}

type Config struct {
	// ClientIDs and ClientSecrets are paired by position. Requests move to
	// the next pair when one is rejected or out of quota.
	ClientIDs     []string
	ClientSecrets []string
	TokenURL      string
	ProcessURL    string
	CatalogURL    string

	// Resolution in meters, 10 by default.
	Resolution float64
	Bands      []string

	// NotFound remembers searches that returned nothing.
	NotFound *cache.FileCache[bool]
}

type Provider struct {
	cfg     Config
	clients []*http.Client
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	if len(cfg.ClientIDs) == 0 || cfg.TokenURL == "" {
		return nil, errors.New("missing copernicus client id or token url")
	}
	if len(cfg.ClientIDs) != len(cfg.ClientSecrets) {
		return nil, errors.New("mismatched number of client IDs and secrets")
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = 10
	}
	if len(cfg.Bands) == 0 {
		cfg.Bands = DefaultBands
	}
	p := &Provider{cfg: cfg}
	for i, id := range cfg.ClientIDs {
		cc := &clientcredentials.Config{
			ClientID:     strings.TrimSpace(id),
			ClientSecret: strings.TrimSpace(cfg.ClientSecrets[i]),
			TokenURL:     cfg.TokenURL,
		}
		p.clients = append(p.clients, cc.Client(ctx))
	}
	return p, nil
}

type searchResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Datetime   time.Time `json:"datetime"`
			CloudCover *float64  `json:"eo:cloud_cover"`
		} `json:"properties"`
	} `json:"features"`
	Context struct {
		Next *int `json:"next"`
	} `json:"context"`
}

// Search lists scenes over the region's bounding box. Scene metadata carries
// CLOUD_COVER when the catalog reports it.
func (p *Provider) Search(ctx context.Context, area region.Region, dates source.DateRange) ([]source.Scene, error) {
	b := area.Bound()
	key := ""
	if p.cfg.NotFound != nil {
		key = p.cfg.NotFound.GenerateKey(collection, b, dates.Start.Unix(), dates.End.Unix())
		if empty, ok := p.cfg.NotFound.Get(key); ok && empty {
			return nil, nil
		}
	}

	var scenes []source.Scene
	var next *int
	for {
		body := map[string]interface{}{
			"collections": []string{collection},
			"datetime":    dates.Start.Format(time.RFC3339) + "/" + dates.End.Format(time.RFC3339),
			"bbox":        []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]},
			"limit":       pageLimit,
		}
		if next != nil {
			body["next"] = *next
		}
		payload, err := p.post(ctx, p.cfg.CatalogURL, body, "application/json")
		if err != nil {
			return nil, fmt.Errorf("catalog search: %w", err)
		}
		var res searchResponse
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, fmt.Errorf("parse catalog response: %w", err)
		}
		for _, f := range res.Features {
			s := source.Scene{ID: f.ID, Time: f.Properties.Datetime.UTC()}
			if f.Properties.CloudCover != nil {
				s.Metadata = map[string]float64{"CLOUD_COVER": *f.Properties.CloudCover}
			}
			scenes = append(scenes, s)
		}
		if res.Context.Next == nil || len(res.Features) == 0 {
			break
		}
		next = res.Context.Next
	}

	if len(scenes) == 0 && p.cfg.NotFound != nil {
		_ = p.cfg.NotFound.Set(key, true)
	}
	return scenes, nil
}

// Load requests the scene's day over the region as a float32 GeoTIFF.
func (p *Provider) Load(ctx context.Context, scene source.Scene, area region.Region) (*raster.Raster, error) {
	day := time.Date(scene.Time.Year(), scene.Time.Month(), scene.Time.Day(), 0, 0, 0, 0, time.UTC)
	b := area.Bound()
	width := calculatePixels(b.Max[0]-b.Min[0], p.cfg.Resolution)
	height := calculatePixels(b.Max[1]-b.Min[1], p.cfg.Resolution)

	request := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry": area,
			},
			"data": []map[string]interface{}{
				{
					"type": collection,
					"dataFilter": map[string]interface{}{
						"timeRange": map[string]string{
							"from": day.Format(time.RFC3339),
							"to":   day.Add(24 * time.Hour).Format(time.RFC3339),
						},
					},
				},
			},
		},
		"output": map[string]interface{}{
			"width":  width,
			"height": height,
			"responses": []map[string]interface{}{
				{"identifier": "default", "format": map[string]string{"type": "image/tiff"}},
			},
		},
		"evalscript": evalscript(p.cfg.Bands),
		"mosaicking": "mostRecent",
	}
	payload, err := p.post(ctx, p.cfg.ProcessURL, request, "image/tiff")
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", scene.ID, err)
	}

	tmp, err := os.CreateTemp("", "s2-*.tif")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return gdalio.Read(tmp.Name(), p.cfg.Bands...)
}

// post sends body with each credential pair in turn until one succeeds.
// Authentication failures with every pair are permanent.
func (p *Provider) post(ctx context.Context, url string, body interface{}, accept string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var lastErr error
	rejected := 0
	for _, client := range p.clients {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", accept)
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		content, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response body: %w", err)
			continue
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			return content, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			rejected++
			lastErr = fmt.Errorf("unauthorized access, check your client ID and secret: %s", content)
		default:
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, content)
		}
	}
	if rejected == len(p.clients) {
		return nil, source.Permanent(lastErr)
	}
	return nil, lastErr
}

// calculatePixels converts a span in degrees to pixels at resolution meters,
// within the 1..2500 range the process API accepts.
func calculatePixels(degrees, resolution float64) int {
	pixels := int(degrees * (111_000.0 / resolution))
	return max(1, min(pixels, maxPixels))
}

func evalscript(bands []string) string {
	quoted := make([]string, len(bands))
	samples := make([]string, len(bands))
	for i, b := range bands {
		quoted[i] = `"` + b + `"`
		samples[i] = "sample." + b
	}
	return fmt.Sprintf(`//VERSION=3
function setup() {
  return {
    input: [%s],
    output: { id: "default", bands: %d, sampleType: SampleType.FLOAT32 },
  }
}

function evaluatePixel(sample) {
  return [%s];
}
`, strings.Join(quoted, ", "), len(bands), strings.Join(samples, ", "))
}
