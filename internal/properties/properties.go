// Package properties loads run configuration from defaults, an optional YAML
// file and GEOCOMPOSITE_* environment variables, in increasing precedence.
// A .env file in the working directory is read into the environment first.
package properties

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "GEOCOMPOSITE_"
	configFile = envPrefix + "CONFIG"
)

type Config struct {
	RootPath string `koanf:"root_path"`
	LogLevel string `koanf:"log_level"`
	Workers  int    `koanf:"workers"`

	// FetchTimeout bounds one source fetch, retries included.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	Retries      int           `koanf:"retries"`
	RetryDelay   time.Duration `koanf:"retry_delay"`

	CopernicusClientID     string `koanf:"copernicus_client_id"`
	CopernicusClientSecret string `koanf:"copernicus_client_secret"`
	CopernicusTokenURL     string `koanf:"copernicus_token_url"`
	CopernicusProcessURL   string `koanf:"copernicus_process_url"`
	CopernicusCatalogURL   string `koanf:"copernicus_catalog_url"`

	OpenMeteoURL string `koanf:"open_meteo_url"`

	DiscordErrorURL   string `koanf:"discord_error_url"`
	DiscordSuccessURL string `koanf:"discord_success_url"`

	MetricsFile  string `koanf:"metrics_file"`
	ManifestPath string `koanf:"manifest_path"`
}

func Default() *Config {
	return &Config{
		RootPath:             ".",
		LogLevel:             "info",
		Workers:              runtime.NumCPU(),
		FetchTimeout:         10 * time.Minute,
		Retries:              5,
		RetryDelay:           5 * time.Second,
		CopernicusTokenURL:   "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token",
		CopernicusProcessURL: "https://sh.dataspace.copernicus.eu/api/v1/process",
		CopernicusCatalogURL: "https://sh.dataspace.copernicus.eu/api/v1/catalog/1.0.0/search",
		OpenMeteoURL:         "https://archive-api.open-meteo.com/v1/archive",
	}
}

// Load builds the configuration. Keys map to environment variables by
// upper-casing and prefixing, e.g. fetch_timeout is GEOCOMPOSITE_FETCH_TIMEOUT.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if path := os.Getenv(configFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.RootPath == "":
		return errors.New("root_path must not be empty")
	case c.Retries < 0:
		return errors.New("retries must not be negative")
	case c.FetchTimeout <= 0:
		return errors.New("fetch_timeout must be positive")
	}
	return nil
}

// DataPath joins elem under <root_path>/data.
func (c *Config) DataPath(elem ...string) string {
	return filepath.Join(append([]string{c.RootPath, "data"}, elem...)...)
}

// Manifest returns the export manifest location, defaulting under the data
// directory.
func (c *Config) Manifest() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return c.DataPath("exports.db")
}
