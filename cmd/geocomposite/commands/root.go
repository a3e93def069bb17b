package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/geocomposite/internal/cache"
	"github.com/forest-guardian/geocomposite/internal/export"
	"github.com/forest-guardian/geocomposite/internal/logging"
	"github.com/forest-guardian/geocomposite/internal/metrics"
	"github.com/forest-guardian/geocomposite/internal/notification"
	"github.com/forest-guardian/geocomposite/internal/pipeline"
	"github.com/forest-guardian/geocomposite/internal/properties"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/source"
	"github.com/forest-guardian/geocomposite/internal/source/local"
	"github.com/forest-guardian/geocomposite/internal/source/openmeteo"
	"github.com/forest-guardian/geocomposite/internal/source/sentinel"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	openMeteoDataset  = "OPEN_METEO/ERA5"
	copernicusDataset = "COPERNICUS/S2_SR"
	cacheTTL          = 30 * 24 * time.Hour
)

// env is built once per invocation before any subcommand runs.
type env struct {
	cfg      *properties.Config
	log      *logrus.Logger
	metrics  *metrics.Manager
	catalog  *source.Catalog
	pipeline *pipeline.Pipeline
	exporter *export.GeoTIFF
	manifest *export.Manifest
	notifier *notification.Discord
}

var (
	app       *env
	localDirs map[string]string
	quiet     bool
)

func printBanner() {
	bannercolor.Cyan(figure.NewFigure("geocomposite", "small", true).String())
	fmt.Println()
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "geocomposite",
		Short:         "Temporal composites, spectral indices and change products from satellite rasters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !quiet {
				printBanner()
			}
			var err error
			app, err = setup(cmd.Context())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
	}
	root.PersistentFlags().StringToStringVar(&localDirs, "local", nil, "serve DATASET=DIR from GeoTIFFs in DIR (repeatable)")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "no banner or progress bars")

	root.AddCommand(datasetsCmd(), compositeCmd(), changeCmd(), thiCmd())

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		bannercolor.Red("Error: %v", err)
		if app != nil {
			if nerr := app.notifier.Error(context.Background(), fmt.Sprintf("%s: %v", cmd.CommandPath(), err)); nerr != nil {
				app.log.WithError(nerr).Warn("error notification failed")
			}
			_ = app.close()
		}
	}
	return err
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := properties.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}
	raster.SetWorkers(cfg.Workers)
	m := metrics.NewManager()

	catalog := source.NewCatalog(
		source.WithRetries(cfg.Retries, cfg.RetryDelay),
		source.WithTimeout(cfg.FetchTimeout),
		source.WithConcurrency(cfg.Workers),
		source.WithLogger(log),
		source.WithMetrics(m),
	)
	weatherCache := cache.NewFileCache[[]openmeteo.WeatherResponse](cfg.DataPath("cache", "openmeteo"), cacheTTL)
	catalog.Register(openMeteoDataset, openmeteo.New(cfg.OpenMeteoURL, 0.1, weatherCache))
	if cfg.CopernicusClientID != "" {
		p, err := sentinel.New(ctx, sentinel.Config{
			ClientIDs:     strings.Split(cfg.CopernicusClientID, ","),
			ClientSecrets: strings.Split(cfg.CopernicusClientSecret, ","),
			TokenURL:      cfg.CopernicusTokenURL,
			ProcessURL:    cfg.CopernicusProcessURL,
			CatalogURL:    cfg.CopernicusCatalogURL,
			NotFound:      cache.NewFileCache[bool](cfg.DataPath("cache", "sentinel"), cacheTTL),
		})
		if err != nil {
			return nil, err
		}
		catalog.Register(copernicusDataset, p)
	}
	for id, dir := range localDirs {
		catalog.Register(id, local.New(dir))
	}

	if err := os.MkdirAll(cfg.DataPath(), os.ModePerm); err != nil {
		return nil, err
	}
	manifest, err := export.OpenManifest(cfg.Manifest())
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		catalog:  catalog,
		manifest: manifest,
		exporter: &export.GeoTIFF{Manifest: manifest, Metrics: m, Log: log},
		notifier: &notification.Discord{
			ErrorURL:   cfg.DiscordErrorURL,
			SuccessURL: cfg.DiscordSuccessURL,
			Client:     &http.Client{Timeout: 30 * time.Second},
		},
	}
	e.pipeline = &pipeline.Pipeline{Catalog: catalog, Metrics: m, Log: log}
	if !quiet {
		e.pipeline.Progress = os.Stderr
	}
	log.WithField("datasets", catalog.Datasets()).Debug("catalog ready")
	return e, nil
}

func (e *env) close() error {
	if e == nil {
		return nil
	}
	err := e.metrics.WriteTextfile(e.cfg.MetricsFile)
	if cerr := e.manifest.Close(); err == nil {
		err = cerr
	}
	e.manifest = nil
	return err
}

func (e *env) success(ctx context.Context, msg string) {
	bannercolor.Green(msg)
	if err := e.notifier.Success(ctx, msg); err != nil {
		e.log.WithError(err).Warn("success notification failed")
	}
}

func datasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets the catalog can fetch",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range app.catalog.Datasets() {
				fmt.Println(id)
			}
			return nil
		},
	}
}
