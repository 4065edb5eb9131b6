package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/i474232898/weather-station-charts/internal/chart"
	"github.com/i474232898/weather-station-charts/internal/config"
	"github.com/i474232898/weather-station-charts/internal/fetch"
	"github.com/i474232898/weather-station-charts/internal/pipeline"
	"github.com/i474232898/weather-station-charts/internal/store"
)

var (
	debug bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "weather-station-charts",
	Short: "Compile weather station exports and plot them",
	Long: `weather-station-charts filters raw station exports to one sample per day,
aggregates them per day, week and month and renders stacked and linear charts.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if debug {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	runCmd.Flags().BoolVar(&fetchFirst, "fetch", false, "download raw exports before compiling")
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "", "workbook path (defaults to WORKBOOK_PATH)")

	rootCmd.AddCommand(compileCmd, plotCmd, runCmd, fetchCmd, exportCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the components every command is built from.
type app struct {
	cfg      *config.AppConfig
	store    *store.MemoryStore
	pipeline *pipeline.Pipeline
	fetcher  *fetch.Fetcher
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	catalog, err := chart.LoadCatalog(cfg.ChartCatalog)
	if err != nil {
		return nil, err
	}

	mem := store.NewMemoryStore(cfg.RunHistory)
	renderer := chart.NewRenderer(catalog, cfg.Years)
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	return &app{
		cfg:      cfg,
		store:    mem,
		pipeline: pipeline.New(cfg.PipelineSettings(), renderer, mem, logger),
		fetcher:  fetch.NewFetcher(httpClient, cfg.FetchSettings(), logger),
	}, nil
}
