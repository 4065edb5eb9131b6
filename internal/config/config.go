package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-station-charts/internal/compile"
	"github.com/i474232898/weather-station-charts/internal/fetch"
	"github.com/i474232898/weather-station-charts/internal/pipeline"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	RawDir    string `validate:"required"`
	DataDir   string `validate:"required"`
	GraphsDir string `validate:"required"`

	// Stations whose raw/<station>.csv export is compiled.
	Stations []string `validate:"required,min=1,dive,required"`
	// StationColumns are kept from each export; the second one is the timestamp.
	StationColumns []string `validate:"min=2,dive,required"`

	PrecipitationFile    string
	PrecipitationColumns []string `validate:"len=3,dive,required"`
	PrecipitationAliases compile.StationAliases

	Years weather.YearRange

	ScatterPairs []pipeline.ScatterPair
	WorkbookPath string
	ChartCatalog string

	// RawSourceURL downloads raw exports; {station} is substituted.
	RawSourceURL string
	HTTPTimeout  time.Duration `validate:"gt=0"`

	// RefreshInterval controls how often serve rebuilds everything (0 = never).
	RefreshInterval time.Duration `validate:"gte=0"`
	RunHistory      int           `validate:"gte=0"`
	Parallel        int           `validate:"gt=0"`

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := &AppConfig{
		RawDir:       getenvDefault("RAW_DIR", "raw"),
		DataDir:      getenvDefault("DATA_DIR", "data"),
		GraphsDir:    getenvDefault("GRAPHS_DIR", "graphs"),
		ChartCatalog: os.Getenv("CHART_CATALOG"),
		RawSourceURL: os.Getenv("RAW_SOURCE_URL"),
		Port:         getenvDefault("PORT", "8080"),
		RunHistory:   getenvInt("RUN_HISTORY", 50),
		Parallel:     getenvInt("PARALLEL", runtime.NumCPU()),
	}

	cfg.Stations = getenvList("STATIONS", "JUL2,URS2,VAL2")
	cfg.StationColumns = getenvList("STATION_COLUMNS", "station_code,measure_date,HS,TA_30MIN_MEAN,DW_30MIN_MEAN")
	cfg.PrecipitationFile = getenvDefault("PRECIPITATION_FILE", "niederschlag.csv")
	if strings.EqualFold(cfg.PrecipitationFile, "none") {
		cfg.PrecipitationFile = ""
	}
	cfg.PrecipitationColumns = getenvList("PRECIPITATION_COLUMNS", "stn,time,rre024i0")

	aliases, err := parseAliases(getenvDefault("PRECIPITATION_STATIONS", "JU2=JUL2,UR2=URS2"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRECIPITATION_STATIONS: %w", err)
	}
	cfg.PrecipitationAliases = aliases

	cfg.Years = weather.YearRange{
		From: getenvInt("YEAR_FROM", 2008),
		To:   getenvInt("YEAR_TO", 2024),
	}

	pairs, err := parseScatterPairs(getenvDefault("SCATTER_PAIRS", "TA_30MIN_MEAN:HS"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCATTER_PAIRS: %w", err)
	}
	cfg.ScatterPairs = pairs

	cfg.WorkbookPath = getenvDefault("WORKBOOK_PATH", filepath.Join(cfg.GraphsDir, "aggregates.xlsx"))
	if strings.EqualFold(cfg.WorkbookPath, "none") {
		cfg.WorkbookPath = ""
	}

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	interval, err := time.ParseDuration(getenvDefault("REFRESH_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = interval

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the year range.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := validate.Struct(c.Years); err != nil {
		return fmt.Errorf("invalid year range %d-%d: %w", c.Years.From, c.Years.To, err)
	}
	return nil
}

// CompileSettings returns the settings of the raw export compiler.
func (c *AppConfig) CompileSettings() compile.Settings {
	return compile.Settings{
		RawDir:               c.RawDir,
		DataDir:              c.DataDir,
		Stations:             c.Stations,
		StationColumns:       c.StationColumns,
		PrecipitationFile:    c.PrecipitationFile,
		PrecipitationColumns: c.PrecipitationColumns,
		Aliases:              c.PrecipitationAliases,
		Years:                c.Years,
	}
}

// PipelineSettings returns the settings of the chart pipeline.
func (c *AppConfig) PipelineSettings() pipeline.Settings {
	return pipeline.Settings{
		Compile:      c.CompileSettings(),
		GraphsDir:    c.GraphsDir,
		WorkbookPath: c.WorkbookPath,
		ScatterPairs: c.ScatterPairs,
		Parallel:     c.Parallel,
	}
}

// FetchSettings returns the settings of the raw export downloader.
func (c *AppConfig) FetchSettings() fetch.Settings {
	return fetch.Settings{
		URLTemplate: c.RawSourceURL,
		RawDir:      c.RawDir,
		Parallel:    c.Parallel,
	}
}

// parseAliases parses "JU2=JUL2,UR2=URS2".
func parseAliases(s string) (compile.StationAliases, error) {
	aliases := compile.StationAliases{}
	for _, item := range splitList(s) {
		from, to, ok := strings.Cut(item, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("expected ALIAS=STATION, got %q", item)
		}
		aliases[from] = to
	}
	return aliases, nil
}

// parseScatterPairs parses "TA_30MIN_MEAN:HS,...".
func parseScatterPairs(s string) ([]pipeline.ScatterPair, error) {
	var pairs []pipeline.ScatterPair
	for _, item := range splitList(s) {
		key, value, ok := strings.Cut(item, ":")
		pair := pipeline.ScatterPair{
			Key:   weather.Field(strings.TrimSpace(key)),
			Value: weather.Field(strings.TrimSpace(value)),
		}
		if !ok || !pair.Key.Valid() || !pair.Value.Valid() {
			return nil, fmt.Errorf("expected FIELD:FIELD, got %q", item)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvList(key, def string) []string {
	return splitList(getenvDefault(key, def))
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
