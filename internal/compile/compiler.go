package compile

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/i474232898/weather-station-charts/internal/csvio"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

// Settings locate the raw exports and the compiled output.
type Settings struct {
	RawDir   string
	DataDir  string
	Stations []string
	// StationColumns are kept from every station export; the second entry is
	// the timestamp column.
	StationColumns       []string
	PrecipitationFile    string
	PrecipitationColumns []string
	Aliases              StationAliases
	Years                weather.YearRange
}

// CommonDir holds the compiled station files.
func (s Settings) CommonDir() string {
	return filepath.Join(s.DataDir, "common")
}

// PrecipitationDir holds the compiled per-station precipitation files.
func (s Settings) PrecipitationDir() string {
	return filepath.Join(s.DataDir, string(weather.FieldPrecipitation))
}

// Compiler turns raw exports into the filtered files charts are built from.
type Compiler struct {
	settings Settings
	logger   *zap.Logger
}

// NewCompiler creates a new Compiler.
func NewCompiler(settings Settings, logger *zap.Logger) *Compiler {
	return &Compiler{settings: settings, logger: logger}
}

// Run compiles every station export and then the precipitation export. It
// returns the number of files written. A missing or malformed input file
// aborts the run.
func (c *Compiler) Run(ctx context.Context) (int, error) {
	c.logger.Info("starting to compile", zap.Int("stations", len(c.settings.Stations)))

	written := 0
	for _, station := range c.settings.Stations {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := c.CompileStation(station); err != nil {
			return written, err
		}
		written++
	}

	if c.settings.PrecipitationFile != "" {
		n, err := c.CompilePrecipitation()
		if err != nil {
			return written, err
		}
		written += n
	}

	c.logger.Info("successfully compiled the files", zap.Int("files", written))
	return written, nil
}

// CompileStation filters raw/<station>.csv into data/common/<station>.csv.
func (c *Compiler) CompileStation(station string) error {
	src := filepath.Join(c.settings.RawDir, station+".csv")
	dst := filepath.Join(c.settings.CommonDir(), station+".csv")

	opts := StationOptions(c.settings.StationColumns, c.settings.Years)
	tbl, err := csvio.ReadTable(src, opts.Separator)
	if err != nil {
		return fmt.Errorf("compile %s: %w", station, err)
	}

	out, stats, err := FilterTable(tbl, opts)
	if err != nil {
		return fmt.Errorf("compile %s: %w", station, err)
	}
	if err := csvio.WriteTable(dst, out); err != nil {
		return err
	}

	c.logger.Info("compiled station export",
		zap.String("station", station),
		zap.String("output", dst),
		zap.Int("read", stats.Read),
		zap.Int("kept", stats.Kept),
		zap.Int("skipped", stats.Skipped))
	return nil
}

// CompilePrecipitation filters the combined precipitation export and splits
// it into data/rre024i0/<station>.csv.
func (c *Compiler) CompilePrecipitation() (int, error) {
	src := filepath.Join(c.settings.RawDir, c.settings.PrecipitationFile)

	opts := PrecipitationOptions(c.settings.PrecipitationColumns, c.settings.Years)
	tbl, err := csvio.ReadTable(src, opts.Separator)
	if err != nil {
		return 0, fmt.Errorf("compile precipitation: %w", err)
	}

	filtered, stats, err := FilterTable(tbl, opts)
	if err != nil {
		return 0, fmt.Errorf("compile precipitation: %w", err)
	}

	perStation, split := SplitPrecipitation(filtered, c.settings.Aliases, c.settings.Years)
	for _, station := range c.settings.Aliases.Stations() {
		dst := filepath.Join(c.settings.PrecipitationDir(), station+".csv")
		if err := csvio.WriteTable(dst, perStation[station]); err != nil {
			return 0, err
		}
		c.logger.Debug("wrote precipitation file",
			zap.String("station", station),
			zap.Int("rows", len(perStation[station].Rows)))
	}

	c.logger.Info("compiled precipitation export",
		zap.String("input", src),
		zap.Int("read", stats.Read),
		zap.Int("kept", split.Kept),
		zap.Int("skipped", stats.Skipped+split.Skipped))
	return len(perStation), nil
}
