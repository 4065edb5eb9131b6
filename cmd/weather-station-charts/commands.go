package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fetchFirst bool
	exportPath string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Filter raw exports into data/common and data/rre024i0",
	RunE:  runCompile,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Aggregate compiled files and render charts",
	Long: `Builds daily, weekly and monthly series from the compiled files and writes
graphs/{stacked,linear}/<field>/<period>/<station>.png plus the scatter charts.`,
	RunE: runPlot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compile raw exports, then plot and export everything",
	RunE:  runAll,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [station...]",
	Short: "Download raw station exports from RAW_SOURCE_URL",
	RunE:  runFetch,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the aggregated series to an XLSX workbook",
	RunE:  runExport,
}

func runCompile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	n, err := a.pipeline.Compile(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("compiled raw exports", zap.Int("files", n))
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	_, err = a.pipeline.Run(cmd.Context(), false)
	return err
}

func runAll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if fetchFirst {
		if err := a.fetcher.FetchAll(cmd.Context(), a.cfg.Stations); err != nil {
			return err
		}
	}
	_, err = a.pipeline.Run(cmd.Context(), true)
	return err
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	stations := args
	if len(stations) == 0 {
		stations = a.cfg.Stations
	}
	return a.fetcher.FetchAll(cmd.Context(), stations)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	path := exportPath
	if path == "" {
		path = a.cfg.WorkbookPath
	}
	if path == "" {
		return errors.New("no workbook path: pass --out or set WORKBOOK_PATH")
	}

	sets, err := a.pipeline.Build(cmd.Context())
	if err != nil {
		return err
	}
	if err := a.pipeline.Export(path); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	logger.Info("exported workbook", zap.String("path", path), zap.Int("series", len(sets)))
	return nil
}
