package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-station-charts/internal/chart"
	"github.com/i474232898/weather-station-charts/internal/compile"
	"github.com/i474232898/weather-station-charts/internal/export"
	"github.com/i474232898/weather-station-charts/internal/series"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

var (
	// ErrRunInProgress is returned when Run is called while another run is active.
	ErrRunInProgress = errors.New("pipeline run already in progress")
	// ErrNothingCompiled is returned when no compiled file exists for any field.
	ErrNothingCompiled = errors.New("no compiled files; run compile first")
)

// ScatterPair plots Value against Key.
type ScatterPair struct {
	Key   weather.Field
	Value weather.Field
}

// Dir is the output directory name of the pair.
func (p ScatterPair) Dir() string {
	return fmt.Sprintf("%s_%s", p.Key, p.Value)
}

// Settings configure where the pipeline reads and writes.
type Settings struct {
	Compile   compile.Settings
	GraphsDir string
	// WorkbookPath receives the XLSX export; empty disables it.
	WorkbookPath string
	ScatterPairs []ScatterPair
	// Parallel bounds the number of station files processed at once.
	Parallel int
}

// Pipeline compiles raw exports, aggregates them and renders charts.
type Pipeline struct {
	settings Settings
	compiler *compile.Compiler
	renderer *chart.Renderer
	store    weather.Store
	logger   *zap.Logger

	running sync.Mutex
}

// New creates a new Pipeline.
func New(settings Settings, renderer *chart.Renderer, store weather.Store, logger *zap.Logger) *Pipeline {
	if settings.Parallel <= 0 {
		settings.Parallel = 4
	}
	return &Pipeline{
		settings: settings,
		compiler: compile.NewCompiler(settings.Compile, logger),
		renderer: renderer,
		store:    store,
		logger:   logger,
	}
}

// Renderer returns the chart renderer used by the pipeline.
func (p *Pipeline) Renderer() *chart.Renderer {
	return p.renderer
}

// Calendar returns the timeline of the configured year range.
func (p *Pipeline) Calendar() series.Calendar {
	return series.NewCalendar(p.settings.Compile.Years)
}

// ChartPath returns graphs/<layout>/<field>/<period>/<station>.png.
func (p *Pipeline) ChartPath(layout weather.Layout, key weather.SeriesKey) string {
	return filepath.Join(p.settings.GraphsDir, string(layout), string(key.Field), string(key.Period), key.Station+".png")
}

// ScatterPath returns graphs/scatter/<key>_<value>/<station>.png.
func (p *Pipeline) ScatterPath(pair ScatterPair, station string) string {
	return filepath.Join(p.settings.GraphsDir, "scatter", pair.Dir(), station+".png")
}

// EnsureDirs creates the chart directory tree.
func (p *Pipeline) EnsureDirs() error {
	for _, layout := range weather.Layouts() {
		for _, field := range weather.Fields() {
			for _, period := range weather.Periods() {
				dir := filepath.Join(p.settings.GraphsDir, string(layout), string(field), string(period))
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
		}
	}
	for _, pair := range p.settings.ScatterPairs {
		if err := os.MkdirAll(filepath.Join(p.settings.GraphsDir, "scatter", pair.Dir()), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Compile filters the raw exports into the data directory.
func (p *Pipeline) Compile(ctx context.Context) (int, error) {
	return p.compiler.Run(ctx)
}

// sourceDir returns the directory holding compiled files with field.
func (p *Pipeline) sourceDir(field weather.Field) string {
	if field == weather.FieldPrecipitation {
		return p.settings.Compile.PrecipitationDir()
	}
	return p.settings.Compile.CommonDir()
}

// stationFiles returns the station codes of dir/*.csv in sorted order.
func stationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var stations []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		stations = append(stations, strings.TrimSuffix(e.Name(), ".csv"))
	}
	sort.Strings(stations)
	return stations, nil
}

type job struct {
	field   weather.Field
	station string
	path    string
}

// jobs lists one job per field and compiled station file. A field whose
// source directory was never compiled is skipped, but at least one must exist.
func (p *Pipeline) jobs() ([]job, error) {
	var jobs []job
	for _, field := range weather.Fields() {
		dir := p.sourceDir(field)
		stations, err := stationFiles(dir)
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("no compiled files for field",
				zap.String("field", string(field)),
				zap.String("dir", dir))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, station := range stations {
			jobs = append(jobs, job{field: field, station: station, path: filepath.Join(dir, station+".csv")})
		}
	}
	if len(jobs) == 0 {
		return nil, ErrNothingCompiled
	}
	return jobs, nil
}

// PlotResult counts the output of Plot.
type PlotResult struct {
	Series int
	Charts int
	Sets   []weather.SeriesSet
}

// Build aggregates every field and period of the compiled files and stores
// the series without drawing charts.
func (p *Pipeline) Build(ctx context.Context) ([]weather.SeriesSet, error) {
	res, err := p.each(ctx, func(j job) ([]weather.SeriesSet, int, error) {
		sets, err := p.buildJob(j)
		return sets, 0, err
	})
	return res.Sets, err
}

// Plot builds every field and period for each compiled station file, stores
// the series and writes stacked and linear charts plus the scatter charts.
func (p *Pipeline) Plot(ctx context.Context) (PlotResult, error) {
	if err := p.EnsureDirs(); err != nil {
		return PlotResult{}, err
	}

	res, err := p.each(ctx, p.plotJob)
	if err != nil {
		return PlotResult{}, err
	}

	g, ctx := errgroup.WithContext(ctx)
	charts := make([]int, len(p.settings.ScatterPairs))
	for i, pair := range p.settings.ScatterPairs {
		i, pair := i, pair
		g.Go(func() error {
			n, err := p.plotScatter(ctx, pair)
			charts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return PlotResult{}, err
	}
	for _, n := range charts {
		res.Charts += n
	}
	return res, nil
}

// each runs fn for every job with bounded parallelism and collects the
// series sorted by key.
func (p *Pipeline) each(ctx context.Context, fn func(j job) ([]weather.SeriesSet, int, error)) (PlotResult, error) {
	jobs, err := p.jobs()
	if err != nil {
		return PlotResult{}, err
	}

	var (
		charts atomic.Int64
		mu     sync.Mutex
		sets   []weather.SeriesSet
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.Parallel)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			built, n, err := fn(j)
			if err != nil {
				return err
			}
			charts.Add(int64(n))
			mu.Lock()
			sets = append(sets, built...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PlotResult{}, err
	}

	sort.Slice(sets, func(i, k int) bool {
		return sets[i].Key.String() < sets[k].Key.String()
	})
	return PlotResult{Series: len(sets), Charts: int(charts.Load()), Sets: sets}, nil
}

// buildJob aggregates one compiled file for every period and stores the
// results.
func (p *Pipeline) buildJob(j job) ([]weather.SeriesSet, error) {
	samples, err := series.Load(j.path, string(j.field))
	if err != nil {
		return nil, fmt.Errorf("load %s from %s: %w", j.field, j.path, err)
	}

	sets := make([]weather.SeriesSet, 0, len(weather.Periods()))
	for _, period := range weather.Periods() {
		b, err := series.Build(samples, period)
		if err != nil {
			return nil, err
		}
		set := weather.SeriesSet{
			Key:     weather.SeriesKey{Station: j.station, Field: j.field, Period: period},
			Buckets: b,
			Source:  j.path,
			BuiltAt: time.Now().UTC(),
		}
		p.store.SaveSeries(set)
		sets = append(sets, set)
	}
	return sets, nil
}

func (p *Pipeline) plotJob(j job) ([]weather.SeriesSet, int, error) {
	sets, err := p.buildJob(j)
	if err != nil {
		return nil, 0, err
	}

	charts := 0
	for _, set := range sets {
		for _, layout := range weather.Layouts() {
			path := p.ChartPath(layout, set.Key)
			err := writeChart(path, func(f *os.File) error {
				return p.renderer.Draw(f, layout, set.Buckets, set.Key.Field, set.Key.Period, set.Key.Station)
			})
			if errors.Is(err, chart.ErrNoData) {
				p.logger.Warn("no data to plot",
					zap.String("station", j.station),
					zap.String("field", string(j.field)),
					zap.String("period", string(set.Key.Period)))
				continue
			}
			if err != nil {
				return nil, charts, fmt.Errorf("plot %s: %w", path, err)
			}
			charts++
		}
		p.logger.Info("saved charts",
			zap.String("field", string(j.field)),
			zap.String("period", string(set.Key.Period)),
			zap.String("station", j.station))
	}
	return sets, charts, nil
}

func (p *Pipeline) plotScatter(ctx context.Context, pair ScatterPair) (int, error) {
	dir := p.settings.Compile.CommonDir()
	stations, err := stationFiles(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}
	charts := 0
	for _, station := range stations {
		if err := ctx.Err(); err != nil {
			return charts, err
		}
		ps, err := series.LoadPoints(filepath.Join(dir, station+".csv"), string(pair.Key), string(pair.Value))
		if err != nil {
			return charts, fmt.Errorf("scatter %s for %s: %w", pair.Dir(), station, err)
		}
		graph, err := p.renderer.Scatter(ps, pair.Key, pair.Value, station)
		if errors.Is(err, chart.ErrNoData) {
			continue
		}
		if err != nil {
			return charts, err
		}
		path := p.ScatterPath(pair, station)
		if err := writeChart(path, func(f *os.File) error { return chart.Render(graph, f) }); err != nil {
			return charts, err
		}
		charts++
	}
	return charts, nil
}

// writeChart creates path and lets draw fill it. The file is removed when
// drawing fails.
func writeChart(path string, draw func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := draw(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Export writes the workbook of every stored series to path.
func (p *Pipeline) Export(path string) error {
	keys := p.store.Keys()
	sets := make([]weather.SeriesSet, 0, len(keys))
	for _, k := range keys {
		set, err := p.store.GetSeries(k)
		if err != nil {
			return err
		}
		sets = append(sets, set)
	}
	return export.WriteWorkbook(path, sets, p.Calendar())
}

// Run executes one full pass: optionally compile, then plot and export. The
// summary is recorded in the store whether or not the run succeeded.
func (p *Pipeline) Run(ctx context.Context, withCompile bool) (weather.RunSummary, error) {
	if !p.running.TryLock() {
		return weather.RunSummary{}, ErrRunInProgress
	}
	defer p.running.Unlock()

	run := weather.RunSummary{ID: uuid.NewString(), Started: time.Now().UTC()}
	logger := p.logger.With(zap.String("run", run.ID))
	logger.Info("pipeline run started", zap.Bool("compile", withCompile))

	err := p.run(ctx, withCompile, &run)
	run.Finished = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
		logger.Error("pipeline run failed", zap.Error(err))
	} else {
		logger.Info("pipeline run finished",
			zap.Int("files", run.Files),
			zap.Int("series", run.Series),
			zap.Int("charts", run.Charts),
			zap.Duration("took", run.Finished.Sub(run.Started)))
	}
	p.store.SaveRun(run)
	return run, err
}

func (p *Pipeline) run(ctx context.Context, withCompile bool, run *weather.RunSummary) error {
	if withCompile {
		n, err := p.Compile(ctx)
		run.Files = n
		if err != nil {
			return err
		}
	}

	res, err := p.Plot(ctx)
	if err != nil {
		return err
	}
	run.Series = res.Series
	run.Charts = res.Charts

	if p.settings.WorkbookPath != "" && len(res.Sets) > 0 {
		if err := export.WriteWorkbook(p.settings.WorkbookPath, res.Sets, p.Calendar()); err != nil {
			return err
		}
	}
	return nil
}
