package chart

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/i474232898/weather-station-charts/internal/series"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

const (
	stackedWidth  = 1600
	stackedHeight = 1000
	linearWidth   = 2400
	linearHeight  = 800
	scatterWidth  = 1600
	scatterHeight = 1000

	// Colormap position of the single line on linear charts.
	linearShade = 0.7
)

// Renderer builds charts for one year range.
type Renderer struct {
	catalog  Catalog
	calendar series.Calendar
	years    weather.YearRange
}

// NewRenderer creates a new Renderer.
func NewRenderer(catalog Catalog, years weather.YearRange) *Renderer {
	return &Renderer{
		catalog:  catalog,
		calendar: series.NewCalendar(years),
		years:    years,
	}
}

// Title returns the chart title of a field for one station and period.
func Title(style FieldStyle, station string, period weather.Period) string {
	return fmt.Sprintf("%s von %s (%s)", style.Title, station, period)
}

type line struct {
	xs, ys []float64
}

func (l *line) add(x, y float64) {
	l.xs = append(l.xs, x)
	l.ys = append(l.ys, y)
}

func yearLine(values map[int]map[int]float64, period weather.Period, shift float64) line {
	var l line
	b := weather.Buckets{0: values}
	b.Each(func(_, bucket, slot int, v float64) {
		l.add(series.DayOfYear(period, bucket, slot)+shift, v)
	})
	return l
}

// Stacked draws one line per year over a shared January to December axis.
// Each line starts with the last value of the previous year and continues
// into the next year so that consecutive years join at the axis edges.
func (r *Renderer) Stacked(b weather.Buckets, field weather.Field, period weather.Period, station string) (*gochart.Chart, error) {
	style, err := r.catalog.Style(field)
	if err != nil {
		return nil, err
	}
	cmap, err := LookupColormap(style.Colormap)
	if err != nil {
		return nil, err
	}

	years := b.Years()
	var all []gochart.Series
	for i, year := range years {
		var l line
		if prev, ok := b[year-1]; ok {
			tail := yearLine(prev, period, -float64(series.YearLength(year-1)))
			if n := len(tail.xs); n > 0 {
				l.add(tail.xs[n-1], tail.ys[n-1])
			}
		}
		own := yearLine(b[year], period, 0)
		l.xs = append(l.xs, own.xs...)
		l.ys = append(l.ys, own.ys...)
		if next, ok := b[year+1]; ok {
			head := yearLine(next, period, float64(series.YearLength(year)))
			l.xs = append(l.xs, head.xs...)
			l.ys = append(l.ys, head.ys...)
		}

		xs, ys := clip(l.xs, l.ys, 0, series.DaysInYearAxis)
		if len(xs) == 0 {
			continue
		}
		color := cmap.At(float64(i) / float64(len(years)))
		all = append(all, gochart.ContinuousSeries{
			Name:    strconv.Itoa(year),
			Style:   gochart.Style{StrokeColor: color, StrokeWidth: 1.5},
			XValues: xs,
			YValues: ys,
		})
	}
	if len(all) == 0 {
		return nil, ErrNoData
	}

	ticks := make([]gochart.Tick, 0, len(series.MonthNames))
	for m, name := range series.MonthNames {
		ticks = append(ticks, gochart.Tick{Value: series.MonthCenter(m + 1), Label: name})
	}

	graph := &gochart.Chart{
		Title:  Title(style, station, period),
		Width:  stackedWidth,
		Height: stackedHeight,
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: series.DaysInYearAxis},
			Ticks: ticks,
		},
		YAxis:  r.valueAxis(style, period),
		Series: all,
	}
	graph.Elements = []gochart.Renderable{gochart.LegendLeft(graph)}
	return graph, nil
}

// Linear draws all years on one continuous timeline.
func (r *Renderer) Linear(b weather.Buckets, field weather.Field, period weather.Period, station string) (*gochart.Chart, error) {
	style, err := r.catalog.Style(field)
	if err != nil {
		return nil, err
	}
	cmap, err := LookupColormap(style.Colormap)
	if err != nil {
		return nil, err
	}

	var l line
	for _, p := range series.Flatten(b, period, r.calendar) {
		l.add(p.X, p.Value)
	}
	total := float64(r.calendar.TotalDays(r.years))
	xs, ys := clip(l.xs, l.ys, 0, total)
	if len(xs) == 0 {
		return nil, ErrNoData
	}

	ticks := make([]gochart.Tick, 0, r.years.Count()+1)
	for year := r.years.From; year <= r.years.To; year++ {
		ticks = append(ticks, gochart.Tick{
			Value: float64(r.calendar.YearOffset(year)),
			Label: strconv.Itoa(year),
		})
	}

	return &gochart.Chart{
		Title:  Title(style, station, period),
		Width:  linearWidth,
		Height: linearHeight,
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: total},
			Ticks: ticks,
		},
		YAxis: r.valueAxis(style, period),
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Style:   gochart.Style{StrokeColor: cmap.At(linearShade), StrokeWidth: 1},
				XValues: xs,
				YValues: ys,
			},
		},
	}, nil
}

// Scatter plots value against key with one colour per year.
func (r *Renderer) Scatter(ps series.PointSet, key, value weather.Field, station string) (*gochart.Chart, error) {
	keyStyle, err := r.catalog.Style(key)
	if err != nil {
		return nil, err
	}
	valueStyle, err := r.catalog.Style(value)
	if err != nil {
		return nil, err
	}
	cmap, err := LookupColormap(valueStyle.Colormap)
	if err != nil {
		return nil, err
	}

	var all []gochart.Series
	n := float64(r.years.Count())
	for _, year := range ps.Years() {
		xy := ps[year]
		if len(xy.X) == 0 {
			continue
		}
		color := cmap.At(float64(year-r.years.From) / n)
		all = append(all, gochart.ContinuousSeries{
			Name: strconv.Itoa(year),
			Style: gochart.Style{
				StrokeWidth: gochart.Disabled,
				DotWidth:    3,
				DotColor:    color,
			},
			XValues: xy.X,
			YValues: xy.Y,
		})
	}
	if len(all) == 0 {
		return nil, ErrNoData
	}

	graph := &gochart.Chart{
		Title:  fmt.Sprintf("%s / %s von %s", keyStyle.Title, valueStyle.Title, station),
		Width:  scatterWidth,
		Height: scatterHeight,
		XAxis: gochart.XAxis{
			Name:  keyStyle.YLabel,
			Range: &gochart.ContinuousRange{Min: keyStyle.Range.Min, Max: keyStyle.Range.Max},
		},
		YAxis:  r.valueAxis(valueStyle, ""),
		Series: all,
	}
	graph.Elements = []gochart.Renderable{gochart.LegendLeft(graph)}
	return graph, nil
}

func (r *Renderer) valueAxis(style FieldStyle, period weather.Period) gochart.YAxis {
	rng := style.RangeFor(period)
	axis := gochart.YAxis{
		Name:  style.YLabel,
		Range: &gochart.ContinuousRange{Min: rng.Min, Max: rng.Max},
	}
	if style.Compass {
		for _, t := range compassTicks() {
			axis.Ticks = append(axis.Ticks, gochart.Tick{Value: t.value, Label: t.label})
		}
	}
	return axis
}

// Draw renders the chart of layout as PNG into w.
func (r *Renderer) Draw(w io.Writer, layout weather.Layout, b weather.Buckets, field weather.Field, period weather.Period, station string) error {
	var (
		graph *gochart.Chart
		err   error
	)
	switch layout {
	case weather.LayoutStacked:
		graph, err = r.Stacked(b, field, period, station)
	case weather.LayoutLinear:
		graph, err = r.Linear(b, field, period, station)
	default:
		return fmt.Errorf("unknown layout %q", layout)
	}
	if err != nil {
		return err
	}
	return Render(graph, w)
}

// Render writes graph as PNG.
func Render(graph *gochart.Chart, w io.Writer) error {
	return graph.Render(gochart.PNG, w)
}

// clip keeps the part of a polyline inside [lo, hi]. Segments crossing a
// bound are cut at the bound by linear interpolation. xs must be ascending.
func clip(xs, ys []float64, lo, hi float64) ([]float64, []float64) {
	inside := func(x float64) bool { return x >= lo && x <= hi }
	at := func(i int, bound float64) float64 {
		x0, x1 := xs[i-1], xs[i]
		if x1 == x0 {
			return ys[i]
		}
		return ys[i-1] + (ys[i]-ys[i-1])*(bound-x0)/(x1-x0)
	}

	var outX, outY []float64
	for i, x := range xs {
		if inside(x) {
			if i > 0 && xs[i-1] < lo {
				outX = append(outX, lo)
				outY = append(outY, at(i, lo))
			}
			outX = append(outX, x)
			outY = append(outY, ys[i])
			continue
		}
		if i > 0 && inside(xs[i-1]) && x > hi {
			outX = append(outX, hi)
			outY = append(outY, at(i, hi))
		}
	}
	return outX, outY
}
