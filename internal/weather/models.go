package weather

import (
	"fmt"
	"sort"
	"time"
)

// Field is a measurement column of a station export.
type Field string

const (
	FieldSnowHeight    Field = "HS"
	FieldTemperature   Field = "TA_30MIN_MEAN"
	FieldWindDirection Field = "DW_30MIN_MEAN"
	FieldPrecipitation Field = "rre024i0"
)

// Fields lists every charted field in output order.
func Fields() []Field {
	return []Field{FieldSnowHeight, FieldTemperature, FieldWindDirection, FieldPrecipitation}
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	for _, known := range Fields() {
		if f == known {
			return true
		}
	}
	return false
}

// Period selects how daily readings are bucketed. The values double as
// output directory names.
type Period string

const (
	PeriodDay   Period = "tag"
	PeriodWeek  Period = "woche"
	PeriodMonth Period = "monat"
)

// Periods lists every period in output order.
func Periods() []Period {
	return []Period{PeriodDay, PeriodWeek, PeriodMonth}
}

func (p Period) Valid() bool {
	return p == PeriodDay || p == PeriodWeek || p == PeriodMonth
}

// Layout is the chart arrangement.
type Layout string

const (
	// LayoutStacked draws one line per year over a shared Jan-Dec axis.
	LayoutStacked Layout = "stacked"
	// LayoutLinear draws all years on one continuous timeline.
	LayoutLinear Layout = "linear"
)

// Layouts lists the per-period chart layouts.
func Layouts() []Layout {
	return []Layout{LayoutStacked, LayoutLinear}
}

func (l Layout) Valid() bool {
	return l == LayoutStacked || l == LayoutLinear
}

// Buckets holds aggregated values keyed by year, then month or week, then
// day or weekday.
type Buckets map[int]map[int]map[int]float64

// Set stores v, creating intermediate maps.
func (b Buckets) Set(year, bucket, slot int, v float64) {
	y, ok := b[year]
	if !ok {
		y = make(map[int]map[int]float64)
		b[year] = y
	}
	m, ok := y[bucket]
	if !ok {
		m = make(map[int]float64)
		y[bucket] = m
	}
	m[slot] = v
}

// Years returns the years present in ascending order.
func (b Buckets) Years() []int {
	return sortedKeys(b)
}

// Len returns the total number of stored values.
func (b Buckets) Len() int {
	n := 0
	for _, y := range b {
		for _, m := range y {
			n += len(m)
		}
	}
	return n
}

// Each visits all values ordered by year, bucket and slot.
func (b Buckets) Each(fn func(year, bucket, slot int, v float64)) {
	for _, year := range sortedKeys(b) {
		y := b[year]
		for _, bucket := range sortedKeys(y) {
			m := y[bucket]
			for _, slot := range sortedKeys(m) {
				fn(year, bucket, slot, m[slot])
			}
		}
	}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// SeriesKey identifies one aggregated series.
type SeriesKey struct {
	Station string `json:"station"`
	Field   Field  `json:"field"`
	Period  Period `json:"period"`
}

// String returns a canonical key for indexing series in stores.
func (k SeriesKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Station, k.Field, k.Period)
}

// SeriesSet is an aggregated series for one station, field and period.
type SeriesSet struct {
	Key     SeriesKey `json:"key"`
	Buckets Buckets   `json:"-"`
	Source  string    `json:"source"`
	BuiltAt time.Time `json:"builtAt"`
}

// RunSummary describes one pipeline execution.
type RunSummary struct {
	ID       string    `json:"id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Files    int       `json:"compiledFiles"`
	Series   int       `json:"series"`
	Charts   int       `json:"charts"`
	Error    string    `json:"error,omitempty"`
}

// YearRange is a half-open range of calendar years [From, To).
type YearRange struct {
	From int `json:"from" validate:"gt=0"`
	To   int `json:"to" validate:"gtfield=From"`
}

// Contains reports whether year lies within the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.From && year < r.To
}

// Count returns the number of years in the range.
func (r YearRange) Count() int {
	if r.To <= r.From {
		return 0
	}
	return r.To - r.From
}
