package compile

import (
	"errors"
	"time"

	"github.com/i474232898/weather-station-charts/internal/csvio"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

// AnyMinute disables the minute check of a filter.
const AnyMinute = -1

// StationTimeLayouts parse station export timestamps such as
// "2010-01-01 12:00:00+00:00".
var StationTimeLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
}

// PrecipitationTimeLayout is the hourly stamp of the precipitation export.
const PrecipitationTimeLayout = "2006010215"

// MeasureDateLayout is how compiled files write measure_date.
const MeasureDateLayout = "2006-01-02 15:04:05-07:00"

var ErrNoColumns = errors.New("no columns requested")

// Options controls which rows of a raw export are kept.
type Options struct {
	// Columns are the output columns, in order.
	Columns []string
	// TimeColumn holds the timestamp; defaults to Columns[1].
	TimeColumn  string
	TimeLayouts []string
	Separator   rune
	Hour        int
	Minute      int
	Years       weather.YearRange
}

// StationOptions keeps the 12:00 reading of every day.
func StationOptions(columns []string, years weather.YearRange) Options {
	return Options{
		Columns:     columns,
		TimeLayouts: StationTimeLayouts,
		Separator:   ',',
		Hour:        12,
		Minute:      0,
		Years:       years,
	}
}

// PrecipitationOptions keeps the midnight stamp of the semicolon separated
// precipitation export.
func PrecipitationOptions(columns []string, years weather.YearRange) Options {
	return Options{
		Columns:     columns,
		TimeLayouts: []string{PrecipitationTimeLayout},
		Separator:   ';',
		Hour:        0,
		Minute:      AnyMinute,
		Years:       years,
	}
}

// Stats counts what a filter did with the input rows.
type Stats struct {
	Read    int
	Kept    int
	Skipped int
}

func (o Options) timeColumn() string {
	if o.TimeColumn != "" {
		return o.TimeColumn
	}
	if len(o.Columns) > 1 {
		return o.Columns[1]
	}
	return ""
}

func (o Options) match(t time.Time) bool {
	if t.Hour() != o.Hour {
		return false
	}
	if o.Minute != AnyMinute && t.Minute() != o.Minute {
		return false
	}
	return o.Years.Contains(t.Year())
}

// ParseTime tries each layout in turn.
func ParseTime(value string, layouts []string) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no time layouts configured")
	}
	return time.Time{}, lastErr
}

// FilterTable keeps the rows whose timestamp matches opts and reindexes them
// to opts.Columns. Rows with an unparsable timestamp or missing fields are
// skipped.
func FilterTable(t csvio.Table, opts Options) (csvio.Table, Stats, error) {
	if len(opts.Columns) == 0 {
		return csvio.Table{}, Stats{}, ErrNoColumns
	}
	timeIdx, err := t.Index(opts.timeColumn())
	if err != nil {
		return csvio.Table{}, Stats{}, err
	}

	matched := csvio.Table{Header: t.Header}
	stats := Stats{Read: len(t.Rows)}

	for _, row := range t.Rows {
		if timeIdx >= len(row) {
			stats.Skipped++
			continue
		}
		ts, err := ParseTime(row[timeIdx], opts.TimeLayouts)
		if err != nil {
			stats.Skipped++
			continue
		}
		if opts.match(ts) {
			matched.Rows = append(matched.Rows, row)
		}
	}

	// Reindex drops the matched rows that are too short for opts.Columns.
	out, err := matched.Reindex(opts.Columns)
	if err != nil {
		return csvio.Table{}, Stats{}, err
	}
	stats.Kept = len(out.Rows)
	stats.Skipped += len(matched.Rows) - len(out.Rows)
	return out, stats, nil
}
