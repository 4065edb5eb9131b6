package compile

import (
	"sort"
	"strings"
	"time"

	"github.com/i474232898/weather-station-charts/internal/csvio"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

// PrecipitationHeader is the header of every per-station precipitation file.
var PrecipitationHeader = []string{"station_code", "measure_date", string(weather.FieldPrecipitation)}

// The 24h sum stamped at midnight belongs to the previous day.
const precipitationShift = -12 * time.Hour

// StationAliases maps a substring of the export's station column to the
// station code used for output files, e.g. "JU2" -> "JUL2".
type StationAliases map[string]string

// Resolve returns the station code whose alias occurs in raw.
func (a StationAliases) Resolve(raw string) (string, bool) {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(raw, k) {
			return a[k], true
		}
	}
	return "", false
}

// Stations returns the target station codes in sorted order.
func (a StationAliases) Stations() []string {
	seen := make(map[string]struct{}, len(a))
	var out []string
	for _, s := range a {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SplitPrecipitation turns a filtered precipitation table (columns station,
// time, value) into one table per station. Timestamps are moved back twelve
// hours and rows falling before the year range are dropped. Every aliased
// station gets a table, even if it stays empty.
func SplitPrecipitation(t csvio.Table, aliases StationAliases, years weather.YearRange) (map[string]csvio.Table, Stats) {
	out := make(map[string]csvio.Table, len(aliases))
	for _, s := range aliases.Stations() {
		out[s] = csvio.Table{Header: append([]string(nil), PrecipitationHeader...)}
	}

	stats := Stats{Read: len(t.Rows)}
	for _, row := range t.Rows {
		if len(row) < 3 {
			stats.Skipped++
			continue
		}
		station, ok := aliases.Resolve(row[0])
		if !ok {
			continue
		}
		ts, err := time.ParseInLocation(PrecipitationTimeLayout, row[1], time.UTC)
		if err != nil {
			stats.Skipped++
			continue
		}
		ts = ts.Add(precipitationShift)
		if ts.Year() < years.From {
			continue
		}

		tbl := out[station]
		tbl.Rows = append(tbl.Rows, []string{station, ts.Format(MeasureDateLayout), row[2]})
		out[station] = tbl
		stats.Kept++
	}
	return out, stats
}
