package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-station-charts/internal/csvio"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

// DateColumn holds the measurement timestamp in compiled files.
const DateColumn = "measure_date"

const dateLayout = "2006-01-02"

// ErrMisalignedColumns is returned when two columns do not share dates.
var ErrMisalignedColumns = errors.New("columns have different dates")

// Sample is a single dated raw value.
type Sample struct {
	Date  time.Time
	Value string
}

// Float parses the value. Empty, non-numeric and NaN values report false.
func (s Sample) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Load reads column from a compiled CSV file.
func Load(path, column string) ([]Sample, error) {
	tbl, err := csvio.ReadTable(path, ',')
	if err != nil {
		return nil, err
	}
	return FromTable(tbl, column)
}

// FromTable extracts dated samples of column. The date is the day part of
// measure_date (or the second column when there is no such header). Rows
// without a valid date are skipped.
func FromTable(tbl csvio.Table, column string) ([]Sample, error) {
	valueIdx, err := tbl.Index(column)
	if err != nil {
		return nil, err
	}
	dateIdx, err := tbl.Index(DateColumn)
	if err != nil {
		dateIdx = 1
	}

	samples := make([]Sample, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if dateIdx >= len(row) || valueIdx >= len(row) {
			continue
		}
		day, _, _ := strings.Cut(row[dateIdx], " ")
		d, err := time.Parse(dateLayout, day)
		if err != nil {
			continue
		}
		samples = append(samples, Sample{Date: d, Value: row[valueIdx]})
	}
	return samples, nil
}

// Daily buckets values by year, month and day. Later samples for the same day
// replace earlier ones.
func Daily(samples []Sample) weather.Buckets {
	b := weather.Buckets{}
	for _, s := range samples {
		v, ok := s.Float()
		if !ok {
			continue
		}
		b.Set(s.Date.Year(), int(s.Date.Month()), s.Date.Day(), v)
	}
	return b
}

type accumulator struct {
	count int
	sum   float64
}

func (a *accumulator) add(v float64) {
	a.count++
	a.sum += v
}

func (a accumulator) mean() float64 {
	return a.sum / float64(a.count)
}

type bucketID struct {
	year, bucket int
}

// Monthly averages each month and stores the mean in the middle of it.
func Monthly(samples []Sample) weather.Buckets {
	acc := make(map[bucketID]*accumulator)
	for _, s := range samples {
		v, ok := s.Float()
		if !ok {
			continue
		}
		id := bucketID{year: s.Date.Year(), bucket: int(s.Date.Month())}
		a, ok := acc[id]
		if !ok {
			a = &accumulator{}
			acc[id] = a
		}
		a.add(v)
	}

	b := weather.Buckets{}
	for id, a := range acc {
		b.Set(id.year, id.bucket, MonthlySlot(id.bucket), a.mean())
	}
	return b
}

// WeeklySlot is the weekday a weekly average is placed on (Thursday).
const WeeklySlot = 3

// Week returns the week number of d within its year. Week 1 starts on
// January 1st and every Monday after that opens the next week.
func Week(d time.Time) int {
	jan1 := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, d.Location())
	days := d.YearDay() - 1
	first := (7 - Weekday(jan1)) % 7
	if first == 0 {
		first = 7
	}
	if days < first {
		return 1
	}
	return 1 + (days-first)/7 + 1
}

// Weekday returns the day of the week with Monday as 0.
func Weekday(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// Weekly walks every calendar day from the first sample up to, but not
// including, the last one. With average set each week holds its mean at
// WeeklySlot, otherwise each weekday holds that day's value. The first
// sample of a date wins.
func Weekly(samples []Sample, average bool) weather.Buckets {
	b := weather.Buckets{}
	if len(samples) == 0 {
		return b
	}

	byDate := make(map[string]string, len(samples))
	first, last := samples[0].Date, samples[0].Date
	for _, s := range samples {
		k := s.Date.Format(dateLayout)
		if _, ok := byDate[k]; !ok {
			byDate[k] = s.Value
		}
		if s.Date.Before(first) {
			first = s.Date
		}
		if s.Date.After(last) {
			last = s.Date
		}
	}

	acc := make(map[bucketID]*accumulator)
	for d := first; d.Before(last); d = d.AddDate(0, 0, 1) {
		raw, ok := byDate[d.Format(dateLayout)]
		if !ok {
			continue
		}
		v, ok := Sample{Date: d, Value: raw}.Float()
		if !ok {
			continue
		}
		week := Week(d)
		if !average {
			b.Set(d.Year(), week, Weekday(d), v)
			continue
		}
		id := bucketID{year: d.Year(), bucket: week}
		a, ok := acc[id]
		if !ok {
			a = &accumulator{}
			acc[id] = a
		}
		a.add(v)
	}

	for id, a := range acc {
		b.Set(id.year, id.bucket, WeeklySlot, a.mean())
	}
	return b
}

// Build aggregates samples for period the way the charts use them: daily
// values, weekly means and monthly means.
func Build(samples []Sample, period weather.Period) (weather.Buckets, error) {
	switch period {
	case weather.PeriodDay:
		return Daily(samples), nil
	case weather.PeriodWeek:
		return Weekly(samples, true), nil
	case weather.PeriodMonth:
		return Monthly(samples), nil
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}
}

// XY holds paired values of one year.
type XY struct {
	X []float64
	Y []float64
}

// PointSet maps a year to its paired values.
type PointSet map[int]*XY

// Years returns the years present in ascending order.
func (ps PointSet) Years() []int {
	years := make([]int, 0, len(ps))
	for y := range ps {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Points pairs key and value samples per year. Pairs where either side is
// not numeric are dropped.
func Points(key, value []Sample) (PointSet, error) {
	if len(key) != len(value) {
		return nil, ErrMisalignedColumns
	}
	out := PointSet{}
	for i := range key {
		if !key[i].Date.Equal(value[i].Date) {
			return nil, fmt.Errorf("%w: row %d", ErrMisalignedColumns, i)
		}
		x, okX := key[i].Float()
		y, okY := value[i].Float()
		year := value[i].Date.Year()
		xy, ok := out[year]
		if !ok {
			xy = &XY{}
			out[year] = xy
		}
		if !okX || !okY {
			continue
		}
		xy.X = append(xy.X, x)
		xy.Y = append(xy.Y, y)
	}
	return out, nil
}

// Point is a flattened bucket value with its timeline position.
type Point struct {
	Year   int     `json:"year"`
	Bucket int     `json:"bucket"`
	Slot   int     `json:"slot"`
	Value  float64 `json:"value"`
	X      float64 `json:"x"`
}

// Flatten orders all values of b by year, bucket and slot.
func Flatten(b weather.Buckets, period weather.Period, cal Calendar) []Point {
	points := make([]Point, 0, b.Len())
	b.Each(func(year, bucket, slot int, v float64) {
		points = append(points, Point{
			Year:   year,
			Bucket: bucket,
			Slot:   slot,
			Value:  v,
			X:      cal.Position(period, year, bucket, slot),
		})
	})
	return points
}

// LoadPoints reads two columns of a compiled file and pairs them per year.
func LoadPoints(path, keyColumn, valueColumn string) (PointSet, error) {
	tbl, err := csvio.ReadTable(path, ',')
	if err != nil {
		return nil, err
	}
	key, err := FromTable(tbl, keyColumn)
	if err != nil {
		return nil, err
	}
	value, err := FromTable(tbl, valueColumn)
	if err != nil {
		return nil, err
	}
	return Points(key, value)
}
