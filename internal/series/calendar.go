package series

import "github.com/i474232898/weather-station-charts/internal/weather"

// Month lengths used for chart positions. February is always 28 days so that
// every year shares the same month grid.
var monthLength = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// MonthNames label the month ticks of stacked charts.
var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// DaysInYearAxis is the width of the shared Jan-Dec axis.
const DaysInYearAxis = 366

// MonthLength returns the chart length of month (1-12).
func MonthLength(month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return monthLength[month-1]
}

// MonthOffset returns the number of axis days before month (1-12).
func MonthOffset(month int) int {
	off := 0
	for m := 1; m < month && m <= 12; m++ {
		off += monthLength[m-1]
	}
	return off
}

// MonthCenter is the tick position of month (1-12).
func MonthCenter(month int) float64 {
	return float64(MonthOffset(month)) + float64(MonthLength(month))/2
}

// MonthlySlot is the day a monthly average is placed on.
func MonthlySlot(month int) int {
	return MonthLength(month) / 2
}

// YearLength returns 366 for leap years and 365 otherwise.
func YearLength(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}

// Calendar positions buckets on a timeline starting at FirstYear.
type Calendar struct {
	FirstYear int
}

// NewCalendar returns a calendar anchored at the start of the year range.
func NewCalendar(years weather.YearRange) Calendar {
	return Calendar{FirstYear: years.From}
}

// YearOffset returns the number of days between FirstYear and year.
func (c Calendar) YearOffset(year int) int {
	off := 0
	for y := c.FirstYear; y < year; y++ {
		off += YearLength(y)
	}
	for y := year; y < c.FirstYear; y++ {
		off -= YearLength(y)
	}
	return off
}

// TotalDays returns the timeline length covering years.
func (c Calendar) TotalDays(years weather.YearRange) int {
	return c.YearOffset(years.To)
}

// DayOfYear returns the axis position of a bucket/slot pair within its year.
func DayOfYear(period weather.Period, bucket, slot int) float64 {
	if period == weather.PeriodWeek {
		return float64((bucket-1)*7 + slot)
	}
	return float64(MonthOffset(bucket) + slot)
}

// Position returns the timeline position of a value.
func (c Calendar) Position(period weather.Period, year, bucket, slot int) float64 {
	return float64(c.YearOffset(year)) + DayOfYear(period, bucket, slot)
}
