package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketsEachIsOrdered(t *testing.T) {
	b := Buckets{}
	b.Set(2010, 2, 1, 3)
	b.Set(2009, 12, 31, 2)
	b.Set(2009, 1, 5, 1)
	b.Set(2010, 1, 1, 4)

	var got []float64
	b.Each(func(_, _, _ int, v float64) {
		got = append(got, v)
	})

	assert.Equal(t, []float64{1, 2, 4, 3}, got)
	assert.Equal(t, []int{2009, 2010}, b.Years())
	assert.Equal(t, 4, b.Len())
}

func TestFieldAndPeriodValidation(t *testing.T) {
	assert.True(t, Field("HS").Valid())
	assert.False(t, Field("hs").Valid())
	assert.True(t, Period("woche").Valid())
	assert.False(t, Period("week").Valid())
	assert.True(t, LayoutLinear.Valid())
	assert.False(t, Layout("scatter").Valid())
}

func TestSeriesKeyString(t *testing.T) {
	k := SeriesKey{Station: "JUL2", Field: FieldSnowHeight, Period: PeriodMonth}
	assert.Equal(t, "JUL2:HS:monat", k.String())
}

func TestYearRange(t *testing.T) {
	r := YearRange{From: 2008, To: 2024}

	assert.False(t, r.Contains(2007))
	assert.True(t, r.Contains(2008))
	assert.True(t, r.Contains(2023))
	assert.False(t, r.Contains(2024))
	assert.Equal(t, 16, r.Count())
	assert.Equal(t, 0, YearRange{From: 2010, To: 2010}.Count())
}
