package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-station-charts/internal/weather"
)

func TestSeriesRoundTrip(t *testing.T) {
	s := NewMemoryStore(0)
	key := weather.SeriesKey{Station: "JUL2", Field: weather.FieldSnowHeight, Period: weather.PeriodDay}

	_, err := s.GetSeries(key)
	assert.ErrorIs(t, err, ErrNotFound)

	b := weather.Buckets{}
	b.Set(2010, 1, 1, 80)
	s.SaveSeries(weather.SeriesSet{Key: key, Buckets: b})

	b2 := weather.Buckets{}
	b2.Set(2010, 1, 1, 90)
	s.SaveSeries(weather.SeriesSet{Key: key, Buckets: b2})

	got, err := s.GetSeries(key)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.Buckets[2010][1][1])
}

func TestKeysAreSorted(t *testing.T) {
	s := NewMemoryStore(0)
	s.SaveSeries(weather.SeriesSet{Key: weather.SeriesKey{Station: "VAL2", Field: weather.FieldSnowHeight, Period: weather.PeriodDay}})
	s.SaveSeries(weather.SeriesSet{Key: weather.SeriesKey{Station: "JUL2", Field: weather.FieldTemperature, Period: weather.PeriodWeek}})

	keys := s.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "JUL2", keys[0].Station)
	assert.Equal(t, "VAL2", keys[1].Station)
}

func TestRunRetention(t *testing.T) {
	s := NewMemoryStore(2)
	s.SaveRun(weather.RunSummary{ID: "a"})
	s.SaveRun(weather.RunSummary{ID: "b"})
	s.SaveRun(weather.RunSummary{ID: "c"})

	runs := s.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}
