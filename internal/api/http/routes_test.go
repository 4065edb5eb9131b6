package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-station-charts/internal/chart"
	"github.com/i474232898/weather-station-charts/internal/pipeline"
	"github.com/i474232898/weather-station-charts/internal/series"
	"github.com/i474232898/weather-station-charts/internal/store"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

var years = weather.YearRange{From: 2008, To: 2024}

type fakeRunner struct {
	err error
}

func (f fakeRunner) Run(_ context.Context, withCompile bool) (weather.RunSummary, error) {
	if f.err != nil {
		return weather.RunSummary{}, f.err
	}
	files := 0
	if withCompile {
		files = 4
	}
	return weather.RunSummary{ID: "run-1", Files: files}, nil
}

func newTestApp(t *testing.T, runner Runner) (*fiber.App, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore(10)

	b := weather.Buckets{}
	b.Set(2010, 1, 14, -3)
	b.Set(2010, 2, 14, 1.5)
	mem.SaveSeries(weather.SeriesSet{
		Key:     weather.SeriesKey{Station: "JUL2", Field: weather.FieldTemperature, Period: weather.PeriodMonth},
		Buckets: b,
		Source:  "data/common/JUL2.csv",
		BuiltAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	mem.SaveSeries(weather.SeriesSet{
		Key:     weather.SeriesKey{Station: "JUL2", Field: weather.FieldPrecipitation, Period: weather.PeriodMonth},
		Buckets: weather.Buckets{},
	})
	mem.SaveRun(weather.RunSummary{ID: "old"})

	app := fiber.New()
	RegisterRoutes(app, Deps{
		Store:    mem,
		Runner:   runner,
		Drawer:   chart.NewRenderer(chart.DefaultCatalog(), years),
		Calendar: series.NewCalendar(years),
	})
	return app, mem
}

func do(t *testing.T, app *fiber.App, method, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestStations(t *testing.T) {
	app, _ := newTestApp(t, fakeRunner{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/stations")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []stationEntry
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "JUL2", got[0].Station)
	assert.Equal(t, []weather.Field{weather.FieldTemperature, weather.FieldPrecipitation}, got[0].Fields)
}

func TestSeries(t *testing.T) {
	app, _ := newTestApp(t, fakeRunner{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/series?station=JUL2&field=TA_30MIN_MEAN&period=monat")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Key    weather.SeriesKey `json:"key"`
		Points []series.Point    `json:"points"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "JUL2", got.Key.Station)
	require.Len(t, got.Points, 2)
	assert.Equal(t, -3.0, got.Points[0].Value)
	assert.Equal(t, 2, got.Points[1].Bucket)
}

func TestSeriesValidation(t *testing.T) {
	app, _ := newTestApp(t, fakeRunner{})

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing station", "/api/v1/series?field=HS&period=tag", http.StatusBadRequest},
		{"unknown field", "/api/v1/series?station=JUL2&field=XX&period=tag", http.StatusBadRequest},
		{"unknown period", "/api/v1/series?station=JUL2&field=HS&period=jahr", http.StatusBadRequest},
		{"station with slash", "/api/v1/series?station=JUL%2F2&field=HS&period=tag", http.StatusBadRequest},
		{"not built", "/api/v1/series?station=JUL2&field=HS&period=tag", http.StatusNotFound},
		{"punctuated station not built", "/api/v1/series?station=VAL_2&field=HS&period=tag", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, app, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestChart(t *testing.T) {
	app, _ := newTestApp(t, fakeRunner{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/charts/linear/TA_30MIN_MEAN/monat/JUL2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "\x89PNG", string(body[:4]))

	resp, _ = do(t, app, http.MethodGet, "/api/v1/charts/pie/TA_30MIN_MEAN/monat/JUL2")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/charts/stacked/rre024i0/monat/JUL2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/charts/stacked/HS/monat/URS2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRuns(t *testing.T) {
	app, _ := newTestApp(t, fakeRunner{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"id":"old"`)

	resp, body = do(t, app, http.MethodPost, "/api/v1/runs?compile=false")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var run weather.RunSummary
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, "run-1", run.ID)
	assert.Zero(t, run.Files)

	resp, _ = do(t, app, http.MethodPost, "/api/v1/runs?compile=maybe")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunConflict(t *testing.T) {
	app, _ := newTestApp(t, fakeRunner{err: pipeline.ErrRunInProgress})

	resp, _ := do(t, app, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSeriesPunctuatedStation(t *testing.T) {
	app, mem := newTestApp(t, fakeRunner{})

	b := weather.Buckets{}
	b.Set(2012, 2, 14, 140)
	b.Set(2012, 3, 15, 120)
	mem.SaveSeries(weather.SeriesSet{
		Key:     weather.SeriesKey{Station: "VAL-2", Field: weather.FieldSnowHeight, Period: weather.PeriodMonth},
		Buckets: b,
	})

	resp, _ := do(t, app, http.MethodGet, "/api/v1/series?station=VAL-2&field=HS&period=monat")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, app, http.MethodGet, "/api/v1/charts/stacked/HS/monat/VAL-2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "\x89PNG", string(body[:4]))
}
