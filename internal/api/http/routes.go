package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-station-charts/internal/chart"
	"github.com/i474232898/weather-station-charts/internal/pipeline"
	"github.com/i474232898/weather-station-charts/internal/series"
	"github.com/i474232898/weather-station-charts/internal/store"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

var validate = validator.New()

// Runner triggers a pipeline run.
type Runner interface {
	Run(ctx context.Context, withCompile bool) (weather.RunSummary, error)
}

// Drawer renders stored buckets as a PNG chart.
type Drawer interface {
	Draw(w io.Writer, layout weather.Layout, b weather.Buckets, field weather.Field, period weather.Period, station string) error
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Store    weather.Store
	Runner   Runner
	Drawer   Drawer
	Calendar series.Calendar
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		return c.JSON(stationIndex(deps.Store.Keys()))
	})

	v1.Get("/series", func(c *fiber.Ctx) error {
		q, err := parseSeriesQuery(c.Query("station"), c.Query("field"), c.Query("period"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		key := q.key()
		set, err := deps.Store.GetSeries(key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no series built for "+key.String())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load series")
		}

		return c.JSON(fiber.Map{
			"key":     set.Key,
			"source":  set.Source,
			"builtAt": set.BuiltAt,
			"points":  series.Flatten(set.Buckets, key.Period, deps.Calendar),
		})
	})

	v1.Get("/charts/:layout/:field/:period/:station", func(c *fiber.Ctx) error {
		layout := weather.Layout(c.Params("layout"))
		if !layout.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "layout must be stacked or linear")
		}
		q, err := parseSeriesQuery(c.Params("station"), c.Params("field"), c.Params("period"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		key := q.key()
		set, err := deps.Store.GetSeries(key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no series built for "+key.String())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load series")
		}

		var buf bytes.Buffer
		if err := deps.Drawer.Draw(&buf, layout, set.Buckets, key.Field, key.Period, key.Station); err != nil {
			if errors.Is(err, chart.ErrNoData) {
				return fiber.NewError(fiber.StatusNotFound, "series "+key.String()+" has no values")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render chart")
		}

		c.Type("png")
		return c.Send(buf.Bytes())
	})

	v1.Get("/runs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"runs": deps.Store.Runs()})
	})

	v1.Post("/runs", func(c *fiber.Ctx) error {
		withCompile := true
		if raw := c.Query("compile"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "compile must be a boolean")
			}
			withCompile = v
		}

		run, err := deps.Runner.Run(c.UserContext(), withCompile)
		if err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			if run.ID == "" {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to run pipeline")
			}
			return c.Status(fiber.StatusInternalServerError).JSON(run)
		}
		return c.Status(fiber.StatusCreated).JSON(run)
	})
}

// seriesQuery identifies one stored series.
type seriesQuery struct {
	Station string `validate:"required,printascii,excludesall=/"`
	Field   string `validate:"required,oneof=HS TA_30MIN_MEAN DW_30MIN_MEAN rre024i0"`
	Period  string `validate:"required,oneof=tag woche monat"`
}

func (q seriesQuery) key() weather.SeriesKey {
	return weather.SeriesKey{
		Station: q.Station,
		Field:   weather.Field(q.Field),
		Period:  weather.Period(q.Period),
	}
}

func parseSeriesQuery(station, field, period string) (seriesQuery, error) {
	q := seriesQuery{Station: station, Field: field, Period: period}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// stationEntry lists the fields with stored series for one station.
type stationEntry struct {
	Station string          `json:"station"`
	Fields  []weather.Field `json:"fields"`
}

func stationIndex(keys []weather.SeriesKey) []stationEntry {
	fields := map[string]map[weather.Field]bool{}
	for _, k := range keys {
		if fields[k.Station] == nil {
			fields[k.Station] = map[weather.Field]bool{}
		}
		fields[k.Station][k.Field] = true
	}

	out := make([]stationEntry, 0, len(fields))
	for station, set := range fields {
		entry := stationEntry{Station: station}
		for _, f := range weather.Fields() {
			if set[f] {
				entry.Fields = append(entry.Fields, f)
			}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Station < out[j].Station })
	return out
}
