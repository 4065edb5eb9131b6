package chart

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-station-charts/internal/weather"
)

// ErrUnknownField is returned for fields without a style.
var ErrUnknownField = errors.New("invalid type for field")

// AxisRange bounds a value axis.
type AxisRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// FieldStyle describes how a field is labelled and scaled.
type FieldStyle struct {
	Title    string    `yaml:"title"`
	YLabel   string    `yaml:"ylabel"`
	Range    AxisRange `yaml:"range"`
	Colormap string    `yaml:"colormap"`
	// PeriodRanges override Range for single periods.
	PeriodRanges map[weather.Period]AxisRange `yaml:"period_ranges,omitempty"`
	// Compass labels the value axis with cardinal directions every 30°.
	Compass bool `yaml:"compass,omitempty"`
}

// RangeFor returns the value axis bounds for period.
func (s FieldStyle) RangeFor(period weather.Period) AxisRange {
	if r, ok := s.PeriodRanges[period]; ok {
		return r
	}
	return s.Range
}

// Catalog maps every field to its style.
type Catalog map[weather.Field]FieldStyle

// DefaultCatalog returns the built-in styles.
func DefaultCatalog() Catalog {
	return Catalog{
		weather.FieldSnowHeight: {
			Title:    "Schneehöhe",
			YLabel:   "Schneehöhe [cm]",
			Range:    AxisRange{Min: 0, Max: 350},
			Colormap: "Blues",
		},
		weather.FieldTemperature: {
			Title:    "Temperatur",
			YLabel:   "Temperatur [°C]",
			Range:    AxisRange{Min: -20, Max: 40},
			Colormap: "Greens",
		},
		weather.FieldWindDirection: {
			Title:    "Windrichtung",
			YLabel:   "Windrichtung [°]",
			Range:    AxisRange{Min: 0, Max: 360},
			Colormap: "Oranges",
			Compass:  true,
		},
		weather.FieldPrecipitation: {
			Title:    "Niederschlagsmenge",
			YLabel:   "Niederschlagsmenge [mm/24h]",
			Range:    AxisRange{Min: 0, Max: 120},
			Colormap: "Reds",
			PeriodRanges: map[weather.Period]AxisRange{
				weather.PeriodDay:   {Min: 0, Max: 1200},
				weather.PeriodWeek:  {Min: 0, Max: 350},
				weather.PeriodMonth: {Min: 0, Max: 120},
			},
		},
	}
}

// Style returns the style of field.
func (c Catalog) Style(field weather.Field) (FieldStyle, error) {
	s, ok := c[field]
	if !ok {
		return FieldStyle{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return s, nil
}

// LoadCatalog reads styles from a YAML file keyed by field name. Entries
// replace the matching default style; fields not in the file keep their
// defaults.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overrides map[weather.Field]FieldStyle
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse chart catalog %s: %w", path, err)
	}
	for field, style := range overrides {
		if _, err := LookupColormap(style.Colormap); err != nil {
			return nil, fmt.Errorf("chart catalog %s: field %s: %w", path, field, err)
		}
		cat[field] = style
	}
	return cat, nil
}

// compassTicks returns value ticks every 30° with cardinal direction labels.
func compassTicks() []tickSpec {
	var ticks []tickSpec
	for deg := 0; deg <= 360; deg += 30 {
		label := fmt.Sprintf("%d", deg)
		switch deg {
		case 0, 360:
			label = fmt.Sprintf("Norden - %d", deg)
		case 90:
			label = fmt.Sprintf("Osten - %d", deg)
		case 180:
			label = fmt.Sprintf("Süden - %d", deg)
		case 270:
			label = fmt.Sprintf("Westen - %d", deg)
		}
		ticks = append(ticks, tickSpec{value: float64(deg), label: label})
	}
	return ticks
}

type tickSpec struct {
	value float64
	label string
}
