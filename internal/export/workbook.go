package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/weather-station-charts/internal/series"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

// ErrNothingToExport is returned for an empty set list.
var ErrNothingToExport = errors.New("no series to export")

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// Header is the column row of every sheet.
var Header = []string{"Jahr", "Periode", "Tag", "Wert", "Position"}

// SheetName returns the sheet of one series, cut to the Excel limit.
func SheetName(k weather.SeriesKey) string {
	return truncate(fmt.Sprintf("%s %s %s", k.Station, k.Field, k.Period), maxSheetName)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// sheetNames hands out unique sheet names. Excel compares them case
// insensitively.
type sheetNames map[string]struct{}

func (n sheetNames) next(k weather.SeriesKey) string {
	base := SheetName(k)
	name := base
	for i := 2; n.taken(name); i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = strings.TrimRight(truncate(base, maxSheetName-utf8.RuneCountInString(suffix)), " ") + suffix
	}
	n[strings.ToLower(name)] = struct{}{}
	return name
}

func (n sheetNames) taken(name string) bool {
	_, ok := n[strings.ToLower(name)]
	return ok
}

// WriteWorkbook writes one sheet per series, ordered by station, field and
// period.
func WriteWorkbook(path string, sets []weather.SeriesSet, cal series.Calendar) error {
	if len(sets) == 0 {
		return ErrNothingToExport
	}
	sorted := append([]weather.SeriesSet(nil), sets...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key.String() < sorted[j].Key.String()
	})

	f := excelize.NewFile()
	defer f.Close()

	names := sheetNames{}
	for i, set := range sorted {
		sheet := names.next(set.Key)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, set, cal); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, set weather.SeriesSet, cal series.Calendar) error {
	if err := f.SetSheetRow(sheet, "A1", &Header); err != nil {
		return err
	}
	for i, p := range series.Flatten(set.Buckets, set.Key.Period, cal) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{p.Year, p.Bucket, p.Slot, p.Value, p.X}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
