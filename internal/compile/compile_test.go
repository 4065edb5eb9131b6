package compile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-station-charts/internal/csvio"
	"github.com/i474232898/weather-station-charts/internal/weather"
)

var (
	years          = weather.YearRange{From: 2008, To: 2024}
	stationColumns = []string{"station_code", "measure_date", "HS", "TA_30MIN_MEAN", "DW_30MIN_MEAN"}
)

const stationExport = `station_code,measure_date,hyear,TA_30MIN_MEAN,DW_30MIN_MEAN,HS
JUL2,2007-12-31 12:00:00+00:00,2008,-3.1,200,40
JUL2,2008-01-01 11:30:00+00:00,2008,-2.0,210,41
JUL2,2008-01-01 12:00:00+00:00,2008,-1.5,220,42
JUL2,2008-01-01 12:30:00+00:00,2008,-1.0,230,43
JUL2,not a date,2008,0,0,0
JUL2,2023-06-01 12:00:00+00:00,2023,12.5,90,0
JUL2,2024-01-01 12:00:00+00:00,2024,-4.0,180,80
`

const precipitationExport = `stn;time;rre024i0
JU2;2008010100;1.5
JU2;2008010200;0.0
UR2;2008010200;3.2
UR2;2008010212;9.9
XX2;2008010200;7.0
JU2;garbage;1.0
`

func TestFilterTableKeepsNoonReadingsInRange(t *testing.T) {
	tbl, err := csvio.Read(strings.NewReader(stationExport), ',')
	require.NoError(t, err)

	out, stats, err := FilterTable(tbl, StationOptions(stationColumns, years))
	require.NoError(t, err)

	assert.Equal(t, stationColumns, out.Header)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"JUL2", "2008-01-01 12:00:00+00:00", "42", "-1.5", "220"}, out.Rows[0])
	assert.Equal(t, "2023-06-01 12:00:00+00:00", out.Rows[1][1])
	assert.Equal(t, 7, stats.Read)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 1, stats.Skipped)
}

func TestFilterTableSkipsShortRows(t *testing.T) {
	tbl := csvio.Table{
		Header: []string{"station_code", "measure_date", "HS", "TA_30MIN_MEAN", "DW_30MIN_MEAN"},
		Rows: [][]string{
			{"JUL2", "2010-01-01 12:00:00+00:00", "80", "-2", "100"},
			{"JUL2", "2010-01-02 12:00:00+00:00", "81"},
			{"JUL2"},
		},
	}

	out, stats, err := FilterTable(tbl, StationOptions(stationColumns, years))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"JUL2", "2010-01-01 12:00:00+00:00", "80", "-2", "100"}}, out.Rows)
	assert.Equal(t, Stats{Read: 3, Kept: 1, Skipped: 2}, stats)
}

func TestFilterTableMissingColumn(t *testing.T) {
	tbl := csvio.Table{Header: []string{"station_code", "measure_date"}}

	_, _, err := FilterTable(tbl, StationOptions(stationColumns, years))
	assert.ErrorIs(t, err, csvio.ErrColumnNotFound)

	_, _, err = FilterTable(tbl, Options{})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestFilterTableAnyMinute(t *testing.T) {
	tbl := csvio.Table{
		Header: []string{"stn", "time", "v"},
		Rows: [][]string{
			{"a", "2010-01-01 00:30:00+00:00", "1"},
			{"a", "2010-01-01 01:00:00+00:00", "2"},
		},
	}
	opts := Options{
		Columns:     []string{"stn", "time", "v"},
		TimeLayouts: StationTimeLayouts,
		Hour:        0,
		Minute:      AnyMinute,
		Years:       years,
	}

	out, _, err := FilterTable(tbl, opts)
	require.NoError(t, err)
	assert.Len(t, out.Rows, 1)
}

func TestSplitPrecipitation(t *testing.T) {
	raw, err := csvio.Read(strings.NewReader(precipitationExport), ';')
	require.NoError(t, err)

	filtered, _, err := FilterTable(raw, PrecipitationOptions([]string{"stn", "time", "rre024i0"}, years))
	require.NoError(t, err)

	aliases := StationAliases{"JU2": "JUL2", "UR2": "URS2"}
	perStation, stats := SplitPrecipitation(filtered, aliases, years)

	require.Contains(t, perStation, "JUL2")
	require.Contains(t, perStation, "URS2")

	// 2008-01-01 00h shifts into 2007 and is dropped.
	assert.Equal(t, [][]string{{"JUL2", "2008-01-01 12:00:00+00:00", "0.0"}}, perStation["JUL2"].Rows)
	assert.Equal(t, [][]string{{"URS2", "2008-01-01 12:00:00+00:00", "3.2"}}, perStation["URS2"].Rows)
	assert.Equal(t, PrecipitationHeader, perStation["URS2"].Header)
	assert.Equal(t, 2, stats.Kept)
}

func TestStationAliases(t *testing.T) {
	a := StationAliases{"JU2": "JUL2", "UR2": "URS2", "UR3": "URS2"}

	s, ok := a.Resolve("*JU2")
	assert.True(t, ok)
	assert.Equal(t, "JUL2", s)

	_, ok = a.Resolve("VAL2")
	assert.False(t, ok)

	assert.Equal(t, []string{"JUL2", "URS2"}, a.Stations())
}

func TestCompilerRun(t *testing.T) {
	dir := t.TempDir()
	rawDir := filepath.Join(dir, "raw")
	require.NoError(t, os.MkdirAll(rawDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, "JUL2.csv"), []byte(stationExport), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, "niederschlag.csv"), []byte(precipitationExport), 0o644))

	settings := Settings{
		RawDir:               rawDir,
		DataDir:              filepath.Join(dir, "data"),
		Stations:             []string{"JUL2"},
		StationColumns:       stationColumns,
		PrecipitationFile:    "niederschlag.csv",
		PrecipitationColumns: []string{"stn", "time", "rre024i0"},
		Aliases:              StationAliases{"JU2": "JUL2", "UR2": "URS2"},
		Years:                years,
	}

	n, err := NewCompiler(settings, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	common, err := csvio.ReadTable(filepath.Join(settings.CommonDir(), "JUL2.csv"), ',')
	require.NoError(t, err)
	assert.Len(t, common.Rows, 2)

	urs, err := csvio.ReadTable(filepath.Join(settings.PrecipitationDir(), "URS2.csv"), ',')
	require.NoError(t, err)
	assert.Len(t, urs.Rows, 1)
}

func TestCompilerMissingRawFile(t *testing.T) {
	settings := Settings{
		RawDir:         t.TempDir(),
		DataDir:        t.TempDir(),
		Stations:       []string{"VAL2"},
		StationColumns: stationColumns,
		Years:          years,
	}

	_, err := NewCompiler(settings, zap.NewNop()).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
