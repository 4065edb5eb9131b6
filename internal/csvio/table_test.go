package csvio

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSkipsBlankLines(t *testing.T) {
	in := "stn;time;rre024i0\nJU2;2008010100;1.2\n\nUR2;2008010100;0.0\n"

	tbl, err := Read(strings.NewReader(in), ';')
	require.NoError(t, err)

	assert.Equal(t, []string{"stn", "time", "rre024i0"}, tbl.Header)
	assert.Len(t, tbl.Rows, 2)
	assert.Equal(t, "UR2", tbl.Rows[1][0])
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""), ',')
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestReindex(t *testing.T) {
	tbl := Table{
		Header: []string{"a", "b", "c"},
		Rows: [][]string{
			{"1", "2", "3"},
			{"4", "5"},
		},
	}

	out, err := tbl.Reindex([]string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, out.Header)
	assert.Equal(t, [][]string{{"3", "1"}}, out.Rows)

	_, err = tbl.Reindex([]string{"HS"})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestWriteTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "JUL2.csv")
	tbl := Table{
		Header: []string{"station_code", "measure_date", "HS"},
		Rows:   [][]string{{"JUL2", "2010-01-01 12:00:00+00:00", "85"}},
	}

	require.NoError(t, WriteTable(path, tbl))

	got, err := ReadTable(path, ',')
	require.NoError(t, err)
	assert.Equal(t, tbl, got)
}
