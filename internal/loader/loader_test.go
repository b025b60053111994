package loader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

const measurements = `timestamp;serial;grid_purchase;grid_feedin
2024-03-04 08:00:00;A;10;5
2024-03-04 09:00:00;B;;30
2024-03-04 09:15:00;B;Dev test;NA
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "measurements.csv", []byte(measurements))

	tbl, err := New(nil).Load(path, ';')
	require.NoError(t, err)

	assert.Equal(t, []string{"timestamp", "serial", "grid_purchase", "grid_feedin"}, tbl.Columns())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, table.Text("10"), tbl.Get(0, "grid_purchase"))
	assert.True(t, tbl.Get(1, "grid_purchase").IsNull())
	assert.Equal(t, table.Text("Dev test"), tbl.Get(2, "grid_purchase"))
	assert.True(t, tbl.Get(2, "grid_feedin").IsNull())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New(nil).Load(filepath.Join(t.TempDir(), "nope.csv"), ';')

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadRaggedRow(t *testing.T) {
	data := "timestamp;serial;grid_purchase\n2024-03-04 08:00:00;A;1\n2024-03-04 09:00:00;B\n"

	_, err := New(nil).LoadReader(strings.NewReader(data), ';')

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrParse))
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoadEmptyInput(t *testing.T) {
	_, err := New(nil).LoadReader(strings.NewReader(""), ';')
	assert.True(t, errors.Is(err, apperr.ErrParse))
}

func TestLoadDuplicateHeader(t *testing.T) {
	_, err := New(nil).LoadReader(strings.NewReader("a;a\n1;2\n"), ';')
	assert.True(t, errors.Is(err, apperr.ErrParse))
}

func TestLoadCommaDelimiter(t *testing.T) {
	tbl, err := New(nil).LoadReader(strings.NewReader("\ufeffa,b\n1,2\n"), ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	assert.Equal(t, table.Text("2"), tbl.Get(0, "b"))
}

func TestLoadCompressed(t *testing.T) {
	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write([]byte(measurements))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zstData := enc.EncodeAll([]byte(measurements), nil)
	require.NoError(t, enc.Close())

	tests := []struct {
		name string
		data []byte
	}{
		{"measurements.csv.gz", gzBuf.Bytes()},
		{"measurements.csv.zst", zstData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := New(nil).Load(writeFile(t, tt.name, tt.data), ';')
			require.NoError(t, err)
			assert.Equal(t, 3, tbl.Len())
		})
	}
}
