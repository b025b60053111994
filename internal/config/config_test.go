package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridhours/internal/apperr"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultDataFile, cfg.GetDataFile())
	assert.Equal(t, DefaultOutputFile, cfg.GetOutputFile())
	assert.Equal(t, ';', cfg.GetDelimiter())
	assert.Equal(t, SentinelConfig{Column: "grid_purchase", Value: "Dev test"}, cfg.GetSentinel())
	assert.Equal(t, []string{"timestamp", "serial"}, cfg.GetDedupKeys())
	assert.Equal(t, "median", cfg.GetFill()["grid_feedin"])
	assert.Equal(t, "float", cfg.GetConversions()["grid_purchase"])
	assert.Equal(t, "info", cfg.GetLogLevel())
	assert.Equal(t, "text", cfg.GetLogFormat())
	assert.Equal(t, DefaultTopic, cfg.MQTT.GetTopicPrefix())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_file: in.csv
output_file: out.csv
delimiter: ","
sentinel:
  column: label
fill:
  grid_feedin: "0"
exports:
  - format: xlsx
    path: out.xlsx
mqtt:
  enabled: true
  broker: localhost:1883
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "in.csv", cfg.GetDataFile())
	assert.Equal(t, ',', cfg.GetDelimiter())
	assert.Equal(t, SentinelConfig{Column: "label", Value: "Dev test"}, cfg.GetSentinel())
	assert.Equal(t, map[string]string{"grid_feedin": "0"}, cfg.GetFill())
	require.Len(t, cfg.Exports, 1)
	assert.Equal(t, "xlsx", cfg.Exports[0].Format)
	assert.True(t, cfg.MQTT.Enabled)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_file = "in.csv"
write_index = true
log_format = "json"

[conversions]
grid_purchase = "float"
grid_feedin = "float"
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "in.csv", cfg.GetDataFile())
	assert.True(t, cfg.WriteIndex)
	assert.Equal(t, "json", cfg.GetLogFormat())
	assert.Len(t, cfg.GetConversions(), 2)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad conversion", "conversions:\n  grid_feedin: decimal\n"},
		{"bad log level", "log_level: loud\n"},
		{"mqtt without broker", "mqtt:\n  enabled: true\n"},
		{"export without path", "exports:\n  - format: pdf\n"},
		{"long delimiter", "delimiter: ';;'\n"},
		{"malformed", "data_file: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0600))

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrConfig), "got %v", err)
		})
	}
}

func TestLoadAcceptsConversionAliases(t *testing.T) {
	body := `conversions:
  a: float64
  b: double
  c: number
  d: int64
  e: integer
  f: str
  g: text
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.GetConversions(), 7)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			want := &Config{
				DataFile:   "in.csv",
				OutputFile: "out.csv",
				Delimiter:  ",",
				DedupKeys:  []string{"timestamp", "serial"},
				WriteIndex: true,
			}
			require.NoError(t, Save(path, want))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, want.DataFile, got.DataFile)
			assert.Equal(t, want.OutputFile, got.OutputFile)
			assert.Equal(t, want.Delimiter, got.Delimiter)
			assert.Equal(t, want.DedupKeys, got.DedupKeys)
			assert.True(t, got.WriteIndex)
		})
	}
}
