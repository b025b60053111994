package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCounters(t *testing.T) {
	r := NewRun()
	r.AddRows(StageLoaded, 4)
	r.AddRows(StageDropped, 1)
	r.AddRows(StageLoaded, 2)
	r.SetPeak(8, 5)

	assert.Equal(t, 6.0, testutil.ToFloat64(r.rows.WithLabelValues(StageLoaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rows.WithLabelValues(StageDropped)))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.peakHour))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.peakFeedin))
}

func TestRunsAreIndependent(t *testing.T) {
	a, b := NewRun(), NewRun()
	a.AddRows(StageOutput, 24)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.rows.WithLabelValues(StageOutput)))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRun()
	r.AddRows(StageOutput, 3)
	r.ObserveStage("load", 20*time.Millisecond)
	r.MarkSuccess(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "gridhours.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `gridhours_rows_total{stage="output"} 3`)
	assert.Contains(t, out, "gridhours_stage_duration_seconds_count{stage=\"load\"} 1")
	assert.Contains(t, out, "gridhours_last_success_timestamp_seconds ")
}
