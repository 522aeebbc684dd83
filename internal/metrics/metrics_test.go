package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

func gaugeValues(t *testing.T, r *Recorder) map[string]float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			switch {
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			}
		}
	}
	return values
}

func TestObserve_Success(t *testing.T) {
	r := New("")
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.Observe(&cleaning.ExecutionResult{
		Status:      "success",
		StartedAt:   started,
		CompletedAt: started.Add(1500 * time.Millisecond),
		RowsInput:   16,
		RowsOutput:  12,
		Steps: []cleaning.StepReport{
			{Name: "price_range", RowsIn: 16, RowsOut: 15, Removed: 1, Duration: time.Millisecond},
			{Name: "minimum_nights", RowsIn: 15, RowsOut: 13, Removed: 2},
		},
		Output: &cleaning.ArtifactSummary{Name: "clean_sample.csv", Size: 2048},
	})

	v := gaugeValues(t, r)
	assert.Equal(t, 16.0, v["cleaning_rows_input"])
	assert.Equal(t, 12.0, v["cleaning_rows_output"])
	assert.Equal(t, 1.0, v["cleaning_rows_removed{step=price_range}"])
	assert.Equal(t, 2.0, v["cleaning_rows_removed{step=minimum_nights}"])
	assert.Equal(t, 0.001, v["cleaning_step_duration_seconds{step=price_range}"])
	assert.Equal(t, 1.5, v["cleaning_run_duration_seconds"])
	assert.Equal(t, 1.0, v["cleaning_run_success"])
	assert.Equal(t, float64(started.Add(1500*time.Millisecond).Unix()), v["cleaning_last_run_timestamp_seconds"])
	assert.Equal(t, 2048.0, v["cleaning_output_artifact_bytes"])
}

func TestObserve_Failure(t *testing.T) {
	r := New("test")
	r.Observe(&cleaning.ExecutionResult{Status: "error", Error: &cleaning.ExecutionError{Category: "schema"}})
	r.Observe(&cleaning.ExecutionResult{Status: "error", Error: &cleaning.ExecutionError{}})
	r.Observe(nil)

	v := gaugeValues(t, r)
	assert.Equal(t, 0.0, v["test_run_success"])
	assert.Equal(t, 1.0, v["test_errors_total{category=schema}"])
	assert.Equal(t, 1.0, v["test_errors_total{category=unknown}"])
}

func TestWriteTextfile(t *testing.T) {
	r := New("")
	r.Observe(&cleaning.ExecutionResult{RowsInput: 3, RowsOutput: 2})

	path := filepath.Join(t.TempDir(), "cleaning.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "# TYPE cleaning_rows_input gauge"), text)
	assert.Contains(t, text, "cleaning_rows_output 2")

	err = r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
