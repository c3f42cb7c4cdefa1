package probe

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func recorderWith(verdicts ...Verdict) *Recorder {
	rec := NewRecorder("api-check", &bytes.Buffer{}, nil, nil)
	rec.beginStep("Structure")
	for i, v := range verdicts {
		rec.record(v, "result %d", i)
	}
	return rec
}

func TestNewReportOutcome(t *testing.T) {
	started := time.Now().Add(-time.Second)

	t.Run("success when nothing failed", func(t *testing.T) {
		report := NewReport(recorderWith(Pass, Pass, Warn, Info), started, nil)
		assert.Equal(t, Success, report.Outcome)
		assert.Equal(t, 2, report.Passed)
		assert.Equal(t, 1, report.Warnings)
		assert.InDelta(t, 66.6, report.SuccessRate, 0.1)
		assert.NotEmpty(t, report.RunID)
	})

	t.Run("failure when any check failed", func(t *testing.T) {
		report := NewReport(recorderWith(Pass, Fail), started, nil)
		assert.Equal(t, Failure, report.Outcome)
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("aborted when a fatal step failed", func(t *testing.T) {
		runErr := &AbortError{Step: "Authenticate", Err: errors.New("401")}
		report := NewReport(recorderWith(Fail), started, runErr)
		assert.Equal(t, Aborted, report.Outcome)
		assert.Equal(t, "Authenticate", report.AbortedAt)
	})
}

func TestReportPrint(t *testing.T) {
	report := NewReport(recorderWith(Pass, Warn), time.Now(), nil)
	var buf bytes.Buffer
	report.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "API-CHECK SUMMARY")
	assert.Contains(t, out, "Passed:       1")
	assert.Contains(t, out, "[Structure] result 1")
	assert.NotContains(t, out, "result 0", "passing lines are not repeated in the summary")
	assert.Contains(t, out, "All checks passed")
}

func TestReportSave(t *testing.T) {
	report := NewReport(recorderWith(Pass, Fail), time.Now(), nil)
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "report.json")
		require.NoError(t, report.Save(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "failure", decoded["outcome"])
		assert.Len(t, decoded["results"], 2)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "report.yaml")
		require.NoError(t, report.Save(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(data, &decoded))
		assert.Equal(t, "api-check", decoded["suite"])
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := report.Save(filepath.Join(dir, "missing", "report.json"))
		assert.Error(t, err)
	})
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.observeResult("api-check", Pass)
	path := filepath.Join(t.TempDir(), "accountcheck.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `accountcheck_probe_results_total{suite="api-check",verdict="pass"} 1`))
}
