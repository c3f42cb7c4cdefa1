package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/config"
	"github.com/genascope/accountcheck/internal/probe"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("bad config")))
	assert.Equal(t, 3, ExitCode(&ExitError{Code: 3}))
	assert.Equal(t, 1, ExitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: 1})))
}

func TestFlagsLoad(t *testing.T) {
	cmd := &cobra.Command{Use: "check"}
	var f Flags
	f.Register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--report", "run.yaml", "--metrics-file", "run.prom", "-v"}))

	cfg, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, "run.yaml", cfg.Output.ReportPath)
	assert.Equal(t, "run.prom", cfg.Output.MetricsPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestFlagsLoadMissingConfig(t *testing.T) {
	f := Flags{ConfigFile: filepath.Join(t.TempDir(), "absent.yaml")}
	_, err := f.Load()
	assert.Error(t, err)
}

func TestFinishWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.ReportPath = filepath.Join(dir, "report.json")
	cfg.Output.MetricsPath = filepath.Join(dir, "probe.prom")

	metrics := probe.NewMetrics()
	var out bytes.Buffer
	rec := probe.NewRecorder("api-check", &out, nil, metrics)
	rec.Pass("Authentication successful")
	report := probe.NewReport(rec, time.Now(), nil)

	Finish(&out, cfg, report, metrics, zap.NewNop())

	assert.Contains(t, out.String(), "API-CHECK SUMMARY")
	data, err := os.ReadFile(cfg.Output.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), report.RunID)

	data, err = os.ReadFile(cfg.Output.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "accountcheck_probe_results_total")
}

func TestVersionCommand(t *testing.T) {
	cmd := VersionCommand("api-check")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	assert.Contains(t, out.String(), "api-check dev")
}
