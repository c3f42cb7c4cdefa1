package apicheck

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/apiclient"
	"github.com/genascope/accountcheck/internal/config"
	"github.com/genascope/accountcheck/internal/preflight"
	"github.com/genascope/accountcheck/internal/probe"
	"github.com/genascope/accountcheck/internal/schema"
)

// SuiteName labels results, reports and metrics of this check.
const SuiteName = "api-check"

type Deps struct {
	Preflight *preflight.Checker
	Out       io.Writer
	Log       *zap.Logger
	Metrics   *probe.Metrics
}

// ClientConfig maps the backend settings onto the API client.
func ClientConfig(cfg *config.Config) apiclient.Config {
	return apiclient.Config{
		BaseURL:      cfg.Backend.BaseURL,
		TokenPath:    cfg.Backend.TokenPath,
		AccountsPath: cfg.Backend.AccountsPath,
		MePath:       cfg.Backend.MePath,
		Timeout:      cfg.Backend.Timeout,
	}
}

// Run checks the backend health endpoint and then runs the API probes.
// The report is always non-nil; the error is the *probe.AbortError of a
// fatal step, if any.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*probe.Report, error) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Preflight == nil {
		deps.Preflight = preflight.NewChecker(cfg.Timing.PreflightTimeout)
	}
	started := time.Now()
	rec := probe.NewRecorder(SuiteName, deps.Out, deps.Log, deps.Metrics)
	runner := probe.NewRunner(rec)

	fmt.Fprintln(deps.Out, "🧪 Testing UI Fixes for Account Management")

	validator, err := schema.NewValidator()
	if err != nil {
		deps.Log.Warn("schema validation disabled", zap.Error(err))
	}
	suite := NewSuite(apiclient.New(ClientConfig(cfg)), Credentials{
		Username: cfg.Credentials.Username,
		Password: cfg.Credentials.Password,
	}, validator, deps.Log)

	steps := append([]probe.Step{
		deps.Preflight.Step(preflight.Target{Name: "Backend", URL: cfg.Backend.HealthURL()}),
	}, suite.Steps()...)

	err = runner.Run(ctx, steps)
	report := probe.NewReport(rec, started, err)
	if report.Outcome == probe.Success {
		printMigrationSummary(deps.Out)
	}
	return report, err
}

func printMigrationSummary(w io.Writer) {
	fmt.Fprintln(w, "\n🎉 All tests completed successfully!")
	fmt.Fprintln(w, "\n📋 Summary of UI Schema Updates:")
	fmt.Fprintln(w, "  ✅ Backend uses 'status' field instead of 'is_active'")
	fmt.Fprintln(w, "  ✅ 'domain' and 'admin_email' fields removed from schema")
	fmt.Fprintln(w, "  ✅ Authentication working with /api/auth/token")
	fmt.Fprintln(w, "  ✅ Account management endpoints returning correct structure")
}

// ExitCode is 0 only for a run without failures.
func ExitCode(report *probe.Report) int {
	if report.Outcome == probe.Success {
		return 0
	}
	return 1
}
