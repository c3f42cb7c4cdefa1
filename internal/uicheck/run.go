package uicheck

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/browser"
	"github.com/genascope/accountcheck/internal/config"
	"github.com/genascope/accountcheck/internal/preflight"
	"github.com/genascope/accountcheck/internal/probe"
)

// SuiteName labels results, reports and metrics of this check.
const SuiteName = "frontend-check"

// Opener starts the browser session for a run.
type Opener func(ctx context.Context) (browser.Driver, error)

// Deps are the collaborators of Run. Preflight and Open are required.
type Deps struct {
	Preflight *preflight.Checker
	Open      Opener
	Out       io.Writer
	Log       *zap.Logger
	Metrics   *probe.Metrics
}

// Run checks that backend and frontend are up, opens the browser, and runs
// the suite. The browser is closed before Run returns, however the run
// ended. The returned error is the *probe.AbortError of a fatal step, if
// any; the report is always non-nil.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*probe.Report, error) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	started := time.Now()
	rec := probe.NewRecorder(SuiteName, deps.Out, deps.Log, deps.Metrics)
	runner := probe.NewRunner(rec)

	fmt.Fprintln(deps.Out, "🧪 Starting Frontend Account Management Test")

	var driver browser.Driver
	defer func() {
		if driver != nil {
			if err := driver.Close(); err != nil {
				deps.Log.Warn("failed to close browser", zap.Error(err))
			}
		}
	}()

	setup := []probe.Step{
		deps.Preflight.Step(
			preflight.Target{Name: "Backend", URL: cfg.Backend.HealthURL()},
			preflight.Target{Name: "Frontend", URL: cfg.Frontend.BaseURL},
		),
		{
			Name:  "Starting Browser",
			Fatal: true,
			Run: func(ctx context.Context, rec *probe.Recorder) error {
				d, err := deps.Open(ctx)
				if err != nil {
					return err
				}
				driver = d
				rec.Pass("Browser session started (%s)", cfg.Browser.Driver)
				return nil
			},
		},
	}
	if err := runner.Run(ctx, setup); err != nil {
		return probe.NewReport(rec, started, err), err
	}

	err := runner.Run(ctx, NewSuite(cfg, driver, deps.Log).Steps())
	fmt.Fprintln(deps.Out, "\n🎉 Frontend testing completed!")
	return probe.NewReport(rec, started, err), err
}

// ExitCode maps a finished run to the process status. Only an aborted run
// fails unless strict is set, in which case any failed check does.
func ExitCode(report *probe.Report, strict bool) int {
	switch report.Outcome {
	case probe.Aborted:
		return 1
	case probe.Failure:
		if strict {
			return 1
		}
	}
	return 0
}
