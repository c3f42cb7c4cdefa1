package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/browser"
	"github.com/genascope/accountcheck/internal/cli"
	"github.com/genascope/accountcheck/internal/preflight"
	"github.com/genascope/accountcheck/internal/probe"
	"github.com/genascope/accountcheck/internal/uicheck"
)

var (
	flags      cli.Flags
	driverFlag string
	strictFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "frontend-check",
	Short: "Browser smoke test of the account management frontend",
	Long: `frontend-check logs into the frontend with a real browser and verifies
that the accounts pages use the status-based account model.

The run aborts with exit status 1 when the backend or frontend is down or
the browser cannot be started. Other findings are reported and, unless
--strict is set, do not change the exit status.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFrontendCheck,
}

func init() {
	flags.Register(rootCmd)
	rootCmd.Flags().StringVar(&driverFlag, "driver", "", "Browser backend: playwright or rod")
	rootCmd.Flags().BoolVar(&strictFlag, "strict", false, "Exit 1 when any check fails")
	rootCmd.AddCommand(cli.VersionCommand("frontend-check"))
}

func runFrontendCheck(cmd *cobra.Command, args []string) error {
	cfg, err := flags.Load()
	if err != nil {
		return err
	}
	if driverFlag != "" {
		cfg.Browser.Driver = driverFlag
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, err := cli.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := cli.SignalContext()
	defer stop()

	out := cmd.OutOrStdout()
	metrics := probe.NewMetrics()
	opts := browser.OptionsFromConfig(cfg)

	report, runErr := uicheck.Run(ctx, cfg, uicheck.Deps{
		Preflight: preflight.NewChecker(cfg.Timing.PreflightTimeout),
		Open: func(ctx context.Context) (browser.Driver, error) {
			return browser.Open(ctx, cfg.Browser.Driver, opts, log)
		},
		Out:     out,
		Log:     log,
		Metrics: metrics,
	})
	if runErr != nil {
		log.Debug("run aborted", zap.Error(runErr))
	}
	cli.Finish(out, cfg, report, metrics, log)

	if code := uicheck.ExitCode(report, strictFlag); code != 0 {
		return &cli.ExitError{Code: code}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if _, ok := err.(*cli.ExitError); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
