package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/apicheck"
	"github.com/genascope/accountcheck/internal/cli"
	"github.com/genascope/accountcheck/internal/preflight"
	"github.com/genascope/accountcheck/internal/probe"
)

var flags cli.Flags

var rootCmd = &cobra.Command{
	Use:   "api-check",
	Short: "Smoke test of the account management API",
	Long: `api-check authenticates against the backend and verifies that account
records carry the status field and none of the removed fields.

Exits 0 when every check passed and 1 otherwise.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAPICheck,
}

func init() {
	flags.Register(rootCmd)
	rootCmd.AddCommand(cli.VersionCommand("api-check"))
}

func runAPICheck(cmd *cobra.Command, args []string) error {
	cfg, err := flags.Load()
	if err != nil {
		return err
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

	report, runErr := apicheck.Run(ctx, cfg, apicheck.Deps{
		Preflight: preflight.NewChecker(cfg.Timing.PreflightTimeout),
		Out:       out,
		Log:       log,
		Metrics:   metrics,
	})
	if runErr != nil {
		log.Debug("run aborted", zap.Error(runErr))
	}
	cli.Finish(out, cfg, report, metrics, log)

	if code := apicheck.ExitCode(report); code != 0 {
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
