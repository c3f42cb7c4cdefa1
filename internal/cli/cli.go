// Package cli holds the command-line plumbing shared by the check binaries:
// common flags, config and logger setup, report output and exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/config"
	"github.com/genascope/accountcheck/internal/logger"
	"github.com/genascope/accountcheck/internal/probe"
	"github.com/genascope/accountcheck/internal/version"
)

// ExitError carries a process status out of a cobra RunE.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode returns the status main should exit with for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}

// Flags are the options every check binary accepts.
type Flags struct {
	ConfigFile  string
	ReportPath  string
	MetricsPath string
	Verbose     bool
}

// Register adds the common flags to cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ConfigFile, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&f.ReportPath, "report", "", "Write a run report (.json or .yaml)")
	cmd.Flags().StringVar(&f.MetricsPath, "metrics-file", "", "Write probe metrics in Prometheus textfile format")
	cmd.Flags().BoolVarP(&f.Verbose, "verbose", "v", false, "Enable debug logging")
}

// Load reads the configuration and applies flag overrides on top of it.
func (f *Flags) Load() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		return nil, err
	}
	if f.ReportPath != "" {
		cfg.Output.ReportPath = f.ReportPath
	}
	if f.MetricsPath != "" {
		cfg.Output.MetricsPath = f.MetricsPath
	}
	if f.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// NewLogger builds the diagnostics logger described by cfg.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Logging.Level, cfg.Logging.Format)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Finish prints the summary and writes the optional report and metrics
// files. Output errors are logged, they never change the exit status.
func Finish(out io.Writer, cfg *config.Config, report *probe.Report, metrics *probe.Metrics, log *zap.Logger) {
	report.Print(out)

	if path := cfg.Output.ReportPath; path != "" {
		if err := report.Save(path); err != nil {
			log.Error("failed to save report", zap.String("path", path), zap.Error(err))
		} else {
			log.Info("report saved", zap.String("path", path), zap.String("run_id", report.RunID))
		}
	}
	if path := cfg.Output.MetricsPath; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			log.Error("failed to write metrics", zap.String("path", path), zap.Error(err))
		}
	}
}

// VersionCommand prints build information for the named binary.
func VersionCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, version.Full())
		},
	}
}
