package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/genascope/accountcheck/internal/version"
)

// Outcome is the final state of a whole run.
type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
	Aborted Outcome = "aborted"
)

// Report summarises a finished run
type Report struct {
	RunID       string       `json:"run_id" yaml:"run_id"`
	Suite       string       `json:"suite" yaml:"suite"`
	Version     version.Info `json:"version" yaml:"version"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time    `json:"finished_at" yaml:"finished_at"`
	Outcome     Outcome      `json:"outcome" yaml:"outcome"`
	AbortedAt   string       `json:"aborted_at,omitempty" yaml:"aborted_at,omitempty"`
	Passed      int          `json:"passed" yaml:"passed"`
	Warnings    int          `json:"warnings" yaml:"warnings"`
	Failed      int          `json:"failed" yaml:"failed"`
	SuccessRate float64      `json:"success_rate" yaml:"success_rate"`
	Results     []Result     `json:"results" yaml:"results"`
}

// NewReport builds the report for a run that started at started and ended
// with runErr (the value returned by Runner.Run).
func NewReport(rec *Recorder, started time.Time, runErr error) *Report {
	report := &Report{
		RunID:      uuid.NewString(),
		Suite:      rec.Suite(),
		Version:    version.GetInfo(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Results:    rec.Results(),
		Passed:     rec.Count(Pass),
		Warnings:   rec.Count(Warn),
		Failed:     rec.Count(Fail),
	}

	if judged := report.Passed + report.Warnings + report.Failed; judged > 0 {
		report.SuccessRate = float64(report.Passed) / float64(judged) * 100
	}

	var abort *AbortError
	switch {
	case errors.As(runErr, &abort):
		report.Outcome = Aborted
		report.AbortedAt = abort.Step
	case runErr != nil || report.Failed > 0:
		report.Outcome = Failure
	default:
		report.Outcome = Success
	}
	return report
}

// Print writes the end-of-run summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintf(w, "                 %s SUMMARY\n", strings.ToUpper(r.Suite))
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Run:          %s\n", r.RunID)
	fmt.Fprintf(w, "Started:      %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration:     %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Passed:       %d\n", r.Passed)
	fmt.Fprintf(w, "Warnings:     %d\n", r.Warnings)
	fmt.Fprintf(w, "Failed:       %d\n", r.Failed)
	fmt.Fprintf(w, "Success Rate: %.1f%%\n", r.SuccessRate)
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for _, res := range r.Results {
		if res.Verdict == Warn || res.Verdict == Fail {
			fmt.Fprintf(w, "%s [%s] %s\n", res.Verdict.Marker(), res.Step, res.Message)
		}
	}

	switch r.Outcome {
	case Aborted:
		fmt.Fprintf(w, "\n💥 Run aborted at %q\n", r.AbortedAt)
	case Failure:
		fmt.Fprintf(w, "\n💥 %d check(s) failed\n", r.Failed)
	default:
		fmt.Fprintln(w, "\n✨ All checks passed!")
	}
}

// Save writes the report as YAML when path ends in .yaml or .yml and as
// indented JSON otherwise.
func (r *Report) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(r)
	default:
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
