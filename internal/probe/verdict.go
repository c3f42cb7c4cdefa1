// Package probe runs an ordered checklist of independent verification
// steps, streams each verdict to the operator, and summarises the run.
//
// A step either records results and returns nil, or returns an error. The
// error of an ordinary step is downgraded to a warning and the run goes on;
// the error of a fatal step aborts the run.
package probe

import (
	"fmt"
	"time"
)

// Verdict is the outcome of a single observation within a step.
type Verdict string

const (
	Pass Verdict = "pass"
	Warn Verdict = "warn"
	Fail Verdict = "fail"
	Info Verdict = "info"
)

// Marker returns the console prefix printed in front of a result.
func (v Verdict) Marker() string {
	switch v {
	case Pass:
		return "✅"
	case Warn:
		return "⚠️ "
	case Fail:
		return "❌"
	default:
		return "ℹ️ "
	}
}

// Result is one printed line of the checklist.
type Result struct {
	Step    string    `json:"step" yaml:"step"`
	Verdict Verdict   `json:"verdict" yaml:"verdict"`
	Message string    `json:"message" yaml:"message"`
	At      time.Time `json:"at" yaml:"at"`
}

func (r Result) String() string {
	return fmt.Sprintf("%s %s", r.Verdict.Marker(), r.Message)
}
