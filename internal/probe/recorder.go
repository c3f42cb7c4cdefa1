package probe

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Recorder collects results and prints each one as soon as it is recorded.
type Recorder struct {
	suite   string
	out     io.Writer
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time

	step    string
	indent  int
	results []Result
}

// NewRecorder returns a recorder that writes to out. log and metrics may be
// nil.
func NewRecorder(suite string, out io.Writer, log *zap.Logger, metrics *Metrics) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		suite:   suite,
		out:     out,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Suite returns the name the recorder was created with.
func (r *Recorder) Suite() string { return r.suite }

func (r *Recorder) Pass(format string, args ...any) { r.record(Pass, format, args...) }
func (r *Recorder) Warn(format string, args ...any) { r.record(Warn, format, args...) }
func (r *Recorder) Fail(format string, args ...any) { r.record(Fail, format, args...) }
func (r *Recorder) Info(format string, args ...any) { r.record(Info, format, args...) }

// Detail prints an indented line belonging to the previous result. It is
// not counted.
func (r *Recorder) Detail(format string, args ...any) {
	fmt.Fprintf(r.out, "%s  %s\n", r.pad(), fmt.Sprintf(format, args...))
}

// Heading prints a plain line and indents the results that follow it until
// the current step ends.
func (r *Recorder) Heading(format string, args ...any) {
	fmt.Fprintf(r.out, "\n%s%s\n", r.pad(), fmt.Sprintf(format, args...))
	r.indent++
}

func (r *Recorder) record(v Verdict, format string, args ...any) {
	res := Result{
		Step:    r.step,
		Verdict: v,
		Message: fmt.Sprintf(format, args...),
		At:      r.now(),
	}
	r.results = append(r.results, res)
	fmt.Fprintf(r.out, "%s%s\n", r.pad(), res)

	r.log.Debug("probe result",
		zap.String("suite", r.suite),
		zap.String("step", res.Step),
		zap.String("verdict", string(v)),
		zap.String("message", res.Message))
	r.metrics.observeResult(r.suite, v)
}

func (r *Recorder) pad() string { return strings.Repeat("  ", r.indent) }

func (r *Recorder) beginStep(name string) {
	r.step = name
	r.indent = 0
}

// Results returns every result recorded so far, in order.
func (r *Recorder) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Count returns how many results carry verdict v.
func (r *Recorder) Count(v Verdict) int {
	n := 0
	for _, res := range r.results {
		if res.Verdict == v {
			n++
		}
	}
	return n
}
