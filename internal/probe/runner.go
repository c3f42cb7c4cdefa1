package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrPanic marks a step that panicked instead of returning.
var ErrPanic = errors.New("step panicked")

// Step is one entry of the checklist.
type Step struct {
	Name string
	// Fatal steps stop the run when they return an error.
	Fatal bool
	Run   func(ctx context.Context, rec *Recorder) error
}

// AbortError is returned by Runner.Run when a fatal step failed.
type AbortError struct {
	Step string
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// IsAbort reports whether err carries an AbortError.
func IsAbort(err error) bool {
	var abort *AbortError
	return errors.As(err, &abort)
}

// Runner executes steps strictly in order on the calling goroutine.
// Step numbers keep counting across successive Run calls.
type Runner struct {
	rec  *Recorder
	out  io.Writer
	log  *zap.Logger
	seen int
}

func NewRunner(rec *Recorder) *Runner {
	return &Runner{rec: rec, out: rec.out, log: rec.log}
}

// Run executes every step. It returns an *AbortError as soon as a fatal
// step fails and nil otherwise; non-fatal failures only show up as
// recorded results.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		r.seen++
		r.banner(r.seen, step.Name)
		r.rec.beginStep(step.Name)

		start := time.Now()
		err := r.runStep(ctx, step)
		elapsed := time.Since(start)
		r.rec.metrics.observeStep(r.rec.suite, step.Name, elapsed)

		if err == nil {
			r.log.Debug("step finished", zap.String("step", step.Name), zap.Duration("elapsed", elapsed))
			continue
		}
		if step.Fatal {
			r.rec.Fail("%s failed: %v", step.Name, err)
			r.log.Error("aborting run", zap.String("step", step.Name), zap.Error(err))
			return &AbortError{Step: step.Name, Err: err}
		}
		r.rec.Warn("could not complete %s: %v", strings.ToLower(step.Name), err)
		r.log.Warn("step degraded to warning", zap.String("step", step.Name), zap.Error(err))
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return step.Run(ctx, r.rec)
}

func (r *Runner) banner(n int, name string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(r.out, "\n%s\nStep %d: %s\n%s\n", line, n, name, line)
}

// Sleep pauses for d or until ctx is done. Fixed waits give client-side
// rendering time to settle; they are never retried.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
