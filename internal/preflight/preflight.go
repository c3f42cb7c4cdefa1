// Package preflight checks that the backend and frontend answer before any
// probe runs.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/genascope/accountcheck/internal/probe"
)

var (
	// ErrUnreachable means the request never produced a response.
	ErrUnreachable = errors.New("not accessible")
	// ErrUnhealthy means the service answered with a status other than 200.
	ErrUnhealthy = errors.New("unexpected status")
)

// Target is one URL that must answer 200.
type Target struct {
	Name string
	URL  string
}

// Checker issues single GET requests without retries.
type Checker struct {
	client *resty.Client
}

// NewChecker returns a checker whose requests give up after timeout.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("User-Agent", "accountcheck-preflight"),
	}
}

// Check performs one GET against target.
func (c *Checker) Check(ctx context.Context, target Target) error {
	resp, err := c.client.R().SetContext(ctx).Get(target.URL)
	if err != nil {
		return fmt.Errorf("%s %w at %s: %v", target.Name, ErrUnreachable, target.URL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%s returned %w %d from %s", target.Name, ErrUnhealthy, resp.StatusCode(), target.URL)
	}
	return nil
}

// Step wraps the checks into a single fatal checklist step. The first
// failing target aborts the run; later targets are not contacted.
func (c *Checker) Step(targets ...Target) probe.Step {
	return probe.Step{
		Name:  "Preflight",
		Fatal: true,
		Run: func(ctx context.Context, rec *probe.Recorder) error {
			for _, target := range targets {
				if err := c.Check(ctx, target); err != nil {
					return err
				}
				rec.Pass("%s is running", target.Name)
			}
			return nil
		},
	}
}
