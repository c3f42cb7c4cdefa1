// Package browser drives a single headless Chromium page for the frontend
// checks. Two backends are available: playwright-go (default) and go-rod.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/config"
)

// ErrNotFound is returned when a selector or link matches nothing.
var ErrNotFound = errors.New("element not found")

// Driver is the subset of browser automation the checks use. All methods
// act on one page; the session lives until Close.
type Driver interface {
	// Goto navigates and waits for the load event.
	Goto(ctx context.Context, url string) error
	// URL returns the current page URL.
	URL() string
	// Content returns the serialized DOM of the current page.
	Content() (string, error)
	// WaitFor blocks until selector is attached or timeout elapses.
	WaitFor(selector string, timeout time.Duration) error
	Fill(selector, value string) error
	Click(selector string) error
	// Text returns the text of the first element matching selector, or
	// ErrNotFound without waiting.
	Text(selector string) (string, error)
	// Evaluate runs a JavaScript expression in the page and returns its
	// JSON-decoded value; null becomes nil.
	Evaluate(expression string) (any, error)
	// CountLinks counts anchors whose text contains partial, case-sensitive.
	CountLinks(partial string) (int, error)
	// ClickLink clicks the index-th anchor counted by CountLinks.
	ClickLink(partial string, index int) error
	Close() error
}

// Options are the launch settings shared by both backends.
type Options struct {
	Headless       bool
	NoSandbox      bool
	DisableDevShm  bool
	SkipInstall    bool
	Bin            string
	ControlURL     string
	SlowMo         int
	DefaultTimeout time.Duration
}

// OptionsFromConfig maps the browser section of the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Headless:       cfg.Browser.Headless,
		NoSandbox:      cfg.Browser.NoSandbox,
		DisableDevShm:  cfg.Browser.DisableDevShm,
		SkipInstall:    cfg.Browser.SkipInstall,
		Bin:            cfg.Browser.Bin,
		ControlURL:     cfg.Browser.ControlURL,
		SlowMo:         cfg.Browser.SlowMo,
		DefaultTimeout: cfg.Timing.ElementTimeout,
	}
}

// Args returns the Chromium command-line switches implied by o.
func (o Options) Args() []string {
	var args []string
	if o.NoSandbox {
		args = append(args, "--no-sandbox")
	}
	if o.DisableDevShm {
		args = append(args, "--disable-dev-shm-usage")
	}
	return args
}

// Open starts a browser session with the named backend.
func Open(ctx context.Context, driver string, opts Options, log *zap.Logger) (Driver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("starting browser",
		zap.String("driver", driver),
		zap.Bool("headless", opts.Headless),
		zap.Strings("args", opts.Args()))

	switch driver {
	case "playwright", "":
		return openPlaywright(opts, log)
	case "rod":
		return openRod(ctx, opts, log)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", driver)
	}
}
