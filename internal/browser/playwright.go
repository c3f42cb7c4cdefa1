package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	log     *zap.Logger
}

func openPlaywright(opts Options, log *zap.Logger) (Driver, error) {
	if !opts.SkipInstall {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	d := &playwrightDriver{pw: pw, log: log}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless:        playwright.Bool(opts.Headless),
		Args:            opts.Args(),
		ChromiumSandbox: playwright.Bool(!opts.NoSandbox),
	}
	if opts.SlowMo > 0 {
		launch.SlowMo = playwright.Float(float64(opts.SlowMo))
	}
	if opts.Bin != "" {
		launch.ExecutablePath = playwright.String(opts.Bin)
	}

	d.browser, err = pw.Chromium.Launch(launch)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	d.context, err = d.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 720},
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create context: %w", err)
	}

	d.page, err = d.context.NewPage()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	if opts.DefaultTimeout > 0 {
		d.page.SetDefaultTimeout(float64(opts.DefaultTimeout.Milliseconds()))
	}
	return d, nil
}

func (d *playwrightDriver) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url)
	if err != nil && strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
		return fmt.Errorf("redirect loop navigating to %s: %w", url, err)
	}
	return err
}

func (d *playwrightDriver) URL() string { return d.page.URL() }

func (d *playwrightDriver) Content() (string, error) { return d.page.Content() }

func (d *playwrightDriver) WaitFor(selector string, timeout time.Duration) error {
	err := d.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, selector, err)
	}
	return nil
}

func (d *playwrightDriver) Fill(selector, value string) error {
	return d.page.Locator(selector).First().Fill(value)
}

func (d *playwrightDriver) Click(selector string) error {
	return d.page.Locator(selector).First().Click()
}

func (d *playwrightDriver) Text(selector string) (string, error) {
	loc := d.page.Locator(selector)
	if count, err := loc.Count(); err != nil {
		return "", err
	} else if count == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	text, err := loc.First().InnerText()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (d *playwrightDriver) Evaluate(expression string) (any, error) {
	return d.page.Evaluate(expression)
}

func (d *playwrightDriver) links(partial string) playwright.Locator {
	return d.page.Locator("a").Filter(playwright.LocatorFilterOptions{
		HasText: regexp.MustCompile(regexp.QuoteMeta(partial)),
	})
}

func (d *playwrightDriver) CountLinks(partial string) (int, error) {
	return d.links(partial).Count()
}

func (d *playwrightDriver) ClickLink(partial string, index int) error {
	return d.links(partial).Nth(index).Click()
}

// Close releases page, context, browser and driver, in that order. It is
// safe on a partially opened session.
func (d *playwrightDriver) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.page != nil {
		keep(d.page.Close())
	}
	if d.context != nil {
		keep(d.context.Close())
	}
	if d.browser != nil {
		keep(d.browser.Close())
	}
	if d.pw != nil {
		keep(d.pw.Stop())
	}
	if firstErr != nil {
		d.log.Warn("browser cleanup incomplete", zap.Error(firstErr))
	}
	return firstErr
}
