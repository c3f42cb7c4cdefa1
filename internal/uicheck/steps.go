// Package uicheck verifies the account-management frontend through a real
// browser: login, the accounts page, stored credentials and the edit form.
package uicheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/apiclient"
	"github.com/genascope/accountcheck/internal/browser"
	"github.com/genascope/accountcheck/internal/config"
	"github.com/genascope/accountcheck/internal/probe"
	"github.com/genascope/accountcheck/internal/schema"
)

// Suite holds the browser probes. Every probe is best-effort: missing
// elements are reported, never raised.
type Suite struct {
	cfg     *config.Config
	driver  browser.Driver
	scanner *schema.Scanner
	log     *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewSuite(cfg *config.Config, driver browser.Driver, log *zap.Logger) *Suite {
	if log == nil {
		log = zap.NewNop()
	}
	return &Suite{
		cfg:     cfg,
		driver:  driver,
		scanner: schema.NewScanner(cfg.Scan.Mode),
		log:     log,
		sleep:   probe.Sleep,
	}
}

// Steps returns the probes in the order they must run.
func (s *Suite) Steps() []probe.Step {
	return []probe.Step{
		{Name: "Loading Login Page", Run: s.LoadLoginPage},
		{Name: "Performing Login", Run: s.Login},
		{Name: "Navigating to Accounts Management", Run: s.InspectAccountsPage},
		{Name: "Checking Authentication State", Run: s.InspectLocalStorage},
		{Name: "Testing Account Edit Form", Run: s.ProbeEditForm},
	}
}

func (s *Suite) LoadLoginPage(ctx context.Context, rec *probe.Recorder) error {
	if err := s.driver.Goto(ctx, s.cfg.Frontend.LoginURL()); err != nil {
		return fmt.Errorf("failed to navigate to login: %w", err)
	}
	rec.Pass("Login page loaded")
	return nil
}

// Login fills the form and waits a bounded time for the app to react. A
// slow login is a warning, not an error.
func (s *Suite) Login(ctx context.Context, rec *probe.Recorder) error {
	sel := s.cfg.Selectors
	creds := s.cfg.Credentials

	if err := s.driver.WaitFor(sel.Email, s.cfg.Timing.ElementTimeout); err != nil {
		return fmt.Errorf("email input not found: %w", err)
	}
	if err := s.driver.Fill(sel.Email, creds.Username); err != nil {
		return fmt.Errorf("failed to fill email: %w", err)
	}
	rec.Pass("Email entered")

	if err := s.driver.Fill(sel.Password, creds.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	rec.Pass("Password entered")

	if err := s.driver.Click(sel.Submit); err != nil {
		return fmt.Errorf("failed to click submit: %w", err)
	}
	rec.Pass("Login button clicked")

	done, err := s.waitForLogin(ctx)
	if err != nil {
		return err
	}
	if !done {
		rec.Warn("Login process taking longer than expected")
		s.log.Warn("login wait timed out",
			zap.Duration("timeout", s.cfg.Timing.LoginTimeout),
			zap.String("url", s.driver.URL()))
		return nil
	}
	rec.Pass("Login process completed")
	rec.Detail("Current URL: %s", s.driver.URL())
	return nil
}

// waitForLogin polls until the URL leaves the login page or the success
// text renders. It reports false once the login timeout has elapsed.
func (s *Suite) waitForLogin(ctx context.Context) (bool, error) {
	loginURL := s.cfg.Frontend.LoginURL()
	success := s.cfg.Selectors.LoginSuccess
	deadline := time.Now().Add(s.cfg.Timing.LoginTimeout)

	for {
		if s.driver.URL() != loginURL {
			return true, nil
		}
		if content, err := s.driver.Content(); err == nil && strings.Contains(content, success) {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := s.sleep(ctx, s.cfg.Timing.PollInterval); err != nil {
			return false, err
		}
	}
}

// InspectAccountsPage scans the rendered accounts page for schema markers.
func (s *Suite) InspectAccountsPage(ctx context.Context, rec *probe.Recorder) error {
	if err := s.driver.Goto(ctx, s.cfg.Frontend.AccountsURL()); err != nil {
		return fmt.Errorf("failed to navigate to accounts: %w", err)
	}
	rec.Pass("Navigated to accounts page")

	if err := s.sleep(ctx, s.cfg.Timing.RenderDelay); err != nil {
		return err
	}

	if title, err := s.driver.Text(s.cfg.Selectors.Heading); err != nil {
		rec.Warn("Could not find expected page elements")
		s.log.Debug("heading lookup failed", zap.Error(err))
	} else {
		rec.Pass("Page title found: %s", title)
	}

	content, err := s.driver.Content()
	if err != nil {
		return fmt.Errorf("failed to read page source: %w", err)
	}
	page := s.scanner.Prepare(content)
	markers := s.cfg.Markers

	if !page.Contains(markers.Content) {
		rec.Warn("No %s content found", markers.Content)
		return nil
	}
	rec.Pass("Account-related content found on page")

	present, absent := page.Split(markers.Required)
	for _, m := range present {
		rec.Pass("'%s' field found (correct schema)", m)
	}
	for _, m := range absent {
		rec.Warn("'%s' field not found", m)
	}

	present, absent = page.Split(markers.Forbidden)
	for _, m := range present {
		rec.Fail("Old '%s' field still present", m)
	}
	for _, m := range absent {
		rec.Pass("Old '%s' field correctly removed", m)
	}
	return nil
}

// InspectLocalStorage reads the stored token and user through an inline
// script.
func (s *Suite) InspectLocalStorage(ctx context.Context, rec *probe.Recorder) error {
	token, err := s.storageItem(s.cfg.Selectors.TokenKey)
	if err != nil {
		return err
	}
	user, err := s.storageItem(s.cfg.Selectors.UserKey)
	if err != nil {
		return err
	}

	if token != "" {
		rec.Pass("Auth token found in localStorage")
		rec.Detail("Token preview: %s", apiclient.Preview(token, 20))
		if info := apiclient.InspectToken(token); info.IsJWT {
			rec.Detail("Token subject: %s", info.Subject)
			if !info.ExpiresAt.IsZero() {
				rec.Detail("Token expires: %s", info.ExpiresAt.Format(time.RFC3339))
			}
		}
	} else {
		rec.Fail("No auth token found in localStorage")
	}

	if user != "" {
		rec.Pass("User data found in localStorage")
		rec.Detail("User data: %s", user)
	} else {
		rec.Fail("No user data found in localStorage")
	}
	return nil
}

func (s *Suite) storageItem(key string) (string, error) {
	expr := fmt.Sprintf("localStorage.getItem('%s')", strings.ReplaceAll(key, "'", `\'`))
	v, err := s.driver.Evaluate(expr)
	if err != nil {
		return "", fmt.Errorf("failed to read localStorage %q: %w", key, err)
	}
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	default:
		return fmt.Sprint(val), nil
	}
}

// ProbeEditForm follows the first edit link and checks which account model
// the form is built for.
func (s *Suite) ProbeEditForm(ctx context.Context, rec *probe.Recorder) error {
	if err := s.driver.Goto(ctx, s.cfg.Frontend.AccountsURL()); err != nil {
		return fmt.Errorf("failed to navigate to accounts: %w", err)
	}
	if err := s.sleep(ctx, s.cfg.Timing.EditDelay); err != nil {
		return err
	}

	text := s.cfg.Selectors.EditLinkText
	count, err := s.driver.CountLinks(text)
	if err != nil {
		rec.Warn("Could not test edit form: %v", err)
		return nil
	}
	if count == 0 {
		rec.Warn("No edit links found")
		return nil
	}
	rec.Pass("Found %d edit links", count)

	if err := s.driver.ClickLink(text, 0); err != nil {
		rec.Warn("Could not test edit form: %v", err)
		return nil
	}
	if err := s.sleep(ctx, s.cfg.Timing.EditDelay); err != nil {
		return err
	}
	rec.Pass("Navigated to edit form: %s", s.driver.URL())

	content, err := s.driver.Content()
	if err != nil {
		rec.Warn("Could not test edit form: %v", err)
		return nil
	}
	page := s.scanner.Prepare(content)
	legacy := page.Contains(s.cfg.Markers.LegacyForm)

	switch {
	case page.Contains("status") && !legacy:
		rec.Pass("Edit form appears to use new schema")
	case legacy:
		rec.Warn("Edit form may still use old 'is_active' checkbox")
	default:
		rec.Warn("Edit form shows neither a status field nor the old checkbox")
	}
	return nil
}
