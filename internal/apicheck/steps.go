// Package apicheck verifies the account API directly: authentication, the
// shape of account records, the current user and the status distribution.
package apicheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/genascope/accountcheck/internal/apiclient"
	"github.com/genascope/accountcheck/internal/probe"
	"github.com/genascope/accountcheck/internal/schema"
)

// Credentials are the login used against the token endpoint.
type Credentials struct {
	Username string
	Password string
}

// Suite carries state between the API probes: the token obtained by the
// first step and the records listed by the second.
type Suite struct {
	client    *apiclient.Client
	creds     Credentials
	validator *schema.Validator
	log       *zap.Logger

	accounts []schema.Record
	listed   bool
	tally    *schema.Tally
}

func NewSuite(client *apiclient.Client, creds Credentials, validator *schema.Validator, log *zap.Logger) *Suite {
	if log == nil {
		log = zap.NewNop()
	}
	return &Suite{client: client, creds: creds, validator: validator, log: log}
}

// Steps returns the probes in the order they must run. Authentication and
// the current user lookup are fatal.
func (s *Suite) Steps() []probe.Step {
	return []probe.Step{
		{Name: "Testing Backend Authentication", Fatal: true, Run: s.Authenticate},
		{Name: "Testing Accounts API Structure", Run: s.CheckAccounts},
		{Name: "Testing User Info for Account Name Display", Fatal: true, Run: s.CheckCurrentUser},
		{Name: "Testing Account Status Values", Run: s.TallyStatuses},
	}
}

// Tally returns the status distribution, or nil when no list was retrieved.
func (s *Suite) Tally() *schema.Tally { return s.tally }

func (s *Suite) Authenticate(ctx context.Context, rec *probe.Recorder) error {
	token, err := s.client.Token(ctx, s.creds.Username, s.creds.Password)
	if err != nil {
		printBody(rec, err)
		return fmt.Errorf("authentication failed: %w", err)
	}
	s.client.SetToken(token)

	rec.Pass("Authentication successful")
	rec.Detail("Token preview: %s", apiclient.Preview(token, 20))
	if info := apiclient.InspectToken(token); info.IsJWT {
		if info.Subject != "" {
			rec.Detail("Token subject: %s", info.Subject)
		}
		if !info.ExpiresAt.IsZero() {
			rec.Detail("Token expires: %s", info.ExpiresAt.Format(time.RFC3339))
		}
	}
	return nil
}

// CheckAccounts lists accounts and inspects the first record. A failed
// listing is recorded but does not stop the run.
func (s *Suite) CheckAccounts(ctx context.Context, rec *probe.Recorder) error {
	accounts, err := s.client.Accounts(ctx)
	if err != nil {
		if code := apiclient.StatusCode(err); code != 0 {
			rec.Fail("Failed to get accounts: %d", code)
		} else {
			rec.Fail("Failed to get accounts: %v", err)
		}
		printBody(rec, err)
		return nil
	}
	s.accounts = accounts
	s.listed = true
	rec.Pass("Retrieved %d accounts", len(accounts))

	if len(accounts) == 0 {
		rec.Info("No accounts returned, nothing to verify")
		return nil
	}
	account := accounts[0]

	rec.Heading("📋 Account structure verification:")
	check := schema.CheckFields(account)
	for _, f := range check.Required {
		if f.Present {
			rec.Pass("%s: %s", f.Name, f.Value)
		} else {
			rec.Fail("Missing required field: %s", f.Name)
		}
	}
	for _, f := range check.Deprecated {
		if f.Present {
			rec.Warn("Deprecated field still present: %s", f.Name)
		} else {
			rec.Pass("Deprecated field correctly removed: %s", f.Name)
		}
	}

	if s.validator == nil {
		return nil
	}
	violations, err := s.validator.Validate(account)
	if err != nil {
		rec.Warn("Could not validate account against schema: %v", err)
		return nil
	}
	if len(violations) == 0 {
		rec.Pass("Account matches the account schema")
		return nil
	}
	for _, v := range violations {
		rec.Fail("Schema violation: %s", v)
	}
	return nil
}

// CheckCurrentUser reads /auth/me and resolves the user's account name.
func (s *Suite) CheckCurrentUser(ctx context.Context, rec *probe.Recorder) error {
	user, err := s.client.Me(ctx)
	if err != nil {
		printBody(rec, err)
		return fmt.Errorf("failed to get user info: %w", err)
	}
	rec.Pass("Retrieved user information")
	rec.Detail("👤 User: %s (%s)", orUnknown(user.Name), orUnknown(user.Role))
	rec.Detail("📧 Email: %s", orUnknown(user.Email))

	if !user.HasAccount() {
		rec.Info("User has no associated account (probably super admin)")
		return nil
	}

	id := user.AccountIDString()
	rec.Detail("🏥 Account ID: %s", id)
	account, err := s.client.Account(ctx, id)
	if err != nil {
		if code := apiclient.StatusCode(err); code != 0 {
			rec.Warn("Could not retrieve account details: %d", code)
		} else {
			rec.Warn("Could not retrieve account details: %v", err)
		}
		return nil
	}
	name := account.Display("name")
	rec.Pass("Account Name: %s", orUnknown(name))
	return nil
}

// TallyStatuses prints how often each status occurs across all accounts.
func (s *Suite) TallyStatuses(ctx context.Context, rec *probe.Recorder) error {
	if !s.listed {
		rec.Warn("Account list unavailable, status distribution skipped")
		return nil
	}
	s.tally = schema.TallyStatuses(s.accounts)

	rec.Heading("📊 Account status distribution:")
	for _, e := range s.tally.Entries() {
		rec.Detail("%s: %d", e.Status, e.Count)
	}
	if n := s.tally.Counts()[schema.UnknownStatus]; n > 0 {
		rec.Warn("%d accounts have no status", n)
	}
	s.log.Debug("status tally", zap.Int("accounts", s.tally.Total()), zap.Any("counts", s.tally.Counts()))
	return nil
}

// printBody shows the response body of a failed API call, if any.
func printBody(rec *probe.Recorder, err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		rec.Detail("%s", apiErr.Body)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
