// Package apiclient talks to the backend endpoints the checks depend on.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/genascope/accountcheck/internal/schema"
)

// ErrNoToken means the token endpoint answered 200 without access_token.
var ErrNoToken = errors.New("token response has no access_token")

// Config represents client configuration
type Config struct {
	BaseURL      string
	TokenPath    string
	AccountsPath string
	MePath       string
	Timeout      time.Duration
}

// Client is a thin, retry-free wrapper around the backend API.
type Client struct {
	http *resty.Client
	cfg  Config
}

// User is the subset of /api/auth/me the checks report on.
type User struct {
	ID        any    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AccountID any    `json:"account_id"`
}

// HasAccount reports whether the user is bound to an account.
func (u User) HasAccount() bool {
	switch v := u.AccountID.(type) {
	case nil:
		return false
	case string:
		return v != ""
	default:
		return true
	}
}

// AccountIDString formats AccountID for use in a URL path.
func (u User) AccountIDString() string {
	return schema.Record{"account_id": u.AccountID}.Display("account_id")
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "accountcheck")

	return &Client{http: httpClient, cfg: cfg}
}

// SetToken makes every later request carry "Authorization: Bearer token".
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// Token exchanges credentials for an access token using a form-encoded
// POST, the OAuth2 password-grant shape.
func (c *Client) Token(ctx context.Context, username, password string) (string, error) {
	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": username,
			"password": password,
		}).
		Post(c.cfg.TokenPath)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	if err := check(resp); err != nil {
		return "", err
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", ErrNoToken
	}
	return out.AccessToken, nil
}

// Accounts lists every account visible to the current token.
func (c *Client) Accounts(ctx context.Context) ([]schema.Record, error) {
	var out []schema.Record
	if err := c.getJSON(ctx, c.cfg.AccountsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Account fetches a single account by id.
func (c *Client) Account(ctx context.Context, id string) (schema.Record, error) {
	var out schema.Record
	if err := c.getJSON(ctx, c.cfg.AccountsPath+"/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.getJSON(ctx, c.cfg.MePath, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", path, err)
	}
	if err := check(resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func check(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &APIError{
		Method:     resp.Request.Method,
		Path:       resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}
}
