package apicheck

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genascope/accountcheck/internal/apiclient"
	"github.com/genascope/accountcheck/internal/config"
	"github.com/genascope/accountcheck/internal/probe"
	"github.com/genascope/accountcheck/internal/schema"
)

const testToken = "opaque-access-token-for-tests"

// backend is a fake of the account API whose answers each test tweaks.
type backend struct {
	tokenStatus    int
	accountsStatus int
	meStatus       int
	accounts       []gin.H
	me             gin.H
	detail         gin.H
}

func newBackend() *backend {
	return &backend{
		tokenStatus:    http.StatusOK,
		accountsStatus: http.StatusOK,
		meStatus:       http.StatusOK,
		accounts: []gin.H{
			{"id": 1, "name": "Acme Clinic", "status": "active", "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-02-01T00:00:00Z"},
			{"id": 2, "name": "Beta Labs", "status": "active", "created_at": "2024-01-01T00:00:00Z", "updated_at": nil},
			{"id": 3, "name": "Gamma Health", "status": "pending", "created_at": "2024-01-01T00:00:00Z", "updated_at": nil},
		},
		me:     gin.H{"id": "u1", "name": "Super Admin", "email": "superadmin@genascope.com", "role": "super_admin", "account_id": nil},
		detail: gin.H{"id": 1, "name": "Acme Clinic", "status": "active"},
	}
}

func (b *backend) serve(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.POST("/api/auth/token", func(c *gin.Context) {
		if b.tokenStatus != http.StatusOK {
			c.JSON(b.tokenStatus, gin.H{"detail": "Incorrect username or password"})
			return
		}
		assert.Equal(t, "superadmin@genascope.com", c.PostForm("username"))
		c.JSON(http.StatusOK, gin.H{"access_token": testToken, "token_type": "bearer"})
	})

	api := router.Group("/api", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+testToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}
		c.Next()
	})
	api.GET("/accounts", func(c *gin.Context) {
		if b.accountsStatus != http.StatusOK {
			c.JSON(b.accountsStatus, gin.H{"detail": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, b.accounts)
	})
	api.GET("/accounts/:id", func(c *gin.Context) {
		if c.Param("id") != "1" {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Account not found"})
			return
		}
		c.JSON(http.StatusOK, b.detail)
	})
	api.GET("/auth/me", func(c *gin.Context) {
		if b.meStatus != http.StatusOK {
			c.JSON(b.meStatus, gin.H{"detail": "session expired"})
			return
		}
		c.JSON(http.StatusOK, b.me)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, b *backend) (*probe.Report, string, error) {
	t.Helper()
	srv := b.serve(t)
	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL

	var out bytes.Buffer
	report, err := Run(context.Background(), cfg, Deps{Out: &out})
	require.NotNil(t, report)
	return report, out.String(), err
}

func messages(report *probe.Report, v probe.Verdict) []string {
	var out []string
	for _, r := range report.Results {
		if r.Verdict == v {
			out = append(out, r.Message)
		}
	}
	return out
}

func TestRunHappyPath(t *testing.T) {
	report, out, err := run(t, newBackend())
	require.NoError(t, err)

	assert.Equal(t, probe.Success, report.Outcome)
	assert.Equal(t, 0, ExitCode(report))
	assert.Empty(t, messages(report, probe.Warn))

	assert.Contains(t, out, "Authentication successful")
	assert.Contains(t, out, "Retrieved 3 accounts")
	assert.Contains(t, out, "📋 Account structure verification:")
	assert.Contains(t, out, "✅ id: 1")
	assert.Contains(t, out, "✅ status: active")
	assert.Contains(t, out, "Deprecated field correctly removed: is_active")
	assert.Contains(t, out, "Account matches the account schema")
	assert.Contains(t, out, "👤 User: Super Admin (super_admin)")
	assert.Contains(t, out, "User has no associated account (probably super admin)")
	assert.Contains(t, out, "active: 2")
	assert.Contains(t, out, "pending: 1")
	assert.Contains(t, out, "All tests completed successfully")
}

func TestTokenFailureAborts(t *testing.T) {
	b := newBackend()
	b.tokenStatus = http.StatusUnauthorized

	report, out, err := run(t, b)
	require.Error(t, err)
	assert.True(t, probe.IsAbort(err))
	assert.Equal(t, probe.Aborted, report.Outcome)
	assert.Equal(t, "Testing Backend Authentication", report.AbortedAt)
	assert.Equal(t, 1, ExitCode(report))

	assert.Contains(t, out, "Incorrect username or password")
	assert.NotContains(t, out, "Testing Accounts API Structure")
}

func TestDeprecatedFieldsWarn(t *testing.T) {
	b := newBackend()
	b.accounts = []gin.H{
		{"id": 1, "name": "Acme", "status": "active", "created_at": "x", "updated_at": "y", "domain": "acme.test", "is_active": true},
	}

	report, _, err := run(t, b)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Deprecated field still present: domain",
		"Deprecated field still present: is_active",
	}, messages(report, probe.Warn))
	assert.Contains(t, messages(report, probe.Pass), "Deprecated field correctly removed: admin_email")
	assert.Equal(t, probe.Success, report.Outcome)
}

func TestMissingRequiredFieldFails(t *testing.T) {
	b := newBackend()
	b.accounts = []gin.H{{"id": 1, "name": "Acme", "is_active": true}}

	report, _, err := run(t, b)
	require.NoError(t, err)

	fails := messages(report, probe.Fail)
	assert.Contains(t, fails, "Missing required field: status")
	assert.Contains(t, fails, "Missing required field: created_at")
	assert.Equal(t, probe.Failure, report.Outcome)
	assert.Equal(t, 1, ExitCode(report))
}

func TestAccountsFailureSkipsTally(t *testing.T) {
	b := newBackend()
	b.accountsStatus = http.StatusInternalServerError

	report, out, err := run(t, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"Failed to get accounts: 500"}, messages(report, probe.Fail))
	assert.Contains(t, out, "database unavailable")
	assert.Contains(t, out, "Retrieved user information")
	assert.Contains(t, messages(report, probe.Warn), "Account list unavailable, status distribution skipped")
	assert.Equal(t, 1, ExitCode(report))
}

func TestCurrentUserFailureAborts(t *testing.T) {
	b := newBackend()
	b.meStatus = http.StatusUnauthorized

	report, out, err := run(t, b)
	require.Error(t, err)
	assert.Equal(t, "Testing User Info for Account Name Display", report.AbortedAt)
	assert.NotContains(t, out, "Account status distribution")
	assert.Equal(t, 1, ExitCode(report))
}

func TestCurrentUserAccountLookup(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		b := newBackend()
		b.me["account_id"] = 1

		report, out, err := run(t, b)
		require.NoError(t, err)
		assert.Contains(t, out, "🏥 Account ID: 1")
		assert.Contains(t, messages(report, probe.Pass), "Account Name: Acme Clinic")
	})

	t.Run("not found is a warning", func(t *testing.T) {
		b := newBackend()
		b.me["account_id"] = "missing"

		report, _, err := run(t, b)
		require.NoError(t, err)
		assert.Equal(t, []string{"Could not retrieve account details: 404"}, messages(report, probe.Warn))
	})
}

func TestTallyCountsStatuses(t *testing.T) {
	b := newBackend()
	b.accounts = []gin.H{
		{"id": 1, "name": "a", "status": "active", "created_at": "x", "updated_at": "y"},
		{"id": 2, "name": "b", "status": "active", "created_at": "x", "updated_at": "y"},
		{"id": 3, "name": "c", "status": "pending", "created_at": "x", "updated_at": "y"},
		{"id": 4, "name": "d"},
	}
	srv := b.serve(t)
	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL

	var out bytes.Buffer
	rec := probe.NewRecorder(SuiteName, &out, nil, nil)
	validator, err := schema.NewValidator()
	require.NoError(t, err)
	suite := NewSuite(apiclient.New(ClientConfig(cfg)), Credentials{Username: cfg.Credentials.Username, Password: cfg.Credentials.Password}, validator, nil)

	require.NoError(t, probe.NewRunner(rec).Run(context.Background(), suite.Steps()))
	require.NotNil(t, suite.Tally())
	assert.Equal(t, []schema.StatusCount{
		{Status: "active", Count: 2},
		{Status: "pending", Count: 1},
		{Status: schema.UnknownStatus, Count: 1},
	}, suite.Tally().Entries())
	assert.Contains(t, out.String(), "1 accounts have no status")
}
