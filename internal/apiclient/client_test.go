package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token-0123456789abcdef"

func setupTestRouter(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.POST("/api/auth/token", func(c *gin.Context) {
		assert.Equal(t, "application/x-www-form-urlencoded", c.ContentType())
		if c.PostForm("username") != "admin@example.com" || c.PostForm("password") != "pw" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": testToken, "token_type": "bearer"})
	})

	authed := router.Group("/api", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+testToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}
		c.Next()
	})
	authed.GET("/accounts", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"id": 1, "name": "Acme", "status": "active", "created_at": "2024-01-01", "updated_at": "2024-01-02"},
		})
	})
	authed.GET("/accounts/:id", func(c *gin.Context) {
		if c.Param("id") != "1" {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Account not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": 1, "name": "Acme", "status": "active"})
	})
	authed.GET("/auth/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": "u1", "name": "Ada", "email": "admin@example.com", "role": "admin", "account_id": 1})
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		BaseURL:      srv.URL,
		TokenPath:    "/api/auth/token",
		AccountsPath: "/api/accounts",
		MePath:       "/api/auth/me",
		Timeout:      2 * time.Second,
	})
}

func TestClient(t *testing.T) {
	srv := setupTestRouter(t)
	ctx := context.Background()

	t.Run("token with good credentials", func(t *testing.T) {
		token, err := newTestClient(srv).Token(ctx, "admin@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, testToken, token)
	})

	t.Run("token with bad credentials", func(t *testing.T) {
		_, err := newTestClient(srv).Token(ctx, "admin@example.com", "wrong")
		require.Error(t, err)
		assert.True(t, IsAPIError(err))
		assert.True(t, IsUnauthorized(err))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Body, "Incorrect username")
		assert.Equal(t, http.MethodPost, apiErr.Method)
	})

	t.Run("authenticated calls", func(t *testing.T) {
		client := newTestClient(srv)
		client.SetToken(testToken)

		accounts, err := client.Accounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, "active", accounts[0].Status())

		me, err := client.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Ada", me.Name)
		assert.True(t, me.HasAccount())
		assert.Equal(t, "1", me.AccountIDString())

		account, err := client.Account(ctx, me.AccountIDString())
		require.NoError(t, err)
		assert.Equal(t, "Acme", account.Display("name"))

		_, err = client.Account(ctx, "99")
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		_, err := newTestClient(srv).Accounts(ctx)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("unreachable backend", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		_, err := newTestClient(dead).Token(ctx, "a", "b")
		require.Error(t, err)
		assert.False(t, IsAPIError(err))
	})
}

func TestUserHasAccount(t *testing.T) {
	assert.False(t, User{}.HasAccount())
	assert.False(t, User{AccountID: ""}.HasAccount())
	assert.True(t, User{AccountID: "acc-1"}.HasAccount())
	assert.True(t, User{AccountID: 3.0}.HasAccount())
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "superadmin@genascope.com",
		"exp": exp.Unix(),
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	info := InspectToken(signed)
	assert.True(t, info.IsJWT)
	assert.Equal(t, "superadmin@genascope.com", info.Subject)
	assert.True(t, exp.Equal(info.ExpiresAt))

	assert.False(t, InspectToken("opaque-session-token").IsJWT)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 20))
	assert.Equal(t, strings.Repeat("a", 20)+"...", Preview(strings.Repeat("a", 30), 20))
}
