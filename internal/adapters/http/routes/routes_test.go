package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lifekline-api/internal/adapters/http/middleware"
	"lifekline-api/internal/adapters/persistence/memstore"
	"lifekline-api/internal/config"
	"lifekline-api/internal/pkg/bazi"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testAdminKey = "admin-secret"

type stubGenerator struct {
	err error
}

func (g *stubGenerator) Available() bool { return true }

func (g *stubGenerator) Generate(_ context.Context, kind bazi.Kind, _ *bazi.Info) (map[string]interface{}, error) {
	if g.err != nil {
		return nil, g.err
	}
	return map[string]interface{}{"kind": string(kind), "chartPoints": []interface{}{}}, nil
}

type envelope struct {
	Success       bool            `json:"success"`
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error"`
	ErrorCode     string          `json:"errorCode"`
	RemainingUses *int            `json:"remainingUses"`
}

func testConfig() *config.Config {
	return &config.Config{
		AppMode:  "dev",
		Timezone: "UTC",
		Database: config.DatabaseConfig{Driver: "memory"},
		JWT:      config.JWTConfig{Secret: "test-secret", Issuer: "lifekline-api", TokenTTLDays: 7},
		Admin:    config.AdminConfig{APIKey: testAdminKey},
		Password: config.PasswordConfig{BcryptCost: bcrypt.MinCost},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, gen *stubGenerator) *fiber.App {
	t.Helper()
	app, _ := newTestAppWithStore(t, cfg, gen)
	return app
}

func newTestAppWithStore(t *testing.T, cfg *config.Config, gen *stubGenerator) (*fiber.App, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	Setup(app, NewServices(store, nil, gen, cfg), cfg)
	return app, store
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}, headers map[string]string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func admin() map[string]string {
	return map[string]string{middleware.AdminKeyHeader: testAdminKey}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func chart() map[string]interface{} {
	return map[string]interface{}{"baziInfo": map[string]string{
		"gender":      "Female",
		"birthYear":   "1995",
		"yearPillar":  "乙亥",
		"monthPillar": "戊寅",
		"dayPillar":   "丁丑",
		"hourPillar":  "庚子",
		"startAge":    "6",
		"firstDaYun":  "丁丑",
	}}
}

type credentials struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	AlreadyAllocated bool   `json:"alreadyAllocated"`
}

// purchase provisions one account through the admin API and logs into it
func purchase(t *testing.T, app *fiber.App, orderID string, uses int) (credentials, string) {
	t.Helper()
	status, _ := call(t, app, http.MethodPost, "/api/admin/accounts/generate",
		map[string]int{"count": 1, "usesPerAccount": uses}, admin())
	require.Equal(t, http.StatusOK, status)

	status, env := call(t, app, http.MethodPost, "/api/admin/accounts/allocate",
		map[string]string{"orderId": orderID, "platform": "taobao"}, admin())
	require.Equal(t, http.StatusOK, status)
	var cred credentials
	require.NoError(t, json.Unmarshal(env.Data, &cred))

	status, env = call(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": cred.Username, "password": cred.Password}, nil)
	require.Equal(t, http.StatusOK, status)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	return cred, login.Token
}

func TestAdminKeyRequired(t *testing.T) {
	app := newTestApp(t, testConfig(), &stubGenerator{})

	status, env := call(t, app, http.MethodGet, "/api/admin/accounts/pool", nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ADMIN_FORBIDDEN", env.ErrorCode)

	status, env = call(t, app, http.MethodGet, "/api/admin/accounts/pool", nil,
		map[string]string{middleware.AdminKeyHeader: "wrong"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ADMIN_FORBIDDEN", env.ErrorCode)

	status, _ = call(t, app, http.MethodGet, "/api/admin/accounts/pool", nil, admin())
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminKeyNotConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.APIKey = ""
	app := newTestApp(t, cfg, &stubGenerator{})

	status, _ := call(t, app, http.MethodGet, "/api/admin/accounts/pool", nil, admin())
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestPurchaseLoginAndSpend(t *testing.T) {
	app := newTestApp(t, testConfig(), &stubGenerator{})
	cred, token := purchase(t, app, "ORD-1", 2)

	// same order returns the same account
	status, env := call(t, app, http.MethodPost, "/api/admin/accounts/allocate",
		map[string]string{"orderId": "ORD-1"}, admin())
	require.Equal(t, http.StatusOK, status)
	var again credentials
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.True(t, again.AlreadyAllocated)
	assert.Equal(t, cred.Username, again.Username)
	assert.Equal(t, cred.Password, again.Password)

	status, env = call(t, app, http.MethodGet, "/api/auth/me", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "password")
	require.NotNil(t, env.RemainingUses)
	assert.Equal(t, 2, *env.RemainingUses)

	for want := 1; want >= 0; want-- {
		status, env = call(t, app, http.MethodPost, "/api/generate", chart(), bearer(token))
		require.Equal(t, http.StatusOK, status, env.Error)
		require.NotNil(t, env.RemainingUses)
		assert.Equal(t, want, *env.RemainingUses)
	}

	status, env = call(t, app, http.MethodPost, "/api/generate/love", chart(), bearer(token))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INSUFFICIENT_USES", env.ErrorCode)
	require.NotNil(t, env.RemainingUses)
	assert.Equal(t, 0, *env.RemainingUses)

	status, env = call(t, app, http.MethodGet, "/api/generate/status", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"remainingUses":0,"canGenerate":false,"serviceAvailable":true}`, string(env.Data))
}

func TestUpstreamFailureIsNotCharged(t *testing.T) {
	gen := &stubGenerator{err: errors.New("upstream 500")}
	app := newTestApp(t, testConfig(), gen)
	_, token := purchase(t, app, "ORD-1", 3)

	status, env := call(t, app, http.MethodPost, "/api/generate/wealth", chart(), bearer(token))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "AI_ERROR", env.ErrorCode)
	require.NotNil(t, env.RemainingUses)
	assert.Equal(t, 3, *env.RemainingUses)

	_, env = call(t, app, http.MethodGet, "/api/auth/me", nil, bearer(token))
	require.NotNil(t, env.RemainingUses)
	assert.Equal(t, 3, *env.RemainingUses)
}

func TestUsageLogKeepsRequestMeta(t *testing.T) {
	app, store := newTestAppWithStore(t, testConfig(), &stubGenerator{})

	status, _ := call(t, app, http.MethodPost, "/api/admin/accounts/generate",
		map[string]int{"count": 1, "usesPerAccount": 5}, admin())
	require.Equal(t, http.StatusOK, status)
	status, env := call(t, app, http.MethodPost, "/api/admin/accounts/allocate",
		map[string]string{"orderId": "ORD-1"}, admin())
	require.Equal(t, http.StatusOK, status)
	var cred credentials
	require.NoError(t, json.Unmarshal(env.Data, &cred))

	status, env = call(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": cred.Username, "password": cred.Password},
		map[string]string{"User-Agent": "agent-A/1.0"})
	require.Equal(t, http.StatusOK, status)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	headers := bearer(login.Token)
	headers["User-Agent"] = "agent-B/2.0 (a longer user agent string)"
	for i := 0; i < 3; i++ {
		status, _ = call(t, app, http.MethodPost, "/api/generate", chart(), headers)
		require.Equal(t, http.StatusOK, status)
	}

	logs := store.UsageLogs()
	require.Len(t, logs, 4)
	assert.Equal(t, "agent-A/1.0", logs[0].UserAgent)
	for _, entry := range logs[1:] {
		assert.Equal(t, "agent-B/2.0 (a longer user agent string)", entry.UserAgent)
	}
}

func TestGenerateValidatesBody(t *testing.T) {
	app := newTestApp(t, testConfig(), &stubGenerator{})
	_, token := purchase(t, app, "ORD-1", 3)

	status, env := call(t, app, http.MethodPost, "/api/generate", map[string]string{}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", env.ErrorCode)
}

func TestAuthErrors(t *testing.T) {
	app := newTestApp(t, testConfig(), &stubGenerator{})

	status, env := call(t, app, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_REQUIRED", env.ErrorCode)

	status, env = call(t, app, http.MethodGet, "/api/auth/me", nil, bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_INVALID", env.ErrorCode)

	status, env = call(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "LK2026010400001", "password": "nope1234"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_INVALID", env.ErrorCode)

	status, env = call(t, app, http.MethodPost, "/api/auth/login", map[string]string{"username": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", env.ErrorCode)
}

func TestDisabledAccountIsLockedOut(t *testing.T) {
	app := newTestApp(t, testConfig(), &stubGenerator{})
	cred, token := purchase(t, app, "ORD-1", 3)

	status, env := call(t, app, http.MethodGet, "/api/admin/accounts/list?status=active", nil, admin())
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Accounts []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Accounts, 1)
	assert.Equal(t, cred.Username, page.Accounts[0].Username)

	status, _ = call(t, app, http.MethodPost, "/api/admin/accounts/"+page.Accounts[0].ID+"/disable", nil, admin())
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, app, http.MethodGet, "/api/auth/me", nil, bearer(token))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ACCOUNT_DISABLED", env.ErrorCode)

	status, env = call(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": cred.Username, "password": cred.Password}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ACCOUNT_DISABLED", env.ErrorCode)

	status, env = call(t, app, http.MethodGet, "/api/admin/accounts/"+page.Accounts[0].ID+"/usage", nil, admin())
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"actionType":"login"`)
}

func TestPoolExhaustedAndRecycle(t *testing.T) {
	app := newTestApp(t, testConfig(), &stubGenerator{})

	status, env := call(t, app, http.MethodPost, "/api/admin/accounts/allocate",
		map[string]string{"orderId": "ORD-1"}, admin())
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "POOL_EXHAUSTED", env.ErrorCode)

	status, _ = call(t, app, http.MethodPost, "/api/admin/accounts/recycle",
		map[string]string{"orderId": "ORD-404"}, admin())
	assert.Equal(t, http.StatusNotFound, status)

	purchase(t, app, "ORD-2", 3)
	status, env = call(t, app, http.MethodPost, "/api/admin/accounts/recycle",
		map[string]string{"orderId": "ORD-2"}, admin())
	require.Equal(t, http.StatusOK, status)
	var rec struct {
		Recycled bool   `json:"recycled"`
		Reason   string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.False(t, rec.Recycled)
	assert.NotEmpty(t, rec.Reason)

	status, env = call(t, app, http.MethodGet, "/api/admin/accounts/pool", nil, admin())
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"total":1,"unused":0,"active":1,"expired":0,"disabled":0,"available":0}`, string(env.Data))
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, testConfig(), &stubGenerator{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
