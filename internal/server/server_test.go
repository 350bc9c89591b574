package server

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/abank/internal/account"
	"github.com/congo-pay/abank/internal/clock"
	"github.com/congo-pay/abank/internal/config"
	"github.com/congo-pay/abank/internal/idgen"
	"github.com/congo-pay/abank/internal/kvstore"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/logging"
	"github.com/congo-pay/abank/internal/routes"
)

type testServer struct {
	app  *fiber.App
	repo *ledger.Repository
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	cfg := config.Config{
		AppName:                "abank-test",
		AppEnv:                 "test",
		StoreDriver:            "memory",
		SessionSecret:          "test-secret-0123456789",
		IdempotencyTTL:         time.Minute,
		LoginAttemptsPerMinute: 100,
		SeedDemo:               true,
		SingleActiveCard:       true,
		BcryptCost:             4,
	}
	repo := ledger.NewRepository(kvstore.NewMemory(), logging.Discard())
	srv, err := New(cfg, routes.Deps{
		Repo:   repo,
		Cache:  cache,
		Logger: logging.Discard(),
		Clock:  clock.NewManual(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		IDs:    idgen.NewSequence(),
		Digits: rand.New(rand.NewPCG(3, 4)),
	})
	require.NoError(t, err)
	return testServer{app: srv.App(), repo: repo}
}

func (s testServer) do(t *testing.T, method, path, token, body string, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.do(t, fiber.MethodPost, "/api/v1/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func errorKind(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	kind, _ := e["kind"].(string)
	return kind
}

func TestRegisterLoginAndProfile(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/api/v1/auth/register", "",
		`{"name":"Ivan","email":"ivan@x.com","phone":"+7 (999) 555-44-33","password":"12345678"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.EqualValues(t, 50000, body["balance"])
	assert.Empty(t, body["passwordHash"])

	token := s.login(t, "ivan@x.com", "12345678")
	status, body = s.do(t, fiber.MethodGet, "/api/v1/me", token, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ivan@x.com", body["email"])

	status, body = s.do(t, fiber.MethodPost, "/api/v1/auth/logout", token, "")
	require.Equal(t, fiber.StatusNoContent, status)
	status, body = s.do(t, fiber.MethodGet, "/api/v1/me", token, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "auth", errorKind(body))
}

func TestLoginFailureShape(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodPost, "/api/v1/auth/login", "", `{"email":"ivan@example.com","password":"nope"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "auth", errorKind(body))
	e := body["error"].(map[string]any)
	assert.NotEmpty(t, e["message"])
}

func TestTransferFlowWithIdempotency(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, account.DemoUserEmail, account.DemoUserPassword)

	transfer := `{"recipient":"admin@abank.ru","amount":"100","method":"email"}`
	status, body := s.do(t, fiber.MethodPost, "/api/v1/transfers", token, transfer, "Idempotency-Key", "t-1")
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.EqualValues(t, 1_490_000, body["balance"])

	// Replayed request must not move money again.
	status, _ = s.do(t, fiber.MethodPost, "/api/v1/transfers", token, transfer, "Idempotency-Key", "t-1")
	require.Equal(t, fiber.StatusCreated, status)

	status, body = s.do(t, fiber.MethodGet, "/api/v1/me", token, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1_490_000, body["balance"])

	status, body = s.do(t, fiber.MethodGet, "/api/v1/me/receipts", token, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["receipts"], 1)

	status, body = s.do(t, fiber.MethodPost, "/api/v1/transfers", token, `{"recipient":"admin@abank.ru","amount":"60000","method":"email"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "limit_exceeded", errorKind(body))

	status, body = s.do(t, fiber.MethodPost, "/api/v1/transfers", token, `{"recipient":"nobody@x.com","amount":"1","method":"email"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "recipient_not_found", errorKind(body))
}

func TestCardsEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, account.DemoUserEmail, account.DemoUserPassword)

	status, body := s.do(t, fiber.MethodPost, "/api/v1/cards", token, `{"passportNumber":"4500987654","cardType":"Мир"}`)
	assert.Equal(t, fiber.StatusConflict, status, body)
	assert.Equal(t, "conflict", errorKind(body))

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/cards/card_001/block", token, "")
	require.Equal(t, fiber.StatusOK, status)

	status, body = s.do(t, fiber.MethodPost, "/api/v1/cards", token, `{"passportNumber":"4500987654","cardType":"Мир"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	number, _ := body["number"].(string)
	assert.True(t, strings.HasPrefix(number, "220220"))

	status, body = s.do(t, fiber.MethodGet, "/api/v1/cards", token, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["cards"], 2)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.login(t, account.DemoUserEmail, account.DemoUserPassword)

	status, body := s.do(t, fiber.MethodGet, "/api/v1/admin/users", userToken, "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", errorKind(body))

	adminToken := s.login(t, account.DemoAdminEmail, account.DemoAdminPassword)
	status, body = s.do(t, fiber.MethodGet, "/api/v1/admin/users", adminToken, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["users"], 2)

	status, body = s.do(t, fiber.MethodPost, "/api/v1/admin/users/user_001/credit", adminToken, `{"amount":"250"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.EqualValues(t, 1_525_000, body["balance"])

	status, body = s.do(t, fiber.MethodPost, "/api/v1/admin/passports", adminToken, `{"number":"1111222233","verified":true}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	status, _ = s.do(t, fiber.MethodDelete, "/api/v1/admin/passports/1111222233", adminToken, "")
	require.Equal(t, fiber.StatusNoContent, status)

	status, body = s.do(t, fiber.MethodGet, "/api/v1/admin/stats", adminToken, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["usersCount"])

	status, body = s.do(t, fiber.MethodPut, "/api/v1/admin/settings", adminToken,
		`{"transferLimit":100000,"welcomeBonus":0,"currency":"rub","cardIssueFee":0,"maintenance":true}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "RUB", body["currency"])

	// The admin session replaced the user's session: one slot only.
	status, _ = s.do(t, fiber.MethodGet, "/api/v1/me", userToken, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = s.do(t, fiber.MethodPost, "/api/v1/transfers", adminToken, `{"recipient":"ivan@example.com","amount":"1","method":"email"}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", errorKind(body))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodGet, "/healthz", "", "")
	require.Equal(t, fiber.StatusOK, status)
	health := body["status"].(map[string]any)
	assert.Equal(t, "ok", health["redis"])
	assert.Equal(t, "disabled", health["postgres"])

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "abank_http_requests_total")
}
