package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/logging"
)

type idempotencyApp struct {
	app   *fiber.App
	calls int
}

// setupTestApp mounts the middleware behind a fake session that takes the
// user id from the X-User header.
func setupTestApp(t *testing.T) (*idempotencyApp, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ta := &idempotencyApp{app: fiber.New()}
	ta.app.Use(func(c *fiber.Ctx) error {
		c.Locals(userIDLocal, c.Get("X-User"))
		return c.Next()
	})
	ta.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	ta.app.Post("/resource", func(c *fiber.Ctx) error {
		ta.calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": ta.calls})
	})
	ta.app.Post("/failing", func(c *fiber.Ctx) error {
		ta.calls++
		return apperror.New(apperror.KindInsufficientFunds, "no money")
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return ta, cleanup
}

func post(t *testing.T, app *fiber.App, path, user, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-User", user)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	ta, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, ta.app, "/resource", "u1", "")
	post(t, ta.app, "/resource", "u1", "")
	if ta.calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", ta.calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	ta, cleanup := setupTestApp(t)
	defer cleanup()

	status, payload := post(t, ta.app, "/resource", "u1", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	// Second request should return the cached response without invoking handler again.
	status2, cachedPayload := post(t, ta.app, "/resource", "u1", "abc123")
	if status2 != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status2)
	}
	if cachedPayload != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cachedPayload)
	}
	if ta.calls != 1 {
		t.Fatalf("handler ran %d times", ta.calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cachedPayload), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	ta, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, ta.app, "/resource", "u1", "same")
	post(t, ta.app, "/resource", "u2", "same")
	if ta.calls != 2 {
		t.Fatalf("keys of different users must not collide, handler ran %d times", ta.calls)
	}
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	ta, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, ta.app, "/failing", "u1", "retry-me")
	post(t, ta.app, "/failing", "u1", "retry-me")
	if ta.calls != 2 {
		t.Fatalf("failed request must be retryable, handler ran %d times", ta.calls)
	}
}
