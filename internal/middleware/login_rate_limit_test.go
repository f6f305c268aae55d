package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/veriauth/veriauth/internal/middleware"
)

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func setupRateLimitedApp(t *testing.T, cache *redis.Client, maxPerMin int) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Post("/auth/login", middleware.LoginRateLimit(cache, maxPerMin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func attemptLogin(t *testing.T, app *fiber.App, email string) int {
	t.Helper()
	req := newJSONRequest(fiber.MethodPost, "/auth/login", `{"email":"`+email+`","password":"whatever"}`)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimitThrottlesPerEmail(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := setupRateLimitedApp(t, cache, 3)

	for i := 0; i < 3; i++ {
		if status := attemptLogin(t, app, "brute@example.com"); status != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, status)
		}
	}
	if status := attemptLogin(t, app, "brute@example.com"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit, got %d", status)
	}

	// other subjects are unaffected
	if status := attemptLogin(t, app, "calm@example.com"); status != fiber.StatusOK {
		t.Fatalf("expected 200 for other email, got %d", status)
	}
}

func TestLoginRateLimitResetsAfterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := setupRateLimitedApp(t, cache, 2)

	attemptLogin(t, app, "brute@example.com")
	attemptLogin(t, app, "brute@example.com")
	if status := attemptLogin(t, app, "brute@example.com"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}

	mr.FastForward(61 * time.Second)
	if status := attemptLogin(t, app, "brute@example.com"); status != fiber.StatusOK {
		t.Fatalf("expected 200 after window reset, got %d", status)
	}
}

func TestLoginRateLimitNoopWithoutRedis(t *testing.T) {
	app := setupRateLimitedApp(t, nil, 1)

	for i := 0; i < 5; i++ {
		if status := attemptLogin(t, app, "brute@example.com"); status != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 without cache, got %d", i+1, status)
		}
	}
}

func TestLoginRateLimitFallsBackToIP(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := setupRateLimitedApp(t, cache, 2)

	// empty body: keyed by client IP instead of email
	attemptLogin(t, app, "")
	attemptLogin(t, app, "")
	if status := attemptLogin(t, app, ""); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 keyed by IP, got %d", status)
	}

	if !strings.HasPrefix(mr.Keys()[0], "rl:login:") {
		t.Fatalf("unexpected key %q", mr.Keys()[0])
	}
}
