package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"draftsync/models"
	"draftsync/utils"
)

func newTestApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := utils.AsAppError(err); ok {
				return c.Status(appErr.Code).SendString(appErr.Kind.String())
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	handlers = append(handlers, func(c *fiber.Ctx) error {
		if user := CurrentUser(c); user != nil {
			return c.SendString(user.Email)
		}
		return c.SendString("ok")
	})
	app.Get("/", handlers...)
	return app
}

func status(t *testing.T, app *fiber.App, header, value string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app := newTestApp(RateLimiter(ctx, 2, time.Hour, ByIP))

	assert.Equal(t, 200, status(t, app, "", ""))
	assert.Equal(t, 200, status(t, app, "", ""))
	assert.Equal(t, 429, status(t, app, "", ""))
}

func TestRateLimiter_Disabled(t *testing.T) {
	app := newTestApp(RateLimiter(context.Background(), 0, time.Minute, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, status(t, app, "", ""))
	}
}

func TestRateLimiter_CleanupStopsWithContext(t *testing.T) {
	table := &clientTable{clients: make(map[string]*client)}
	table.get("idle", func() *rate.Limiter { return rate.NewLimiter(1, 1) })
	table.clients["idle"].lastSeen = time.Now().Add(-time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		table.cleanupLoop(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		table.mu.Lock()
		defer table.mu.Unlock()
		return len(table.clients) == 0
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop kept running after cancel")
	}
}

func TestAuth(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return now }

	users := map[int64]*models.User{
		1: {ID: 1, RealmID: 1, Email: "active@example.com", IsActive: true},
		2: {ID: 2, RealmID: 1, Email: "gone@example.com", IsActive: false},
	}
	load := func(id int64) (*models.User, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		return nil, errors.New("no such user")
	}
	app := newTestApp(Auth(issuer, load))

	active, _, err := issuer.Issue(users[1])
	require.NoError(t, err)
	gone, _, err := issuer.Issue(users[2])
	require.NoError(t, err)
	missing, _, err := issuer.Issue(&models.User{ID: 99})
	require.NoError(t, err)

	assert.Equal(t, 200, status(t, app, "Authorization", "Bearer "+active))
	assert.Equal(t, 401, status(t, app, "", ""))
	assert.Equal(t, 401, status(t, app, "Authorization", active))
	assert.Equal(t, 401, status(t, app, "Authorization", "Bearer "+gone))
	assert.Equal(t, 401, status(t, app, "Authorization", "Bearer "+missing))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 401, status(t, app, "Authorization", "Bearer "+active))
}

func TestRequestID(t *testing.T) {
	app := newTestApp(RequestID())

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))
}
