package api

import (
	"context"
	"fmt"
	"time"

	"draftsync/drafts"
	"draftsync/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Options wires the API to its collaborators
type Options struct {
	Context    context.Context // Ends background work such as rate limiter cleanup
	Service    *drafts.Service
	Users      Authenticator
	LoadUser   middleware.UserLoader
	Issuer     *middleware.TokenIssuer
	RealmID    int64
	BodyLimit  int
	RateLimit  int
	RateWindow time.Duration
	HSTSMaxAge int
	AccessLog  bool
}

// NewApp builds the Fiber application serving the draft API
func NewApp(opts Options) *fiber.App {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	app := fiber.New(fiber.Config{
		AppName:               "draftsync",
		ErrorHandler:          ErrorHandler,
		BodyLimit:             opts.BodyLimit,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           30 * time.Second,
		DisableStartupMessage: true,
	})

	// Add global middleware
	app.Use(recover.New()) // Recover from panics
	app.Use(middleware.RequestID())
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} | ${status} | ${latency} | ${method} ${path} | ${locals:request_id}\n",
		}))
	}
	app.Use(compress.New()) // Response compression
	app.Use(helmet.New(helmet.Config{ // Security headers
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "no-referrer",
		HSTSMaxAge:         opts.HSTSMaxAge,
	}))
	app.Use(middleware.LocaleMiddleware())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := app.Group("/api/v1")

	authHandler := NewAuthHandler(opts.Users, opts.Issuer, opts.RealmID)
	v1.Post("/login", middleware.RateLimiter(ctx, opts.RateLimit, opts.RateWindow, middleware.ByIP), authHandler.Login)

	i18nHandler := &I18nHandler{}
	v1.Get("/i18n/:lang", i18nHandler.GetTranslations)

	// Protected routes group
	protected := v1.Group("",
		middleware.Auth(opts.Issuer, opts.LoadUser),
		middleware.RateLimiter(ctx, opts.RateLimit, opts.RateWindow, middleware.ByUserOrIP),
	)

	draftHandler := NewDraftHandler(opts.Service)
	protected.Get("/drafts", draftHandler.FetchDrafts)
	protected.Post("/drafts", draftHandler.CreateDrafts)
	protected.Patch("/drafts/:id", draftHandler.EditDraft)
	protected.Delete("/drafts/:id", draftHandler.DeleteDraft)

	settingsHandler := NewSettingsHandler(opts.Service)
	protected.Patch("/settings", settingsHandler.UpdateSettings)

	// 404 Handler for undefined routes
	app.Use(NotFound)

	return app
}

// Addr formats the listen address
func Addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
