package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/abank/internal/account"
	"github.com/congo-pay/abank/internal/cards"
	"github.com/congo-pay/abank/internal/clock"
	"github.com/congo-pay/abank/internal/config"
	"github.com/congo-pay/abank/internal/idgen"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/middleware"
	"github.com/congo-pay/abank/internal/notification"
	"github.com/congo-pay/abank/internal/payments"
	"github.com/congo-pay/abank/internal/session"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// are optional and only used for health checks, idempotency and rate limits.
type Deps struct {
	Cfg      config.Config
	Repo     *ledger.Repository
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Notifier notification.Notifier
	Clock    clock.Clock
	IDs      idgen.Generator
	Digits   cards.DigitSource
}

// Setup configures middlewares, builds the services and wires all routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Repo == nil {
		return fmt.Errorf("repository is required")
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.IDs == nil {
		d.IDs = idgen.UUID{}
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerNotifier(d.Logger)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app)

	// Services and handlers
	sessions := session.NewManager(d.Repo, []byte(d.Cfg.SessionSecret), d.Clock, d.IDs)
	accountSvc := account.NewService(d.Repo, sessions, d.Clock, d.IDs, d.Logger, account.Config{BcryptCost: d.Cfg.BcryptCost})
	cardSvc := cards.NewService(d.Repo, d.Clock, d.IDs, d.Digits, cards.Policy{SingleActiveCard: d.Cfg.SingleActiveCard}, d.Logger)
	paymentSvc := payments.NewService(d.Repo, d.Clock, d.IDs, d.Notifier, d.Logger)

	if d.Cfg.SeedDemo {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := accountSvc.SeedDemo(ctx); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	accountHandler := account.NewHandler(accountSvc)
	cardHandler := cards.NewHandler(cardSvc)
	paymentHandler := payments.NewHandler(paymentSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttemptsPerMinute)
	RegisterAuthRoutes(api, accountHandler, rateLimiter)
	api.Get("/cards/products", cardHandler.Products)

	// Protected routes
	protected := api.Group("", middleware.SessionAuth(accountSvc))
	idempotent := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	protected.Post("/auth/logout", accountHandler.Logout)
	RegisterMeRoutes(protected, accountHandler, paymentHandler)
	RegisterCardRoutes(protected, cardHandler, idempotent)
	RegisterPaymentRoutes(protected, paymentHandler, idempotent)

	admin := protected.Group("/admin", middleware.RequireAdmin())
	RegisterAdminRoutes(admin, accountHandler, cardHandler, paymentHandler, idempotent)

	return nil
}
