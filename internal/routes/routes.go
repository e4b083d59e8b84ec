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

	"github.com/sokoni-app/sokoni_wallet/internal/auth"
	"github.com/sokoni-app/sokoni_wallet/internal/catalog"
	"github.com/sokoni-app/sokoni_wallet/internal/config"
	"github.com/sokoni-app/sokoni_wallet/internal/identity"
	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
	"github.com/sokoni-app/sokoni_wallet/internal/middleware"
	"github.com/sokoni-app/sokoni_wallet/internal/notification"
	"github.com/sokoni-app/sokoni_wallet/internal/orders"
	"github.com/sokoni-app/sokoni_wallet/internal/settlement"
	"github.com/sokoni-app/sokoni_wallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Background is a worker the entrypoint runs alongside the HTTP server. It
// stops when its context is cancelled.
type Background interface {
	Run(ctx context.Context)
}

// Setup configures middlewares and all application routes. It returns the
// settlement poller when the durable scheduler is in play, nil otherwise.
func Setup(app *fiber.App, d Deps) (Background, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Backends
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	var products catalog.Catalog
	if d.DB != nil {
		products = catalog.NewPostgresCatalog(d.DB)
	} else {
		mem := catalog.NewMemoryCatalog()
		seedDevCatalog(mem, d.Logger)
		products = mem
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	delays := settlement.Delays{
		Deposit:    d.Cfg.DepositSettleDelay,
		Withdrawal: d.Cfg.WithdrawalSettleDelay,
	}
	var (
		scheduler settlement.Scheduler
		poller    Background
	)
	if d.Cache != nil {
		rs := settlement.NewRedisScheduler(d.Cache, store, delays, d.Cfg.SettlementPollInterval, d.Logger)
		scheduler = rs
		poller = rs
	} else {
		scheduler = settlement.NewTimerScheduler(store, delays, d.Logger)
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	walletSvc := wallet.NewService(store, scheduler, notifier)
	orderSvc := orders.NewService(store, products, notifier)
	identitySvc := identity.NewService(identityRepo, store)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	orderHandler := orders.NewHandler(orderSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	RegisterCatalogRoutes(api, products)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"phone":      user.Phone,
			"role":       user.Role,
			"device_id":  user.DeviceID,
			"created_at": user.CreatedAt,
			"last_login": user.LastLogin,
		})
	})
	RegisterWalletRoutes(protected, walletHandler)
	RegisterOrderRoutes(protected, orderHandler)

	return poller, nil
}

// seedDevCatalog fills the in-memory catalog with sample listings so purchases
// can be exercised without a database.
func seedDevCatalog(mem *catalog.MemoryCatalog, log *slog.Logger) {
	sellerID := "00000000-0000-0000-0000-000000000001"
	for _, p := range []struct {
		name  string
		price int64
	}{
		{"charcoal stove", 1_500},
		{"solar lamp", 900},
		{"bicycle", 25_000},
	} {
		listing := mem.Add(sellerID, p.name, p.price)
		log.Info("seeded dev product", "product_id", listing.ID, "name", listing.Name, "price", listing.Price)
	}
}
