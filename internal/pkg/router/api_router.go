package router

import (
	"strings"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/controllers"
	"github.com/fastlog-app/fastlog-backend/app/repository"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/billing"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/cache"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/constants"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/database"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/env"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/metrics/counter"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/middleware"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/security"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/statistics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// limiterStorageDB is the Redis database holding rate-limit counters
// (the cache uses DB 0).
const limiterStorageDB = 1

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	repository.InitializeRepositories(database.GetDB())
	repos := repository.GetGlobalRepositories()

	admins := security.AdminAllowlistFromEnv()
	if admins.Len() == 0 {
		log.Warn("router: no admin principals configured, admin routes will answer 403")
	}
	jwtSecret := env.GetEnv("AUTH_JWT_SECRET", "")
	if jwtSecret == "" {
		log.Warn("router: AUTH_JWT_SECRET is not set, authenticated routes will answer 401")
	}
	webhookSecret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if webhookSecret == "" {
		log.Warn("router: STRIPE_WEBHOOK_SECRET is not set, webhooks will be rejected")
	}

	outcomes := counter.NewRecorder()
	stats := statistics.NewService(repos, statistics.RedisCache()).WithOutcomeSource(outcomes)
	billingController := controllers.NewBillingController(
		billing.NewServiceFromDB(database.GetDB()),
		billing.NewStripeGateway(env.GetEnv("STRIPE_SECRET_KEY", "")),
		webhookSecret,
		env.GetEnv("STRIPE_PRICE_ID", ""),
	).WithStatsInvalidator(stats).WithOutcomeRecorder(outcomes)
	userController := controllers.NewUserController(repos)
	adminController := controllers.NewAdminController(repos, stats)

	api := app.Group(constants.APIPrefix, cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}), limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    cache.NewStorage(limiterStorageDB),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), constants.WebhookRoute)
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group(constants.APIV1Prefix)

	requireAuth := middleware.RequireBearerAuth(jwtSecret, admins)

	// Stripe authenticates with the signature header, not a bearer token.
	billingGroup := v1.Group("/billing")
	billingGroup.Post("/webhook", billingController.HandleStripeWebhook)
	billingGroup.Post("/checkout", requireAuth, billingController.HandleCreateCheckout)
	billingGroup.Post("/portal", requireAuth, billingController.HandleCreatePortal)

	v1.Get("/me/entitlement", requireAuth, userController.HandleEntitlement)

	admin := v1.Group("/admin", requireAuth, middleware.RequireAdmin)
	admin.Get("/stats", adminController.HandleStats)
	admin.Get("/users", adminController.HandleUsers)
	admin.Get("/users/:id", adminController.HandleUserDetail)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
