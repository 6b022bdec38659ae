package router

import (
	"context"
	"time"

	"github.com/fastlog-app/fastlog-backend/internal/pkg/cache"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/constants"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/database"
	"github.com/gofiber/fiber/v2"
)

// HttpRouter serves the non-API endpoints.
type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, handleHealth)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// handleHealth reports database and cache reachability. The database is
// required; a cache outage only degrades the admin statistics.
func handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if db := database.GetDB(); db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unavailable"
	}

	cacheStatus := "ok"
	if err := cache.GetClient().Ping(ctx).Err(); err != nil {
		cacheStatus = "degraded"
	}

	status := fiber.StatusOK
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
