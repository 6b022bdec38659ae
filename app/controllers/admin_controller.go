package controllers

import (
	"errors"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"github.com/fastlog-app/fastlog-backend/app/repository"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/entitlements"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const recentFastsLimit = 10

// AdminController handles admin-related HTTP requests using repository pattern
type AdminController struct {
	repos *repository.Repositories
	stats *statistics.Service
	now   func() time.Time
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories, stats *statistics.Service) *AdminController {
	return &AdminController{
		repos: repos,
		stats: stats,
		now:   time.Now,
	}
}

// HandleStats returns the aggregate dashboard numbers.
func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	stats, err := ac.stats.AdminStats(ctx)
	if err != nil {
		return ac.handleError(c, "Failed to load statistics", err)
	}
	return c.JSON(stats)
}

// HandleUsers lists profiles, optionally filtered by ?q= on email or name.
func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	page := queryInt(c, "page", 1, 1, 100000)
	perPage := queryInt(c, "per_page", 20, 1, 100)
	offset := (page - 1) * perPage
	query := c.Query("q")

	ctx, cancel := requestContext()
	defer cancel()

	var (
		profiles []models.Profile
		total    int64
		err      error
	)
	if query != "" {
		profiles, err = ac.repos.Profile.Search(ctx, query, offset, perPage)
		if err == nil {
			total, err = ac.repos.Profile.CountSearch(ctx, query)
		}
	} else {
		profiles, err = ac.repos.Profile.List(ctx, offset, perPage)
		if err == nil {
			total, err = ac.repos.Profile.Count(ctx)
		}
	}
	if err != nil {
		return ac.handleError(c, "Failed to list users", err)
	}

	now := ac.now()
	users := make([]fiber.Map, 0, len(profiles))
	for i := range profiles {
		users = append(users, profileView(&profiles[i], now))
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return c.JSON(fiber.Map{
		"users":       users,
		"page":        page,
		"per_page":    perPage,
		"total":       total,
		"total_pages": totalPages,
	})
}

// HandleUserDetail returns one profile with its entitlement and fasting summary.
func (ac *AdminController) HandleUserDetail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "User id must be a UUID")
	}
	userID := id.String()

	ctx, cancel := requestContext()
	defer cancel()

	profile, err := ac.repos.Profile.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return ac.handleError(c, "Failed to load user", err)
	}

	fastCount, err := ac.repos.Fast.CountByUser(ctx, userID)
	if err != nil {
		return ac.handleError(c, "Failed to count fasts", err)
	}
	recent, err := ac.repos.Fast.ListRecentByUser(ctx, userID, recentFastsLimit)
	if err != nil {
		return ac.handleError(c, "Failed to load fasts", err)
	}

	now := ac.now()
	fasts := make([]fiber.Map, 0, len(recent))
	for i := range recent {
		fasts = append(fasts, fastView(&recent[i], now))
	}

	return c.JSON(fiber.Map{
		"profile":      profileView(profile, now),
		"entitlement":  entitlements.Evaluate(profile, now),
		"fast_count":   fastCount,
		"recent_fasts": fasts,
	})
}

func profileView(p *models.Profile, now time.Time) fiber.Map {
	return fiber.Map{
		"id":                  p.ID,
		"email":               p.Email,
		"display_name":        p.DisplayName,
		"paid_until":          formatTimePtr(p.PaidUntil),
		"subscription_status": p.Status(),
		"has_customer":        p.CustomerID() != "",
		"entitled":            entitlements.IsActive(p.PaidUntil, now),
		"created_at":          p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func fastView(f *models.Fast, now time.Time) fiber.Map {
	return fiber.Map{
		"id":             f.ID,
		"started_at":     f.StartedAt.UTC().Format(time.RFC3339),
		"ended_at":       formatTimePtr(f.EndedAt),
		"target_hours":   f.TargetHours,
		"duration_hours": f.Duration(now).Hours(),
		"completed":      f.IsCompleted(),
		"reached_target": f.ReachedTarget(),
	}
}

// handleError logs the cause and answers a generic 500.
func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Errorw("admin: "+message, "path", c.Path(), "error", err.Error())
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", message)
}
