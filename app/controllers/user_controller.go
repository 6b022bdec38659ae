package controllers

import (
	"errors"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/repository"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/entitlements"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// UserController serves the signed-in user's own data.
type UserController struct {
	repos *repository.Repositories
	now   func() time.Time
}

func NewUserController(repos *repository.Repositories) *UserController {
	return &UserController{repos: repos, now: time.Now}
}

// HandleEntitlement returns the paid-access state derived from paid_until.
func (uc *UserController) HandleEntitlement(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	ctx, cancel := requestContext()
	defer cancel()

	profile, err := uc.repos.Profile.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "profile_not_found", "Profile not found")
		}
		log.Errorw("entitlement: profile lookup failed", "user_id", userID, "error", err.Error())
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Profile lookup failed")
	}

	return c.JSON(entitlements.Evaluate(profile, uc.now()))
}
