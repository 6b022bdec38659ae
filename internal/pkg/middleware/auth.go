package middleware

import (
	"strings"

	"github.com/fastlog-app/fastlog-backend/internal/pkg/security"
	icuser "github.com/fastlog-app/fastlog-backend/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// RequireBearerAuth authenticates API requests carrying an access token and
// returns JSON 401 when it is missing or invalid.
func RequireBearerAuth(secret string, admins *security.AdminAllowlist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Missing bearer token",
			})
		}

		claims, err := security.ParseAccessToken(token, secret)
		if err != nil {
			log.Debugw("auth: rejected access token", "path", c.Path(), "error", err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Invalid bearer token",
			})
		}

		// profile ids are uuids; any other subject cannot own a profile
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			log.Debugw("auth: rejected non-uuid subject", "path", c.Path(), "subject", claims.Subject)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Invalid bearer token",
			})
		}

		icuser.SetUserContext(c, icuser.UserContext{
			UserID:     userID.String(),
			Email:      claims.Email,
			IsLoggedIn: true,
			IsAdmin:    admins.Allows(userID.String(), claims.Email),
		})
		return c.Next()
	}
}

// RequireAdmin ensures an authenticated admin; answers JSON 401/403 otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	uc := icuser.GetUserContext(c)
	if !uc.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if !uc.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}

func extractBearerToken(c *fiber.Ctx) string {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
