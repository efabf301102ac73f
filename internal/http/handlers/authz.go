package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"wayfarer/internal/domain"
	applog "wayfarer/internal/log"
)

// RequireUser enforces that a user is logged in; otherwise redirect to the auth page.
func RequireUser(store *session.Store, authPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		id, ok := identityFrom(sess)
		if !ok {
			return c.Redirect(authPath)
		}
		c.Locals("user", id)
		return c.Next()
	}
}

func RequireAdmin(store *session.Store, authPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		id, ok := identityFrom(sess)
		if !ok {
			return c.Redirect(authPath)
		}
		if id.Role != domain.RoleAdmin {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": id.UserID})
			return c.Status(fiber.StatusForbidden).Render("error", fiber.Map{"Title": "Access denied", "Message": "Access denied"})
		}
		c.Locals("user", id)
		return c.Next()
	}
}
