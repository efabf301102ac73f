package handlers

import "github.com/gofiber/fiber/v2"

// HomeHandler serves the landing pages the login flow redirects to.
type HomeHandler struct {
	Routes Routes
}

// GET / (behind RequireUser)
func (h *HomeHandler) Home(c *fiber.Ctx) error {
	return render(c, "home", fiber.Map{"Title": "Home", "AdminPath": h.Routes.Admin})
}

// GET /admin (behind RequireAdmin)
func (h *HomeHandler) Admin(c *fiber.Ctx) error {
	return render(c, "admin", fiber.Map{"Title": "Admin dashboard"})
}
