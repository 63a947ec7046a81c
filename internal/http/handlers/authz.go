package handlers

import (
	"github.com/gofiber/fiber/v2"

	"mermanager/internal/services"
)

// RequireUser gates the inventory views on auth state; signed-out
// sessions land on the login page.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(c.Context(), sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		c.Locals("user", u)
		c.Locals("uid", u.ID)
		return c.Next()
	}
}
