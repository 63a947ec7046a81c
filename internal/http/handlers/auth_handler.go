package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mermanager/internal/log"
	"mermanager/internal/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false,
		})
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

// Login runs the external sign-in flow. Cancellation or provider errors
// surface inline on the login page; there is no automatic retry.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	u, err := h.Auth.SignIn(c.Context(), sid)
	if err != nil {
		log.Security(c, "auth.signin.fail", map[string]any{"sid": sid})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
			"Err":       "ログインに失敗しました。もう一度お試しください。",
			"CSRFToken": c.Cookies("csrf_"),
		})
	}
	log.Audit(c, "auth.signin.success", map[string]any{"uid": u.ID})
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if err := h.Auth.SignOut(c.Context(), sid); err != nil {
		log.Error(c, "auth.signout.fail", err, nil)
	}
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.signout", map[string]any{"sid": sid})
	return c.Redirect("/login")
}
