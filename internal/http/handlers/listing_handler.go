package handlers

import (
	"github.com/gofiber/fiber/v2"

	"mermanager/internal/services"
)

type ListingHandler struct {
	Model *services.ReadModel
}

// List renders every listing in the current snapshot as a card. The
// empty state offers a direct add-first-listing action.
func (h *ListingHandler) List(c *fiber.Ctx) error {
	items := h.Model.Current()
	return render(c, "listings", fiber.Map{
		"Items": items,
		"Count": len(items),
	})
}

// Snapshot serves the current snapshot as JSON for API consumers.
func (h *ListingHandler) Snapshot(c *fiber.Ctx) error {
	items := h.Model.Current()
	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}
