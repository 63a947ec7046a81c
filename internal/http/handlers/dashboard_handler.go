package handlers

import (
	"github.com/gofiber/fiber/v2"

	"mermanager/internal/services"
)

type DashboardHandler struct {
	Model *services.ReadModel
}

// Home renders the dashboard: aggregate stats, the status chart buckets
// and the recent-sales list, all derived from the current snapshot.
func (h *DashboardHandler) Home(c *fiber.Ctx) error {
	items := h.Model.Current()
	return render(c, "dashboard", fiber.Map{
		"Stats":   services.DeriveStats(items),
		"Buckets": services.StatusBuckets(items),
		"Recent":  services.RecentSales(items),
		"Count":   len(items),
	})
}
