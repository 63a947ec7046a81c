package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"mermanager/internal/services"
)

type StreamHandler struct {
	Model *services.ReadModel
}

// Stream pushes full listing snapshots over server-sent events. Each
// event is a whole replacement, never a diff.
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	initial := h.Model.Current()
	ch, cancel := h.Model.Watch()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		send := func(items any) bool {
			b, err := json.Marshal(items)
			if err != nil {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			return w.Flush() == nil
		}

		if !send(initial) {
			return
		}
		for items := range ch {
			if !send(items) {
				return
			}
		}
	})
	return nil
}
