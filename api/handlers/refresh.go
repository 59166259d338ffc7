package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// Refresher starts a pass on demand.
type Refresher interface {
	Trigger() bool
}

type RefreshHandler struct {
	refresher Refresher
}

func NewRefreshHandler(r Refresher) *RefreshHandler {
	return &RefreshHandler{r}
}

// Handles POST /refresh.
func (h *RefreshHandler) Refresh(c fiber.Ctx) error {
	if !h.refresher.Trigger() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "a depth pass is already running",
		})
	}

	log.Info().Msg("manual refresh requested")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "refresh started",
	})
}

// Handles GET /health.
func Health(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}
