package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/suwandre/pairdepth/internal/hub"
	"github.com/suwandre/pairdepth/internal/models"
)

// groupSummary heads each group of rows in /depth.
type groupSummary struct {
	Group    models.Group `json:"group"`
	Subtitle string       `json:"subtitle"`
	Markets  int          `json:"markets"`
}

type depthResponse struct {
	hub.State
	Groups []groupSummary `json:"groups"`
}

// summarizeGroups counts rows per group, in group order. Empty groups are left out.
func summarizeGroups(entries []models.MarketEntry) []groupSummary {
	out := make([]groupSummary, 0, int(models.GroupTail))
	for g := models.GroupMajors; g <= models.GroupTail; g++ {
		n := 0
		for _, e := range entries {
			if e.Group == g {
				n++
			}
		}
		if n > 0 {
			out = append(out, groupSummary{Group: g, Subtitle: g.Subtitle(), Markets: n})
		}
	}
	return out
}

type DepthHandler struct {
	hub *hub.Hub
}

func NewDepthHandler(h *hub.Hub) *DepthHandler {
	return &DepthHandler{h}
}

// Handles GET /depth. Optional ?group=1..4 narrows the rows.
func (h *DepthHandler) GetDepth(c fiber.Ctx) error {
	state := h.hub.Snapshot()

	if raw := c.Query("group"); raw != "" {
		g, err := strconv.Atoi(raw)
		if err != nil || g < int(models.GroupMajors) || g > int(models.GroupTail) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "group must be between 1 and 4",
			})
		}

		filtered := make([]models.MarketEntry, 0, len(state.Entries))
		for _, e := range state.Entries {
			if e.Group == models.Group(g) {
				filtered = append(filtered, e)
			}
		}
		state.Entries = filtered
	}

	return c.Status(fiber.StatusOK).JSON(depthResponse{
		State:  state,
		Groups: summarizeGroups(state.Entries),
	})
}

// Handles GET /depth/:pair.
func (h *DepthHandler) GetPair(c fiber.Ctx) error {
	pair := c.Params("pair")

	if pair == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "pair parameter is required",
		})
	}

	entry, ok := h.hub.Snapshot().Entry(pair)
	if !ok {
		log.Debug().Str("pair", pair).Msg("pair not found in depth cache")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "pair not available, wait for the current pass or check the market id",
		})
	}

	return c.Status(fiber.StatusOK).JSON(entry)
}
