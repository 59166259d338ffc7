package handlers

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/suwandre/pairdepth/config"
	"github.com/suwandre/pairdepth/internal/hub"
	"github.com/suwandre/pairdepth/internal/models"
	"github.com/suwandre/pairdepth/internal/sampler"
	"github.com/suwandre/pairdepth/internal/slippage"
)

const (
	ModeApprox = "approx"
	ModeFresh  = "fresh"

	// maxCustomSizes bounds ?sizes= so one request cannot fan out unbounded walks.
	maxCustomSizes = 10
)

type SlippageHandler struct {
	hub       *hub.Hub
	simulator *slippage.Simulator
	bands     []models.BandSpec
	sizes     []float64
	samples   int
}

func NewSlippageHandler(h *hub.Hub, sim *slippage.Simulator, bands []models.BandSpec, sizes []float64, samples int) *SlippageHandler {
	return &SlippageHandler{
		hub:       h,
		simulator: sim,
		bands:     bands,
		sizes:     sizes,
		samples:   samples,
	}
}

// Handles GET /slippage. Every published market is approximated from its
// band totals; nothing is fetched.
func (h *SlippageHandler) GetAll(c fiber.Ctx) error {
	sizes, err := h.requestSizes(c.Query("sizes"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	state := h.hub.Snapshot()
	markets := make([]models.MarketSlippage, 0, len(state.Entries))
	for _, e := range state.Entries {
		markets = append(markets, h.approximate(e, sizes))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"run_id":     state.RunID,
		"running":    state.Running,
		"progress":   state.Progress,
		"updated_at": state.UpdatedAt,
		"sizes":      sizes,
		"markets":    markets,
	})
}

// Handles GET /slippage/:pair?mode=approx|fresh.
func (h *SlippageHandler) GetPair(c fiber.Ctx) error {
	pair := c.Params("pair")
	if pair == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "pair parameter is required",
		})
	}

	sizes, err := h.requestSizes(c.Query("sizes"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	entry, known := h.hub.Snapshot().Entry(pair)

	switch mode := c.Query("mode", ModeApprox); mode {
	case ModeApprox:
		if !known {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "pair not available, try mode=fresh",
			})
		}
		return c.Status(fiber.StatusOK).JSON(h.approximate(entry, sizes))

	case ModeFresh:
		log.Info().Str("pair", pair).Int("sizes", len(sizes)).Msg("simulating fresh slippage")

		results, err := h.simulator.Simulate(c.Context(), pair, sizes, h.samples)
		if err != nil {
			log.Warn().Err(err).Str("pair", pair).Msg("fresh slippage failed")
			status := fiber.StatusBadGateway
			if !errors.Is(err, sampler.ErrNoSnapshots) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": fmt.Sprintf("could not sample %s", pair),
			})
		}

		out := models.MarketSlippage{
			Pair:  pair,
			Mode:  ModeFresh,
			Sizes: results,
		}
		if known {
			out.Volume24H = entry.Volume24H
			out.OpenInterestUSD = entry.OpenInterestUSD
			out.Group = entry.Group
		}
		return c.Status(fiber.StatusOK).JSON(out)

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "mode must be approx or fresh",
		})
	}
}

func (h *SlippageHandler) approximate(e models.MarketEntry, sizes []float64) models.MarketSlippage {
	out := models.MarketSlippage{
		Pair:            e.Pair,
		Volume24H:       e.Volume24H,
		OpenInterestUSD: e.OpenInterestUSD,
		Group:           e.Group,
		Mode:            ModeApprox,
	}
	// Error rows still get one row per size, all undefined, so every
	// market has the same shape.
	out.Error = e.Error
	out.Sizes = slippage.FromBands(float64(e.Mid), e.BandTotals, h.bands, sizes)
	return out
}

// requestSizes merges custom ?sizes= values into the defaults, ascending
// and without duplicates.
func (h *SlippageHandler) requestSizes(raw string) ([]float64, error) {
	sizes := slices.Clone(h.sizes)
	if raw != "" {
		custom, err := config.ParseSizes(raw)
		if err != nil {
			return nil, fmt.Errorf("sizes: %w", err)
		}
		if len(custom) > maxCustomSizes {
			return nil, fmt.Errorf("sizes: at most %d custom sizes", maxCustomSizes)
		}
		sizes = append(sizes, custom...)
	}

	slices.Sort(sizes)
	return slices.Compact(sizes), nil
}
