package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/suwandre/pairdepth/api/handlers"
	"github.com/suwandre/pairdepth/internal/hub"
	"github.com/suwandre/pairdepth/internal/models"
	"github.com/suwandre/pairdepth/internal/slippage"
)

// Deps is everything the routes read from.
type Deps struct {
	Hub       *hub.Hub
	Refresher handlers.Refresher
	Simulator *slippage.Simulator
	Bands     []models.BandSpec
	Sizes     []float64
	Samples   int
}

func SetupRoutes(app *fiber.App, d Deps) {
	depthHandler := handlers.NewDepthHandler(d.Hub)
	slippageHandler := handlers.NewSlippageHandler(d.Hub, d.Simulator, d.Bands, d.Sizes, d.Samples)
	refreshHandler := handlers.NewRefreshHandler(d.Refresher)

	v1 := app.Group("/v1")

	v1.Get("/health", handlers.Health)
	v1.Get("/depth", depthHandler.GetDepth)
	v1.Get("/depth/:pair", depthHandler.GetPair)
	v1.Get("/slippage", slippageHandler.GetAll)
	v1.Get("/slippage/:pair", slippageHandler.GetPair)
	v1.Post("/refresh", refreshHandler.Refresh)
}
