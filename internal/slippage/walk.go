package slippage

import (
	"math"
	"slices"

	"github.com/suwandre/pairdepth/internal/models"
)

// Fill is the outcome of walking one side of one book for a USD target.
type Fill struct {
	VWAP          float64 // NaN when nothing filled
	WorstPrice    float64
	LevelsCrossed int
	FilledUSD     float64
}

// Walk consumes levels in the given order until targetUSD of notional is
// filled or the levels run out. Levels with non-positive size are skipped.
// A partial fill is a valid result, not an error.
func Walk(levels []models.PriceLevel, targetUSD float64) Fill {
	remaining := targetUSD
	var notional, qty float64
	fill := Fill{}

	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		if !lvl.Valid() || lvl.Size <= 0 || lvl.Price <= 0 {
			continue
		}

		take := math.Min(remaining, lvl.Notional())
		notional += take
		qty += take / lvl.Price
		remaining -= take

		fill.LevelsCrossed++
		fill.WorstPrice = lvl.Price
	}

	fill.FilledUSD = notional
	fill.VWAP = math.NaN()
	if qty > 0 {
		fill.VWAP = notional / qty
	}
	return fill
}

// SortedSides returns copies of the book's bids sorted by price descending
// and asks ascending, the order a market sell and buy would consume them.
func SortedSides(book *models.OrderBook) (bids, asks []models.PriceLevel) {
	bids = slices.Clone(book.Bids)
	asks = slices.Clone(book.Asks)

	slices.SortFunc(bids, func(a, b models.PriceLevel) int {
		switch {
		case a.Price > b.Price:
			return -1
		case a.Price < b.Price:
			return 1
		}
		return 0
	})
	slices.SortFunc(asks, func(a, b models.PriceLevel) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	})
	return bids, asks
}
