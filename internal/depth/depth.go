// Package depth computes mid price and cumulative notional within price
// bands for a single order-book snapshot. All functions are pure and never
// modify their inputs.
package depth

import (
	"math"

	"github.com/suwandre/pairdepth/internal/models"
)

// Notional on each side of the book within one band.
type Depth struct {
	BidNotional float64
	AskNotional float64
}

func (d Depth) Total() float64 {
	return d.BidNotional + d.AskNotional
}

// Mid returns the average of the best bid and best ask. ok is false when
// either side has no valid level.
func Mid(bids, asks []models.PriceLevel) (mid float64, ok bool) {
	bestBid := math.Inf(-1)
	for _, b := range bids {
		if b.Valid() && b.Price > bestBid {
			bestBid = b.Price
		}
	}

	bestAsk := math.Inf(1)
	for _, a := range asks {
		if a.Valid() && a.Price < bestAsk {
			bestAsk = a.Price
		}
	}

	if math.IsInf(bestBid, 0) || math.IsInf(bestAsk, 0) {
		return math.NaN(), false
	}
	return (bestBid + bestAsk) / 2, true
}

// BandDepth sums bid notional priced at or above mid*(1-frac) and ask
// notional priced at or below mid*(1+frac). frac is a fraction, not a
// percentage: 0.001 is a 0.1% band.
func BandDepth(bids, asks []models.PriceLevel, mid, frac float64) Depth {
	lower := mid * (1 - frac)
	upper := mid * (1 + frac)

	var d Depth
	for _, b := range bids {
		if b.Valid() && b.Price >= lower {
			d.BidNotional += b.Notional()
		}
	}
	for _, a := range asks {
		if a.Valid() && a.Price <= upper {
			d.AskNotional += a.Notional()
		}
	}
	return d
}

// FullDepth sums every valid level on both sides.
func FullDepth(bids, asks []models.PriceLevel) Depth {
	var d Depth
	for _, b := range bids {
		if b.Valid() {
			d.BidNotional += b.Notional()
		}
	}
	for _, a := range asks {
		if a.Valid() {
			d.AskNotional += a.Notional()
		}
	}
	return d
}

// Measure computes the mid and the depth of every band in the catalog for
// one snapshot. ok is false when the snapshot has no defined mid, in which
// case no band is measured.
func Measure(book *models.OrderBook, bands []models.BandSpec) (mid float64, byBand map[models.BandKey]Depth, ok bool) {
	mid, ok = Mid(book.Bids, book.Asks)
	if !ok {
		return mid, nil, false
	}

	byBand = make(map[models.BandKey]Depth, len(bands))
	for _, band := range bands {
		if band.IsFull() {
			byBand[band.Key] = FullDepth(book.Bids, book.Asks)
			continue
		}
		byBand[band.Key] = BandDepth(book.Bids, book.Asks, mid, *band.Pct/100)
	}
	return mid, byBand, true
}
