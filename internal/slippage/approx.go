package slippage

import (
	"math"
	"slices"

	"github.com/suwandre/pairdepth/internal/models"
)

// bandPoint is one point of the cumulative-notional curve for a side.
type bandPoint struct {
	pct float64
	cum float64
}

// requiredMove is the price move (percent) needed to fill a size.
type requiredMove struct {
	pct        float64
	filled     float64
	sufficient bool
}

// FromBands approximates slippage from median band totals without fetching
// a book. For each size it finds the first band whose cumulative notional
// covers the size and linearly interpolates the required move between that
// band and the previous one. VWAP is taken halfway between mid and the
// implied worst price, which assumes price moves linearly with depth inside
// a band; treat the output as an estimate, not a walk.
//
// Only percentage bands present in bandTotals are used; the full-book band
// has no price bound and is ignored.
func FromBands(mid float64, bandTotals map[models.BandKey]models.BandTotal, bands []models.BandSpec, sizes []float64) []models.SizeSlippage {
	sorted := sortedBands(bands)

	var asks, bids []bandPoint
	for _, band := range sorted {
		tot, ok := bandTotals[band.Key]
		if !ok {
			continue
		}
		asks = append(asks, bandPoint{pct: *band.Pct, cum: finiteOrZero(tot.Ask)})
		bids = append(bids, bandPoint{pct: *band.Pct, cum: finiteOrZero(tot.Bid)})
	}

	// With no measured band at all, report the widest catalog band.
	var widest float64
	if len(sorted) > 0 {
		widest = *sorted[len(sorted)-1].Pct
	}

	out := make([]models.SizeSlippage, len(sizes))
	for i, size := range sizes {
		out[i] = models.SizeSlippage{
			SizeUSD: size,
			Buy:     approximate(mid, requiredFor(asks, size, widest), 1),
			Sell:    approximate(mid, requiredFor(bids, size, widest), -1),
		}
	}
	return out
}

// requiredFor walks the curve ascending. The curve is assumed monotonic.
// widest is reported when the curve is empty.
func requiredFor(curve []bandPoint, size, widest float64) requiredMove {
	if len(curve) == 0 {
		return requiredMove{pct: widest}
	}

	var lastPct, lastCum float64
	for _, p := range curve {
		if p.cum >= size {
			span := math.Max(1, p.cum-lastCum)
			ratio := math.Min(1, math.Max(0, (size-lastCum)/span))
			return requiredMove{
				pct:        lastPct + (p.pct-lastPct)*ratio,
				filled:     size,
				sufficient: true,
			}
		}
		lastPct, lastCum = p.pct, p.cum
	}
	// Not enough depth even in the widest band: report what that band holds.
	return requiredMove{pct: lastPct, filled: lastCum, sufficient: false}
}

// approximate turns a required move into a result. dir is +1 for buys and
// -1 for sells.
func approximate(mid float64, move requiredMove, dir float64) models.SlippageResult {
	res := models.SlippageResult{
		SlippagePct:         models.NaN(),
		VWAPPrice:           models.NaN(),
		WorstPrice:          models.NaN(),
		FilledUSD:           models.Float(move.filled),
		SufficientLiquidity: move.sufficient,
		Pct:                 models.Float(move.pct),
	}
	if math.IsNaN(mid) || mid <= 0 {
		return res
	}

	res.WorstPrice = models.Float(mid * (1 + dir*move.pct/100))
	if !move.sufficient {
		return res
	}

	vwap := mid * (1 + dir*move.pct/200)
	res.VWAPPrice = models.Float(vwap)
	res.SlippagePct = models.Float(dir * (vwap - mid) / mid)
	return res
}

func sortedBands(bands []models.BandSpec) []models.BandSpec {
	out := make([]models.BandSpec, 0, len(bands))
	for _, b := range bands {
		if !b.IsFull() {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b models.BandSpec) int {
		switch {
		case *a.Pct < *b.Pct:
			return -1
		case *a.Pct > *b.Pct:
			return 1
		}
		return 0
	})
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
