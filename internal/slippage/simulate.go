// Package slippage estimates execution cost for USD trade sizes, either by
// walking fresh order-book snapshots or by interpolating previously
// measured band depth.
package slippage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/suwandre/pairdepth/internal/depth"
	"github.com/suwandre/pairdepth/internal/exchange"
	"github.com/suwandre/pairdepth/internal/models"
	"github.com/suwandre/pairdepth/internal/sampler"
	"github.com/suwandre/pairdepth/internal/stats"
)

// fillTolerance absorbs float rounding when comparing filled notional to the target.
const fillTolerance = 1e-9

// Simulator walks fresh book snapshots for every requested size.
type Simulator struct {
	source   exchange.Source
	interval time.Duration
}

func NewSimulator(source exchange.Source, interval time.Duration) *Simulator {
	return &Simulator{
		source:   source,
		interval: interval,
	}
}

// sideSeries holds per-sample observations for one size and side.
type sideSeries struct {
	vwap   []float64
	worst  []float64
	levels []float64
	filled []float64
}

func (s *sideSeries) add(f Fill) {
	if !math.IsNaN(f.VWAP) {
		s.vwap = append(s.vwap, f.VWAP)
	}
	s.worst = append(s.worst, f.WorstPrice)
	s.levels = append(s.levels, float64(f.LevelsCrossed))
	s.filled = append(s.filled, f.FilledUSD)
}

// Simulate takes n snapshots of pair, interval apart, walks both sides of
// each for every size and median-reduces each series independently.
// Results are returned in the order of sizes.
//
// Slippage is measured against the median of the buy and sell median VWAPs,
// not a sampled mid, so it tracks the executable price level.
func (s *Simulator) Simulate(ctx context.Context, pair string, sizes []float64, n int) ([]models.SizeSlippage, error) {
	buys := make([]sideSeries, len(sizes))
	sells := make([]sideSeries, len(sizes))
	used := 0

	for i := 0; i < n; i++ {
		book, err := s.source.GetOrderBook(ctx, pair)
		if err != nil {
			log.Debug().Err(err).Str("pair", pair).Int("sample", i).Msg("slippage sample failed, skipping")
		} else if _, ok := depth.Mid(book.Bids, book.Asks); ok {
			bids, asks := SortedSides(book)
			for j, size := range sizes {
				buys[j].add(Walk(asks, size))
				sells[j].add(Walk(bids, size))
			}
			used++
		}

		if i < n-1 {
			if err := sampler.Sleep(ctx, s.interval); err != nil {
				return nil, err
			}
		}
	}

	if used == 0 {
		return nil, fmt.Errorf("%s: %w", pair, sampler.ErrNoSnapshots)
	}

	out := make([]models.SizeSlippage, len(sizes))
	for j, size := range sizes {
		buyVWAP := stats.Median(buys[j].vwap)
		sellVWAP := stats.Median(sells[j].vwap)
		refMid := stats.Median(stats.FiniteOnly([]float64{buyVWAP, sellVWAP}))

		buySlip, sellSlip := math.NaN(), math.NaN()
		if !math.IsNaN(refMid) && refMid != 0 {
			if !math.IsNaN(buyVWAP) {
				buySlip = (buyVWAP - refMid) / refMid
			}
			if !math.IsNaN(sellVWAP) {
				sellSlip = (refMid - sellVWAP) / refMid
			}
		}

		out[j] = models.SizeSlippage{
			SizeUSD: size,
			Buy:     reduce(&buys[j], size, buyVWAP, buySlip),
			Sell:    reduce(&sells[j], size, sellVWAP, sellSlip),
		}
	}
	return out, nil
}

func reduce(s *sideSeries, size, vwap, slip float64) models.SlippageResult {
	levels := stats.Median(s.levels)
	if math.IsNaN(levels) {
		levels = 0
	}
	filled := stats.Median(s.filled)

	return models.SlippageResult{
		SlippagePct:         models.Float(slip),
		VWAPPrice:           models.Float(vwap),
		WorstPrice:          models.Float(stats.Median(s.worst)),
		LevelsCrossed:       int(math.Round(levels)),
		FilledUSD:           models.Float(filled),
		SufficientLiquidity: sufficient(filled, size),
	}
}

func sufficient(filled, size float64) bool {
	return !math.IsNaN(filled) && filled >= size*(1-fillTolerance)
}
