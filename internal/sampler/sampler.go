// Package sampler repeatedly snapshots a market's order book and reduces
// the per-band depth observations to their medians.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/suwandre/pairdepth/internal/depth"
	"github.com/suwandre/pairdepth/internal/exchange"
	"github.com/suwandre/pairdepth/internal/models"
	"github.com/suwandre/pairdepth/internal/stats"
)

// ErrNoSnapshots is returned when not a single sample produced a defined mid.
var ErrNoSnapshots = errors.New("no successful orderbook snapshots")

// Median-reduced depth for one market.
type Sample struct {
	Mid        float64
	Totals     map[models.BandKey]float64
	BandTotals map[models.BandKey]models.BandTotal
	// Snapshots is how many samples contributed.
	Snapshots int
}

// AllZero reports whether every band total came back zero.
func (s *Sample) AllZero() bool {
	for _, v := range s.Totals {
		if v != 0 {
			return false
		}
	}
	return true
}

type Sampler struct {
	source   exchange.Source
	bands    []models.BandSpec
	interval time.Duration
}

func NewSampler(source exchange.Source, bands []models.BandSpec, interval time.Duration) *Sampler {
	return &Sampler{
		source:   source,
		bands:    bands,
		interval: interval,
	}
}

// series collects one observation list per metric.
type series struct {
	mid   []float64
	total map[models.BandKey][]float64
	bid   map[models.BandKey][]float64
	ask   map[models.BandKey][]float64
}

func newSeries(bands []models.BandSpec, capacity int) *series {
	s := &series{
		mid:   make([]float64, 0, capacity),
		total: make(map[models.BandKey][]float64, len(bands)),
		bid:   make(map[models.BandKey][]float64, len(bands)),
		ask:   make(map[models.BandKey][]float64, len(bands)),
	}
	for _, b := range bands {
		s.total[b.Key] = make([]float64, 0, capacity)
		s.bid[b.Key] = make([]float64, 0, capacity)
		s.ask[b.Key] = make([]float64, 0, capacity)
	}
	return s
}

// SampleTicker takes n snapshots of pair, interval apart, and returns the
// median of every metric independently. Failed fetches and snapshots
// without a mid are skipped; only a run with no usable snapshot at all fails.
func (s *Sampler) SampleTicker(ctx context.Context, pair string, n int) (*Sample, error) {
	obs := newSeries(s.bands, n)

	for i := 0; i < n; i++ {
		book, err := s.source.GetOrderBook(ctx, pair)
		if err != nil {
			log.Debug().Err(err).Str("pair", pair).Int("sample", i).Msg("orderbook sample failed, skipping")
		} else if mid, byBand, ok := depth.Measure(book, s.bands); ok {
			obs.mid = append(obs.mid, mid)
			for key, d := range byBand {
				obs.total[key] = append(obs.total[key], d.Total())
				obs.bid[key] = append(obs.bid[key], d.BidNotional)
				obs.ask[key] = append(obs.ask[key], d.AskNotional)
			}
		}

		if i < n-1 {
			if err := Sleep(ctx, s.interval); err != nil {
				return nil, err
			}
		}
	}

	if len(obs.mid) == 0 {
		return nil, fmt.Errorf("%s: %w", pair, ErrNoSnapshots)
	}

	out := &Sample{
		Mid:        stats.Median(obs.mid),
		Totals:     make(map[models.BandKey]float64, len(s.bands)),
		BandTotals: make(map[models.BandKey]models.BandTotal, len(s.bands)),
		Snapshots:  len(obs.mid),
	}
	for _, b := range s.bands {
		out.Totals[b.Key] = stats.Median(obs.total[b.Key])
		out.BandTotals[b.Key] = models.BandTotal{
			Bid: stats.Median(obs.bid[b.Key]),
			Ask: stats.Median(obs.ask[b.Key]),
		}
	}
	return out, nil
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
