// Package scanner runs one sampling pass over an exchange's market universe
// and publishes the resulting depth rows.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/suwandre/pairdepth/internal/exchange"
	"github.com/suwandre/pairdepth/internal/hub"
	"github.com/suwandre/pairdepth/internal/models"
	"github.com/suwandre/pairdepth/internal/pool"
	"github.com/suwandre/pairdepth/internal/sampler"
)

// ErrorOrderbook is the row error for a market that could not be sampled.
const ErrorOrderbook = "Orderbook error"

// Config tunes a pass. Fixed for the life of the process.
type Config struct {
	Samples       int
	RetrySamples  int
	RetryAttempts int
	Concurrency   int
	MinVolume     float64
}

type Scanner struct {
	source  exchange.Source
	sampler *sampler.Sampler
	hub     *hub.Hub
	cfg     Config
	now     func() time.Time
}

// Outcome of a finished pass.
type Pass struct {
	RunID     string
	Entries   []models.MarketEntry
	StillZero []string
	Duration  time.Duration
}

func NewScanner(source exchange.Source, smp *sampler.Sampler, h *hub.Hub, cfg Config) *Scanner {
	return &Scanner{
		source:  source,
		sampler: smp,
		hub:     h,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run lists markets, samples every eligible one with bounded concurrency,
// retries markets that came back empty, and publishes rows as they finish.
// A list-markets failure aborts the pass; per-market failures become error
// rows.
func (s *Scanner) Run(ctx context.Context) (*Pass, error) {
	started := s.now()
	runID := uuid.NewString()
	previous := s.hub.Snapshot().Entries

	markets, err := s.source.ListMarkets(ctx)
	if err != nil {
		err = fmt.Errorf("scanner: list markets: %w", err)
		log.Error().Err(err).Str("run_id", runID).Msg("depth scan aborted")
		s.hub.Publish(hub.State{
			RunID:    runID,
			Exchange: s.source.Name(),
			Entries:  previous,
			Error:    err.Error(),
		})
		return nil, err
	}

	eligible := Eligible(markets, s.cfg.MinVolume)
	tickers := make([]string, len(eligible))
	for i, m := range eligible {
		tickers[i] = m.Ticker
	}
	groups := AssignGroups(tickers, s.source.Majors())

	log.Info().
		Str("run_id", runID).
		Str("exchange", s.source.Name()).
		Int("markets", len(markets)).
		Int("eligible", len(eligible)).
		Int("concurrency", s.cfg.Concurrency).
		Msg("depth scan started")

	tr := newTracker(s.hub, runID, s.source.Name(), eligible, previous)
	tr.publish(true, nil)

	entries := pool.Run(eligible, s.cfg.Concurrency, func(m models.MarketInfo, _ int) models.MarketEntry {
		entry := s.sampleEntry(ctx, m, groups[m.Ticker])
		tr.complete(entry)
		return entry
	})

	if err := ctx.Err(); err != nil {
		tr.fail(fmt.Errorf("scanner: pass cancelled: %w", err))
		return nil, err
	}

	stillZero, err := s.retryZero(ctx, eligible, groups, entries, tr)
	if err != nil {
		tr.fail(fmt.Errorf("scanner: zero-depth retry: %w", err))
		return nil, err
	}

	tr.publish(false, stillZero)

	pass := &Pass{
		RunID:     runID,
		Entries:   tr.entries(),
		StillZero: stillZero,
		Duration:  s.now().Sub(started),
	}

	log.Info().
		Str("run_id", runID).
		Int("entries", len(pass.Entries)).
		Int("still_zero", len(stillZero)).
		Stringer("took", pass.Duration).
		Msg("depth scan finished")

	return pass, nil
}

// sampleEntry samples one market and turns any failure into an error row.
func (s *Scanner) sampleEntry(ctx context.Context, m models.MarketInfo, group models.Group) models.MarketEntry {
	sample, err := s.sampler.SampleTicker(ctx, m.Ticker, s.cfg.Samples)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("pair", m.Ticker).Msg("failed to sample market")
		}
		return errorEntry(m.Ticker, group, s.now())
	}
	return s.buildEntry(m, group, sample)
}

func (s *Scanner) buildEntry(m models.MarketInfo, group models.Group, sample *sampler.Sample) models.MarketEntry {
	return models.MarketEntry{
		Pair:            m.Ticker,
		Mid:             models.Float(sample.Mid),
		Totals:          sample.Totals,
		BandTotals:      sample.BandTotals,
		Volume24H:       m.Volume24H,
		OpenInterestUSD: m.OpenInterestUSD(),
		Group:           group,
		SampledAt:       s.now().UTC(),
	}
}

func errorEntry(pair string, group models.Group, at time.Time) models.MarketEntry {
	return models.MarketEntry{
		Pair:       pair,
		Mid:        models.NaN(),
		Totals:     map[models.BandKey]float64{},
		BandTotals: map[models.BandKey]models.BandTotal{},
		Group:      group,
		Error:      ErrorOrderbook,
		SampledAt:  at.UTC(),
	}
}

// retryZero resamples all-zero rows and swaps in the ones that recover.
func (s *Scanner) retryZero(
	ctx context.Context,
	eligible []models.MarketInfo,
	groups map[string]models.Group,
	entries []models.MarketEntry,
	tr *tracker,
) ([]string, error) {
	var zero []string
	for _, e := range entries {
		if e.AllZero() {
			zero = append(zero, e.Pair)
		}
	}
	if len(zero) == 0 || s.cfg.RetryAttempts <= 0 {
		return zero, nil
	}

	log.Info().Int("markets", len(zero)).Msg("retrying zero-depth markets")

	outcome, err := s.sampler.RetryZero(ctx, zero, s.cfg.RetryAttempts, s.cfg.RetrySamples)
	if err != nil {
		return nil, err
	}

	byTicker := make(map[string]models.MarketInfo, len(eligible))
	for _, m := range eligible {
		byTicker[m.Ticker] = m
	}

	recovered := make([]models.MarketEntry, 0, len(outcome.Recovered))
	for pair, sample := range outcome.Recovered {
		recovered = append(recovered, s.buildEntry(byTicker[pair], groups[pair], sample))
	}
	tr.replace(recovered)

	return outcome.StillZero, nil
}
