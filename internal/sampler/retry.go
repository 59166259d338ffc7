package sampler

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Result of re-sampling markets whose first pass came back all zero.
type RetryOutcome struct {
	// Recovered holds the sample that produced non-zero depth, keyed by pair.
	Recovered map[string]*Sample
	// StillZero lists the markets confirmed empty after every attempt, in
	// input order.
	StillZero []string
}

// RetryZero re-samples pairs up to attempts times with n samples each. A
// pair leaves the set on the first attempt that yields any non-zero total.
// A pair whose retry fails outright stays in the set.
func (s *Sampler) RetryZero(ctx context.Context, pairs []string, attempts, n int) (*RetryOutcome, error) {
	out := &RetryOutcome{Recovered: make(map[string]*Sample)}
	remaining := append([]string(nil), pairs...)

	for attempt := 1; attempt <= attempts && len(remaining) > 0; attempt++ {
		var stillZero []string

		for _, pair := range remaining {
			sample, err := s.SampleTicker(ctx, pair, n)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if err != nil {
				log.Debug().Err(err).Str("pair", pair).Int("attempt", attempt).Msg("zero-depth retry failed")
				stillZero = append(stillZero, pair)
				continue
			}
			if sample.AllZero() {
				stillZero = append(stillZero, pair)
				continue
			}
			out.Recovered[pair] = sample
		}

		log.Info().
			Int("attempt", attempt).
			Int("retried", len(remaining)).
			Int("still_zero", len(stillZero)).
			Msg("zero-depth retry attempt finished")

		remaining = stillZero
	}

	out.StillZero = remaining
	return out, nil
}
