package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/suwandre/pairdepth/internal/scanner"
)

// Runner performs one full pass. Satisfied by *scanner.Scanner.
type Runner interface {
	Run(ctx context.Context) (*scanner.Pass, error)
}

type Scheduler struct {
	runner    Runner
	interval  time.Duration
	running   atomic.Bool
	started   atomic.Bool
	triggerCh chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewScheduler builds a scheduler. An interval of zero disables periodic
// passes: only the initial pass and manual triggers run.
func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:    runner,
		interval:  interval,
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Begins the polling loop in a background goroutine. The first pass starts
// right away so the hub fills as soon as possible.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.running.Store(true)

	go func() {
		defer close(s.done)

		var tick <-chan time.Time
		if s.interval > 0 {
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		s.refresh(ctx)

		for {
			select {
			case <-tick:
				s.refresh(ctx)
			case <-s.triggerCh:
				s.refresh(ctx)
			case <-s.stopCh:
				log.Info().Msg("scheduler stopped")
				return
			case <-ctx.Done():
				log.Info().Msg("scheduler context done")
				return
			}
		}
	}()

	log.Info().
		Stringer("interval", s.interval).
		Msg("scheduler started")
}

// Trigger asks for a pass as soon as possible. It returns false when a pass
// is already running or queued.
func (s *Scheduler) Trigger() bool {
	if s.running.Load() {
		return false
	}
	select {
	case s.triggerCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// Running reports whether a pass is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Signals the background goroutine to exit and waits for the current pass
// to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	pass, err := s.runner.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler refresh failed")
		return
	}

	log.Info().
		Str("run_id", pass.RunID).
		Int("entries", len(pass.Entries)).
		Msg("depth cache refreshed")
}
