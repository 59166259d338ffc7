package scanner

import (
	"math"
	"sync"

	"github.com/suwandre/pairdepth/internal/hub"
	"github.com/suwandre/pairdepth/internal/models"
)

// tracker accumulates finished rows during a pass and republishes the
// visible set after each one. It is the only state shared between workers.
type tracker struct {
	mu        sync.Mutex
	hub       *hub.Hub
	runID     string
	exchange  string
	total     int
	completed int
	done      map[string]models.MarketEntry
	// carried holds last pass rows still shown until their market is resampled.
	carried map[string]models.MarketEntry
}

func newTracker(h *hub.Hub, runID, exchange string, eligible []models.MarketInfo, previous []models.MarketEntry) *tracker {
	wanted := make(map[string]struct{}, len(eligible))
	for _, m := range eligible {
		wanted[m.Ticker] = struct{}{}
	}

	carried := make(map[string]models.MarketEntry)
	for _, e := range previous {
		if _, ok := wanted[e.Pair]; ok {
			carried[e.Pair] = e
		}
	}

	return &tracker{
		hub:      h,
		runID:    runID,
		exchange: exchange,
		total:    len(eligible),
		done:     make(map[string]models.MarketEntry, len(eligible)),
		carried:  carried,
	}
}

// Progress returns round(completed/total*100); an empty universe is complete.
func Progress(completed, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func (t *tracker) complete(e models.MarketEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done[e.Pair] = e
	delete(t.carried, e.Pair)
	t.completed++
	t.publishLocked(true, nil)
}

// replace swaps in rows rebuilt after the zero-depth retry.
func (t *tracker) replace(entries []models.MarketEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range entries {
		t.done[e.Pair] = e
	}
}

func (t *tracker) publish(running bool, stillZero []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.publishLocked(running, stillZero)
}

func (t *tracker) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.hub.Publish(hub.State{
		RunID:    t.runID,
		Exchange: t.exchange,
		Entries:  t.visibleLocked(),
		Progress: Progress(t.completed, t.total),
		Error:    err.Error(),
	})
}

func (t *tracker) entries() []models.MarketEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visibleLocked()
}

func (t *tracker) publishLocked(running bool, stillZero []string) {
	t.hub.Publish(hub.State{
		RunID:     t.runID,
		Exchange:  t.exchange,
		Entries:   t.visibleLocked(),
		Progress:  Progress(t.completed, t.total),
		Running:   running,
		StillZero: stillZero,
	})
}

// visibleLocked builds a fresh, sorted slice so published states never share
// backing arrays.
func (t *tracker) visibleLocked() []models.MarketEntry {
	out := make([]models.MarketEntry, 0, len(t.done)+len(t.carried))
	for _, e := range t.done {
		out = append(out, e)
	}
	for _, e := range t.carried {
		out = append(out, e)
	}
	SortEntries(out)
	return out
}
