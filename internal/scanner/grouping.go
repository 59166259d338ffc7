package scanner

import (
	"cmp"
	"slices"
	"strings"

	"github.com/suwandre/pairdepth/internal/models"
)

// statusFinalSettlement marks a market that no longer trades.
const statusFinalSettlement = "FINAL_SETTLEMENT"

// Eligible drops settled and low volume markets and returns the rest sorted
// by 24h volume, highest first. Ties are broken by ticker so passes are
// deterministic.
func Eligible(markets map[string]models.MarketInfo, minVolume float64) []models.MarketInfo {
	out := make([]models.MarketInfo, 0, len(markets))
	for id, m := range markets {
		if strings.EqualFold(m.Status, statusFinalSettlement) {
			continue
		}
		if m.Volume24H < minVolume {
			continue
		}
		if m.Ticker == "" {
			m.Ticker = id
		}
		out = append(out, m)
	}

	slices.SortFunc(out, func(a, b models.MarketInfo) int {
		if c := cmp.Compare(b.Volume24H, a.Volume24H); c != 0 {
			return c
		}
		return strings.Compare(a.Ticker, b.Ticker)
	})
	return out
}

// AssignGroups buckets tickers already sorted by volume. Majors always land
// in the first group; everyone else is grouped by 1-based rank, where the
// rank counts the majors too. A non-major ranked first or second falls
// outside every rank window and lands in the last group.
func AssignGroups(sorted []string, majors []string) map[string]models.Group {
	groups := make(map[string]models.Group, len(sorted))
	for i, ticker := range sorted {
		if slices.Contains(majors, ticker) {
			groups[ticker] = models.GroupMajors
			continue
		}

		switch rank := i + 1; {
		case rank >= 3 && rank <= 10:
			groups[ticker] = models.GroupTop
		case rank >= 11 && rank <= 30:
			groups[ticker] = models.GroupMid
		default:
			groups[ticker] = models.GroupTail
		}
	}
	return groups
}

// SortEntries orders rows by group, then volume descending, then pair.
func SortEntries(entries []models.MarketEntry) {
	slices.SortStableFunc(entries, func(a, b models.MarketEntry) int {
		if c := cmp.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Volume24H, a.Volume24H); c != 0 {
			return c
		}
		return strings.Compare(a.Pair, b.Pair)
	})
}
