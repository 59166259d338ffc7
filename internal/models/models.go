package models

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// One price level of an order book. Invalid levels never make it past the
// exchange adapter.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Notional is the USD value of the level.
func (l PriceLevel) Notional() float64 {
	return l.Price * l.Size
}

// Valid reports whether both price and size are finite and non-negative.
func (l PriceLevel) Valid() bool {
	return validNumber(l.Price) && validNumber(l.Size)
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// A single order-book snapshot. Bids and asks are in the order the source
// returned them; nothing downstream assumes they are sorted.
type OrderBook struct {
	Pair string       `json:"pair"`
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// Static market metadata returned by the "list markets" call.
type MarketInfo struct {
	Ticker       string  `json:"ticker"`
	Status       string  `json:"status"`
	Volume24H    float64 `json:"volume_24h"`
	OpenInterest float64 `json:"open_interest"`
	OraclePrice  float64 `json:"oracle_price"`
}

// OpenInterestUSD converts open interest (base units) to USD at the oracle price.
func (m MarketInfo) OpenInterestUSD() float64 {
	return m.OpenInterest * m.OraclePrice
}

// BandKey identifies a depth band as a fixed-point percentage in hundredths
// of a percent: 0.08% is 8, 5.00% is 500. FullBookKey marks the unrestricted band.
type BandKey int

const FullBookKey BandKey = -1

// KeyFromPct converts a percentage (0.08 meaning 0.08%) to its BandKey.
func KeyFromPct(pct float64) BandKey {
	return BandKey(math.Round(pct * 100))
}

// Pct returns the band width in percent. Meaningless for FullBookKey.
func (k BandKey) Pct() float64 {
	return float64(k) / 100
}

func (k BandKey) String() string {
	if k == FullBookKey {
		return "full"
	}
	return strconv.FormatFloat(k.Pct(), 'f', 2, 64)
}

func (k BandKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *BandKey) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "full" {
		*k = FullBookKey
		return nil
	}
	pct, err := strconv.ParseFloat(s, 64)
	if err != nil || pct < 0 {
		return fmt.Errorf("invalid band key %q", s)
	}
	*k = KeyFromPct(pct)
	return nil
}

// A depth bucket. Pct is nil for the full book.
type BandSpec struct {
	Key BandKey  `json:"key"`
	Pct *float64 `json:"pct"`
}

// Band builds a percentage-restricted BandSpec.
func Band(pct float64) BandSpec {
	p := pct
	return BandSpec{Key: KeyFromPct(pct), Pct: &p}
}

// FullBook builds the unrestricted BandSpec.
func FullBook() BandSpec {
	return BandSpec{Key: FullBookKey}
}

func (b BandSpec) IsFull() bool {
	return b.Pct == nil
}

// Cumulative notional on each side within one band.
type BandTotal struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

func (t BandTotal) Total() float64 {
	return t.Bid + t.Ask
}

// Volume-rank bucket used to order output rows.
type Group int

const (
	GroupMajors Group = iota + 1 // BTC-USD and ETH-USD
	GroupTop                     // volume rank 3..10
	GroupMid                     // volume rank 11..30
	GroupTail                    // volume rank 31+
)

func (g Group) Subtitle() string {
	switch g {
	case GroupMajors:
		return "BTC-USD and ETH-USD"
	case GroupTop:
		return "Volume rank 3–10"
	case GroupMid:
		return "Volume rank 11–30"
	default:
		return "Volume rank 31+"
	}
}

// One output row per market and sampling pass. Never mutated once published.
type MarketEntry struct {
	Pair            string                `json:"pair"`
	Mid             Float                 `json:"mid"`
	Totals          map[BandKey]float64   `json:"totals"`
	BandTotals      map[BandKey]BandTotal `json:"band_totals"`
	Volume24H       float64               `json:"volume_24h"`
	OpenInterestUSD float64               `json:"open_interest_usd"`
	Group           Group                 `json:"group"`
	Error           string                `json:"error,omitempty"`
	SampledAt       time.Time             `json:"sampled_at"`
}

// AllZero reports whether every band total is zero. Error rows are not zero rows.
func (e MarketEntry) AllZero() bool {
	if e.Error != "" {
		return false
	}
	for _, v := range e.Totals {
		if v != 0 {
			return false
		}
	}
	return true
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Expected execution cost for one size and side.
type SlippageResult struct {
	SlippagePct         Float `json:"slippage_pct"` // fraction, 0.001 = 0.1%
	VWAPPrice           Float `json:"vwap_price"`
	WorstPrice          Float `json:"worst_price"`
	LevelsCrossed       int   `json:"levels_crossed"`
	FilledUSD           Float `json:"filled_usd"`
	SufficientLiquidity bool  `json:"sufficient_liquidity"`
	// Required price move in percent. Only set by the band approximation.
	Pct Float `json:"pct,omitempty"`
}

// Buy and sell results for one requested USD size.
type SizeSlippage struct {
	SizeUSD float64        `json:"size_usd"`
	Buy     SlippageResult `json:"buy"`
	Sell    SlippageResult `json:"sell"`
}

// Slippage table for one market.
type MarketSlippage struct {
	Pair            string         `json:"pair"`
	Volume24H       float64        `json:"volume_24h"`
	OpenInterestUSD float64        `json:"open_interest_usd"`
	Group           Group          `json:"group"`
	Mode            string         `json:"mode"`
	Sizes           []SizeSlippage `json:"sizes"`
	Error           string         `json:"error,omitempty"`
}
