package depth

import (
	"math"
	"testing"

	"github.com/suwandre/pairdepth/internal/models"
)

func sampleBook() *models.OrderBook {
	return &models.OrderBook{
		Pair: "BTC-USD",
		Bids: []models.PriceLevel{
			{Price: 99.25, Size: 2},
			{Price: 99.75, Size: 1},
			{Price: 95, Size: 10},
			{Price: 80, Size: 100},
		},
		Asks: []models.PriceLevel{
			{Price: 104, Size: 5},
			{Price: 100.25, Size: 1},
			{Price: 100.75, Size: 2},
			{Price: 130, Size: 50},
		},
	}
}

func TestMid(t *testing.T) {
	book := sampleBook()
	mid, ok := Mid(book.Bids, book.Asks)
	if !ok {
		t.Fatal("expected defined mid")
	}
	if mid != 100 {
		t.Fatalf("expected mid 100, got %v", mid)
	}
}

func TestMidUndefinedWhenSideEmpty(t *testing.T) {
	book := sampleBook()

	if mid, ok := Mid(nil, book.Asks); ok || !math.IsNaN(mid) {
		t.Fatalf("expected undefined mid with no bids, got %v %v", mid, ok)
	}
	if mid, ok := Mid(book.Bids, nil); ok || !math.IsNaN(mid) {
		t.Fatalf("expected undefined mid with no asks, got %v %v", mid, ok)
	}
}

func TestBandDepth(t *testing.T) {
	book := sampleBook()

	d := BandDepth(book.Bids, book.Asks, 100, 0.005)
	if d.BidNotional != 99.75 {
		t.Fatalf("expected bid notional 99.75, got %v", d.BidNotional)
	}
	if d.AskNotional != 100.25 {
		t.Fatalf("expected ask notional 100.25, got %v", d.AskNotional)
	}
	if d.Total() != 200 {
		t.Fatalf("expected total 200, got %v", d.Total())
	}
}

func TestBandDepthMonotonic(t *testing.T) {
	book := sampleBook()
	fracs := []float64{0.0008, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}

	prev := Depth{}
	for _, f := range fracs {
		d := BandDepth(book.Bids, book.Asks, 100, f)
		if d.BidNotional < prev.BidNotional || d.AskNotional < prev.AskNotional {
			t.Fatalf("band %v shrank: %+v after %+v", f, d, prev)
		}
		if d.Total() < prev.Total() {
			t.Fatalf("band %v total shrank", f)
		}
		prev = d
	}

	full := FullDepth(book.Bids, book.Asks)
	if full.Total() < prev.Total() {
		t.Fatalf("full depth %v below widest band %v", full.Total(), prev.Total())
	}
}

func TestInvalidLevelsSkipped(t *testing.T) {
	bids := []models.PriceLevel{
		{Price: 99, Size: 1},
		{Price: math.NaN(), Size: 1},
		{Price: 98, Size: -3},
		{Price: math.Inf(1), Size: 1},
	}
	asks := []models.PriceLevel{
		{Price: 101, Size: 1},
		{Price: 100.5, Size: math.Inf(1)},
	}

	mid, ok := Mid(bids, asks)
	if !ok || mid != 100 {
		t.Fatalf("expected mid 100 ignoring invalid levels, got %v %v", mid, ok)
	}

	full := FullDepth(bids, asks)
	if full.BidNotional != 99 || full.AskNotional != 101 {
		t.Fatalf("invalid levels leaked into sums: %+v", full)
	}

	band := BandDepth(bids, asks, mid, 0.05)
	if math.IsNaN(band.Total()) || math.IsInf(band.Total(), 0) {
		t.Fatalf("band depth poisoned: %+v", band)
	}
}

func TestMeasure(t *testing.T) {
	book := sampleBook()
	bands := []models.BandSpec{models.Band(0.5), models.Band(1), models.FullBook()}

	mid, byBand, ok := Measure(book, bands)
	if !ok || mid != 100 {
		t.Fatalf("unexpected mid %v %v", mid, ok)
	}
	if len(byBand) != len(bands) {
		t.Fatalf("expected %d bands, got %d", len(bands), len(byBand))
	}
	if byBand[models.KeyFromPct(0.5)].Total() != 200 {
		t.Fatalf("unexpected 0.5%% band: %+v", byBand[models.KeyFromPct(0.5)])
	}
	if byBand[models.FullBookKey] != FullDepth(book.Bids, book.Asks) {
		t.Fatal("full band does not match FullDepth")
	}

	if _, _, ok := Measure(&models.OrderBook{Asks: book.Asks}, bands); ok {
		t.Fatal("expected no measurement without bids")
	}
}

func TestPureFunctionsDoNotMutate(t *testing.T) {
	book := sampleBook()
	before := append([]models.PriceLevel(nil), book.Bids...)

	Mid(book.Bids, book.Asks)
	BandDepth(book.Bids, book.Asks, 100, 0.01)
	FullDepth(book.Bids, book.Asks)

	for i := range before {
		if before[i] != book.Bids[i] {
			t.Fatalf("input mutated at %d", i)
		}
	}
}
