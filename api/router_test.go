package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/suwandre/pairdepth/internal/exchange/exchangetest"
	"github.com/suwandre/pairdepth/internal/hub"
	"github.com/suwandre/pairdepth/internal/models"
	"github.com/suwandre/pairdepth/internal/slippage"
)

type stubRefresher struct {
	accept bool
	calls  int
}

func (s *stubRefresher) Trigger() bool {
	s.calls++
	return s.accept
}

func testBands() []models.BandSpec {
	return []models.BandSpec{models.Band(0.1), models.Band(0.2), models.FullBook()}
}

func newTestApp(t *testing.T, src *exchangetest.Source, refresher *stubRefresher) (*fiber.App, *hub.Hub) {
	t.Helper()

	h := hub.New()
	h.Publish(hub.State{
		RunID:    "run-1",
		Exchange: "fake",
		Progress: 100,
		Entries: []models.MarketEntry{
			{
				Pair: "BTC-USD",
				Mid:  100,
				Totals: map[models.BandKey]float64{
					models.KeyFromPct(0.1): 1500,
					models.KeyFromPct(0.2): 3800,
					models.FullBookKey:     1e6,
				},
				BandTotals: map[models.BandKey]models.BandTotal{
					models.KeyFromPct(0.1): {Bid: 500, Ask: 1000},
					models.KeyFromPct(0.2): {Bid: 800, Ask: 3000},
					models.FullBookKey:     {Bid: 5e5, Ask: 5e5},
				},
				Volume24H: 1e6,
				Group:     models.GroupMajors,
			},
			{
				Pair:       "DEAD-USD",
				Mid:        models.NaN(),
				Totals:     map[models.BandKey]float64{},
				BandTotals: map[models.BandKey]models.BandTotal{},
				Group:      models.GroupTop,
				Error:      "Orderbook error",
			},
		},
	})

	app := fiber.New()
	SetupRoutes(app, Deps{
		Hub:       h,
		Refresher: refresher,
		Simulator: slippage.NewSimulator(src, 0),
		Bands:     testBands(),
		Sizes:     []float64{1500},
		Samples:   2,
	})
	return app, h
}

func do(t *testing.T, app *fiber.App, method, target string) (int, map[string]any) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, target, body, err)
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, exchangetest.NewSource(), &stubRefresher{})
	status, body := do(t, app, http.MethodGet, "/v1/health")
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response: %d %v", status, body)
	}
}

func TestGetDepth(t *testing.T) {
	app, _ := newTestApp(t, exchangetest.NewSource(), &stubRefresher{})

	status, body := do(t, app, http.MethodGet, "/v1/depth")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if body["run_id"] != "run-1" || body["progress"] != float64(100) {
		t.Fatalf("unexpected state: %v", body)
	}

	entries := body["entries"].([]any)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	btc := entries[0].(map[string]any)
	totals := btc["totals"].(map[string]any)
	if totals["0.10"] != float64(1500) || totals["full"] != float64(1e6) {
		t.Fatalf("unexpected band keys: %v", totals)
	}

	dead := entries[1].(map[string]any)
	if dead["mid"] != nil || dead["error"] != "Orderbook error" {
		t.Fatalf("expected null mid on error rows, got %v", dead)
	}

	groups := body["groups"].([]any)
	if len(groups) != 2 {
		t.Fatalf("expected 2 non-empty groups, got %v", groups)
	}
	majors := groups[0].(map[string]any)
	if majors["group"] != float64(1) || majors["subtitle"] != "BTC-USD and ETH-USD" || majors["markets"] != float64(1) {
		t.Fatalf("unexpected majors summary: %v", majors)
	}
	top := groups[1].(map[string]any)
	if top["group"] != float64(2) || top["subtitle"] != "Volume rank 3–10" || top["markets"] != float64(1) {
		t.Fatalf("unexpected top summary: %v", top)
	}
}

func TestGetDepthGroupFilter(t *testing.T) {
	app, _ := newTestApp(t, exchangetest.NewSource(), &stubRefresher{})

	_, body := do(t, app, http.MethodGet, "/v1/depth?group=2")
	entries := body["entries"].([]any)
	if len(entries) != 1 || entries[0].(map[string]any)["pair"] != "DEAD-USD" {
		t.Fatalf("unexpected filtered entries: %v", entries)
	}
	if groups := body["groups"].([]any); len(groups) != 1 || groups[0].(map[string]any)["group"] != float64(2) {
		t.Fatalf("groups must follow the filter, got %v", groups)
	}

	if status, _ := do(t, app, http.MethodGet, "/v1/depth?group=9"); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad group, got %d", status)
	}
}

func TestGetDepthPair(t *testing.T) {
	app, _ := newTestApp(t, exchangetest.NewSource(), &stubRefresher{})

	status, body := do(t, app, http.MethodGet, "/v1/depth/BTC-USD")
	if status != http.StatusOK || body["pair"] != "BTC-USD" || body["mid"] != float64(100) {
		t.Fatalf("unexpected pair response: %d %v", status, body)
	}

	if status, _ := do(t, app, http.MethodGet, "/v1/depth/NOPE-USD"); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestGetSlippageApprox(t *testing.T) {
	app, _ := newTestApp(t, exchangetest.NewSource(), &stubRefresher{})

	status, body := do(t, app, http.MethodGet, "/v1/slippage?sizes=250,1500")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d: %v", status, body)
	}

	sizes := body["sizes"].([]any)
	if len(sizes) != 2 || sizes[0] != float64(250) || sizes[1] != float64(1500) {
		t.Fatalf("expected merged, sorted, unique sizes, got %v", sizes)
	}

	markets := body["markets"].([]any)
	btc := markets[0].(map[string]any)
	if btc["mode"] != "approx" {
		t.Fatalf("unexpected mode: %v", btc["mode"])
	}
	rows := btc["sizes"].([]any)
	buy := rows[1].(map[string]any)["buy"].(map[string]any)
	if buy["sufficient_liquidity"] != true || buy["levels_crossed"] != float64(0) {
		t.Fatalf("unexpected approx buy: %v", buy)
	}

	dead := markets[1].(map[string]any)
	if dead["error"] != "Orderbook error" {
		t.Fatalf("expected the error to be carried: %v", dead)
	}
	deadRows, ok := dead["sizes"].([]any)
	if !ok || len(deadRows) != len(sizes) {
		t.Fatalf("error rows need one row per requested size, got %v", dead["sizes"])
	}
	for _, row := range deadRows {
		r := row.(map[string]any)
		for _, side := range []string{"buy", "sell"} {
			res := r[side].(map[string]any)
			if res["vwap_price"] != nil || res["slippage_pct"] != nil || res["filled_usd"] != float64(0) || res["sufficient_liquidity"] != false {
				t.Fatalf("expected undefined %s slippage on an error row, got %v", side, res)
			}
		}
	}
}

func TestGetSlippageBadSizes(t *testing.T) {
	app, _ := newTestApp(t, exchangetest.NewSource(), &stubRefresher{})

	for _, target := range []string{
		"/v1/slippage?sizes=abc",
		"/v1/slippage/BTC-USD?sizes=-1",
		"/v1/slippage?sizes=" + strings.Repeat("1,", 11) + "1",
	} {
		if status, _ := do(t, app, http.MethodGet, target); status != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, status)
		}
	}
}

func TestGetSlippagePairModes(t *testing.T) {
	src := exchangetest.NewSource()
	src.Always("BTC-USD", exchangetest.Book(
		[][2]float64{{98, 2}, {99, 1}},
		[][2]float64{{101, 2}, {100, 1}},
	))
	app, _ := newTestApp(t, src, &stubRefresher{})

	status, body := do(t, app, http.MethodGet, "/v1/slippage/BTC-USD")
	if status != http.StatusOK || body["mode"] != "approx" {
		t.Fatalf("unexpected approx response: %d %v", status, body)
	}

	status, body = do(t, app, http.MethodGet, "/v1/slippage/BTC-USD?mode=fresh&sizes=150")
	if status != http.StatusOK || body["mode"] != "fresh" {
		t.Fatalf("unexpected fresh response: %d %v", status, body)
	}
	if src.Calls("BTC-USD") != 2 {
		t.Fatalf("expected 2 snapshots for a fresh simulation, got %d", src.Calls("BTC-USD"))
	}
	small := body["sizes"].([]any)[0].(map[string]any)
	buy := small["buy"].(map[string]any)
	if small["size_usd"] != float64(150) || buy["levels_crossed"] != float64(2) || buy["worst_price"] != float64(101) {
		t.Fatalf("unexpected fresh walk: %v", small)
	}

	if status, _ := do(t, app, http.MethodGet, "/v1/slippage/NOPE-USD"); status != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown pair in approx mode, got %d", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/v1/slippage/NOPE-USD?mode=fresh"); status != http.StatusBadGateway {
		t.Fatalf("expected 502 when no snapshot succeeds, got %d", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/v1/slippage/BTC-USD?mode=walk"); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown mode, got %d", status)
	}
}

func TestRefresh(t *testing.T) {
	refresher := &stubRefresher{accept: true}
	app, _ := newTestApp(t, exchangetest.NewSource(), refresher)

	if status, _ := do(t, app, http.MethodPost, "/v1/refresh"); status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}

	refresher.accept = false
	if status, _ := do(t, app, http.MethodPost, "/v1/refresh"); status != http.StatusConflict {
		t.Fatalf("expected 409 while running, got %d", status)
	}
	if refresher.calls != 2 {
		t.Fatalf("expected 2 trigger calls, got %d", refresher.calls)
	}
}
