package exchange

import (
	"context"
	"fmt"
	"net/url"

	"github.com/suwandre/pairdepth/internal/models"
)

const BybitBaseURL = "https://api.bybit.com"

const bybitDepthLimit = 500

type BybitAdapter struct {
	restClient
}

type bybitTicker struct {
	Symbol       string `json:"symbol"`
	Turnover24h  string `json:"turnover24h"`
	OpenInterest string `json:"openInterest"`
	MarkPrice    string `json:"markPrice"`
}

func NewBybitAdapter(opts Options) *BybitAdapter {
	return &BybitAdapter{restClient: newRestClient("bybit", BybitBaseURL, opts)}
}

func (b *BybitAdapter) Name() string {
	return "bybit"
}

func (b *BybitAdapter) Majors() []string {
	return []string{"BTCUSDT", "ETHUSDT"}
}

func (b *BybitAdapter) ListMarkets(ctx context.Context) (map[string]models.MarketInfo, error) {
	var raw struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []bybitTicker `json:"list"`
		} `json:"result"`
	}
	if err := b.getJSON(ctx, "markets", b.url("/v5/market/tickers?category=linear"), &raw); err != nil {
		return nil, err
	}
	if raw.RetCode != 0 {
		return nil, fmt.Errorf("bybit API error %d: %s", raw.RetCode, raw.RetMsg)
	}

	markets := make(map[string]models.MarketInfo, len(raw.Result.List))
	for _, t := range raw.Result.List {
		markets[t.Symbol] = models.MarketInfo{
			Ticker:       t.Symbol,
			Status:       "TRADING",
			Volume24H:    parseNumber(t.Turnover24h),
			OpenInterest: parseNumber(t.OpenInterest),
			OraclePrice:  parseNumber(t.MarkPrice),
		}
	}
	return markets, nil
}

func (b *BybitAdapter) GetOrderBook(ctx context.Context, pair string) (*models.OrderBook, error) {
	endpoint := fmt.Sprintf(
		"%s?category=linear&symbol=%s&limit=%d",
		b.url("/v5/market/orderbook"), url.QueryEscape(pair), bybitDepthLimit,
	)

	var raw struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			Bids [][]string `json:"b"`
			Asks [][]string `json:"a"`
		} `json:"result"`
	}
	if err := b.getJSON(ctx, "orderbook", endpoint, &raw); err != nil {
		return nil, err
	}
	if raw.RetCode != 0 {
		return nil, fmt.Errorf("bybit API error %d: %s", raw.RetCode, raw.RetMsg)
	}

	return &models.OrderBook{
		Pair: pair,
		Bids: parsePairs(raw.Result.Bids),
		Asks: parsePairs(raw.Result.Asks),
	}, nil
}

var _ Source = (*BybitAdapter)(nil)
