package exchange

import (
	"context"
	"fmt"
	"net/url"

	"github.com/suwandre/pairdepth/internal/models"
)

const BinanceBaseURL = "https://fapi.binance.com"

// binanceDepthLimit is the deepest book the futures REST API serves.
const binanceDepthLimit = 1000

// BinanceAdapter reads USDⓈ-M perpetual futures from Binance.
type BinanceAdapter struct {
	restClient
}

// Constructor function. Creates a new BinanceAdapter instance.
func NewBinanceAdapter(opts Options) *BinanceAdapter {
	return &BinanceAdapter{restClient: newRestClient("binance", BinanceBaseURL, opts)}
}

func (b *BinanceAdapter) Name() string {
	return "binance"
}

func (b *BinanceAdapter) Majors() []string {
	return []string{"BTCUSDT", "ETHUSDT"}
}

// Lists markets from the 24h ticker. Quote volume is already in USDT.
// Open interest needs one call per symbol, so it is left at zero here.
func (b *BinanceAdapter) ListMarkets(ctx context.Context) (map[string]models.MarketInfo, error) {
	var raw []struct {
		Symbol      string `json:"symbol"`
		QuoteVolume string `json:"quoteVolume"`
		LastPrice   string `json:"lastPrice"`
	}
	if err := b.getJSON(ctx, "markets", b.url("/fapi/v1/ticker/24hr"), &raw); err != nil {
		return nil, err
	}

	markets := make(map[string]models.MarketInfo, len(raw))
	for _, t := range raw {
		markets[t.Symbol] = models.MarketInfo{
			Ticker:      t.Symbol,
			Status:      "TRADING",
			Volume24H:   parseNumber(t.QuoteVolume),
			OraclePrice: parseNumber(t.LastPrice),
		}
	}
	return markets, nil
}

// Fetches up to 1000 levels per side.
func (b *BinanceAdapter) GetOrderBook(ctx context.Context, pair string) (*models.OrderBook, error) {
	endpoint := fmt.Sprintf("%s?symbol=%s&limit=%d", b.url("/fapi/v1/depth"), url.QueryEscape(pair), binanceDepthLimit)

	var raw struct {
		Bids [][]string `json:"bids"` // each entry: ["price", "quantity"]
		Asks [][]string `json:"asks"`
	}
	if err := b.getJSON(ctx, "orderbook", endpoint, &raw); err != nil {
		return nil, err
	}

	return &models.OrderBook{
		Pair: pair,
		Bids: parsePairs(raw.Bids),
		Asks: parsePairs(raw.Asks),
	}, nil
}

var _ Source = (*BinanceAdapter)(nil)
