package exchange

import (
	"context"
	"net/url"
	"strings"

	"github.com/suwandre/pairdepth/internal/models"
)

const DydxBaseURL = "https://indexer.dydx.trade/v4"

// DydxAdapter reads perpetual markets and order books from the dYdX v4 indexer.
type DydxAdapter struct {
	restClient
}

type dydxMarket struct {
	Ticker       string `json:"ticker"`
	Status       string `json:"status"`
	Volume24H    string `json:"volume24H"`
	OpenInterest string `json:"openInterest"`
	OraclePrice  string `json:"oraclePrice"`
}

type dydxLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

func NewDydxAdapter(opts Options) *DydxAdapter {
	return &DydxAdapter{restClient: newRestClient("dydx", DydxBaseURL, opts)}
}

func (d *DydxAdapter) Name() string {
	return "dydx"
}

func (d *DydxAdapter) Majors() []string {
	return []string{"BTC-USD", "ETH-USD"}
}

// Fetches every perpetual market with its 24h volume and open interest.
func (d *DydxAdapter) ListMarkets(ctx context.Context) (map[string]models.MarketInfo, error) {
	var raw struct {
		Markets map[string]dydxMarket `json:"markets"`
	}
	if err := d.getJSON(ctx, "markets", d.url("/perpetualMarkets"), &raw); err != nil {
		return nil, err
	}

	markets := make(map[string]models.MarketInfo, len(raw.Markets))
	for id, m := range raw.Markets {
		ticker := m.Ticker
		if ticker == "" {
			ticker = id
		}
		markets[id] = models.MarketInfo{
			Ticker:       ticker,
			Status:       strings.ToUpper(m.Status),
			Volume24H:    parseNumber(m.Volume24H),
			OpenInterest: parseNumber(m.OpenInterest),
			OraclePrice:  parseNumber(m.OraclePrice),
		}
	}
	return markets, nil
}

// Fetches the full order book for one market.
func (d *DydxAdapter) GetOrderBook(ctx context.Context, pair string) (*models.OrderBook, error) {
	endpoint := d.url("/orderbooks/perpetualMarket/" + url.PathEscape(pair))

	var raw struct {
		Bids []dydxLevel `json:"bids"`
		Asks []dydxLevel `json:"asks"`
	}
	if err := d.getJSON(ctx, "orderbook", endpoint, &raw); err != nil {
		return nil, err
	}

	return &models.OrderBook{
		Pair: pair,
		Bids: parseDydxLevels(raw.Bids),
		Asks: parseDydxLevels(raw.Asks),
	}, nil
}

func parseDydxLevels(raw []dydxLevel) []models.PriceLevel {
	levels := make([]models.PriceLevel, 0, len(raw))
	for _, r := range raw {
		if lvl, ok := parseLevel(r.Price, r.Size); ok {
			levels = append(levels, lvl)
		}
	}
	return levels
}

var _ Source = (*DydxAdapter)(nil)
