package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/suwandre/pairdepth/internal/models"
)

// Source is a read-only market data provider. Implementations must validate
// price levels at the boundary: invalid levels are dropped, never returned.
type Source interface {
	// ListMarkets returns every market keyed by its id.
	ListMarkets(ctx context.Context) (map[string]models.MarketInfo, error)
	// GetOrderBook fetches one full snapshot for a market.
	GetOrderBook(ctx context.Context, pair string) (*models.OrderBook, error)
	// Majors lists the market ids that always belong to the first group.
	Majors() []string
	Name() string
}

// New builds the adapter registered under name.
func New(name string, opts Options) (Source, error) {
	switch strings.ToLower(name) {
	case "", "dydx":
		return NewDydxAdapter(opts), nil
	case "binance":
		return NewBinanceAdapter(opts), nil
	case "bybit":
		return NewBybitAdapter(opts), nil
	default:
		return nil, fmt.Errorf("unknown exchange %q", name)
	}
}
