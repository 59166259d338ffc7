// Package exchangetest provides an in-memory exchange.Source for tests.
package exchangetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/suwandre/pairdepth/internal/exchange"
	"github.com/suwandre/pairdepth/internal/models"
)

// ErrScripted is returned for scripted fetch failures.
var ErrScripted = errors.New("scripted fetch failure")

// Step is one scripted response: either a book or an error.
type Step struct {
	Book *models.OrderBook
	Err  error
}

// Source replays scripted order books per pair. When a pair's script is
// exhausted the last step repeats. Safe for concurrent use.
type Source struct {
	mu          sync.Mutex
	markets     map[string]models.MarketInfo
	marketsErr  error
	scripts     map[string][]Step
	calls       map[string]int
	marketCalls int
	majors      []string
}

func NewSource() *Source {
	return &Source{
		markets: make(map[string]models.MarketInfo),
		scripts: make(map[string][]Step),
		calls:   make(map[string]int),
		majors:  []string{"BTC-USD", "ETH-USD"},
	}
}

func (s *Source) SetMarket(id string, info models.MarketInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info.Ticker == "" {
		info.Ticker = id
	}
	s.markets[id] = info
}

func (s *Source) FailMarkets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marketsErr = err
}

// Script sets the responses returned for pair, in order.
func (s *Source) Script(pair string, steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[pair] = steps
}

// Always makes every fetch for pair return book.
func (s *Source) Always(pair string, book *models.OrderBook) {
	s.Script(pair, Step{Book: book})
}

// Calls reports how many order books were requested for pair.
func (s *Source) Calls(pair string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pair]
}

// TotalCalls reports order book requests across all pairs.
func (s *Source) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Source) MarketCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marketCalls
}

func (s *Source) ListMarkets(ctx context.Context) (map[string]models.MarketInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marketCalls++
	if s.marketsErr != nil {
		return nil, s.marketsErr
	}
	out := make(map[string]models.MarketInfo, len(s.markets))
	for k, v := range s.markets {
		out[k] = v
	}
	return out, nil
}

func (s *Source) GetOrderBook(ctx context.Context, pair string) (*models.OrderBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls[pair]
	s.calls[pair]++

	script, ok := s.scripts[pair]
	if !ok || len(script) == 0 {
		return nil, fmt.Errorf("%s: %w", pair, ErrScripted)
	}
	if idx >= len(script) {
		idx = len(script) - 1
	}

	step := script[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	book := *step.Book
	book.Pair = pair
	return &book, nil
}

func (s *Source) Majors() []string {
	return s.majors
}

func (s *Source) Name() string {
	return "fake"
}

var _ exchange.Source = (*Source)(nil)

// Book builds an order book from alternating price, size pairs per side.
func Book(bids, asks [][2]float64) *models.OrderBook {
	book := &models.OrderBook{}
	for _, b := range bids {
		book.Bids = append(book.Bids, models.PriceLevel{Price: b[0], Size: b[1]})
	}
	for _, a := range asks {
		book.Asks = append(book.Asks, models.PriceLevel{Price: a[0], Size: a[1]})
	}
	return book
}
