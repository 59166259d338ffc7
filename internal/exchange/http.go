package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/suwandre/pairdepth/internal/models"
)

// ErrUnexpectedStatus is wrapped by every non-2xx response error.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Options shared by all REST adapters.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond caps outbound requests. Zero disables the limit.
	RequestsPerSecond float64
}

// restClient is the plumbing every adapter embeds: one http.Client, an
// optional limiter, and JSON decoding.
type restClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newRestClient(name, defaultBase string, opts Options) restClient {
	base := opts.BaseURL
	if base == "" {
		base = defaultBase
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return restClient{
		name:    name,
		baseURL: strings.TrimSuffix(base, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// url joins the base URL and a path, tolerating a missing leading slash.
func (c *restClient) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// getJSON performs a GET and decodes the body into out. op names the call
// in error messages, e.g. "orderbook".
func (c *restClient) getJSON(ctx context.Context, op, url string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: rate limiter: %w", c.name, op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s %s: failed to build request: %w", c.name, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", c.name, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w %d", c.name, op, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response body: %w", c.name, op, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: failed to parse response: %w", c.name, op, err)
	}
	return nil
}

// parseLevel turns a price/size string pair into a level. ok is false for
// anything unparsable, non-finite or negative.
func parseLevel(price, size string) (models.PriceLevel, bool) {
	p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil {
		return models.PriceLevel{}, false
	}
	s, err := strconv.ParseFloat(strings.TrimSpace(size), 64)
	if err != nil {
		return models.PriceLevel{}, false
	}

	lvl := models.PriceLevel{Price: p, Size: s}
	return lvl, lvl.Valid()
}

// parsePairs handles the common [["price","size", ...], ...] layout.
func parsePairs(raw [][]string) []models.PriceLevel {
	levels := make([]models.PriceLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		if lvl, ok := parseLevel(entry[0], entry[1]); ok {
			levels = append(levels, lvl)
		}
	}
	return levels
}

// parseNumber reads a numeric string field, treating blanks, garbage and
// non-finite values as 0.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
