package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// ErrThrottled is returned instead of waiting when the request budget is spent.
var ErrThrottled = errors.New("rates request throttled")

// Source fetches live market rates.
type Source interface {
	FetchIDRPerUSD(ctx context.Context) (decimal.Decimal, error)
	FetchSOLUSD(ctx context.Context) (decimal.Decimal, error)
}

// HTTPSource reads an open.er-api style fiat endpoint and a coingecko style
// simple price endpoint. Requests over budget fail with ErrThrottled rather
// than blocking the caller.
type HTTPSource struct {
	fiatURL string
	solURL  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource builds a source allowing one refresh (two requests) every
// interval, with a burst of two refreshes.
func NewHTTPSource(fiatURL, solURL string, client *http.Client, interval time.Duration) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HTTPSource{
		fiatURL: fiatURL,
		solURL:  solURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(interval/2), 4),
	}
}

type fiatResponse struct {
	Result string                     `json:"result"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

// FetchIDRPerUSD returns how many rupiah one US dollar buys.
func (s *HTTPSource) FetchIDRPerUSD(ctx context.Context) (decimal.Decimal, error) {
	var body fiatResponse
	if err := s.getJSON(ctx, s.fiatURL, &body); err != nil {
		return decimal.Zero, err
	}
	if body.Result != "" && body.Result != "success" {
		return decimal.Zero, fmt.Errorf("fiat rates: result %q", body.Result)
	}
	idr, ok := body.Rates["IDR"]
	if !ok || !idr.IsPositive() {
		return decimal.Zero, fmt.Errorf("fiat rates: missing IDR")
	}
	return idr, nil
}

type simplePriceResponse map[string]map[string]decimal.Decimal

// FetchSOLUSD returns the SOL price in USD.
func (s *HTTPSource) FetchSOLUSD(ctx context.Context) (decimal.Decimal, error) {
	var body simplePriceResponse
	if err := s.getJSON(ctx, s.solURL, &body); err != nil {
		return decimal.Zero, err
	}
	usd, ok := body["solana"]["usd"]
	if !ok || !usd.IsPositive() {
		return decimal.Zero, fmt.Errorf("sol price: missing solana.usd")
	}
	return usd, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, url string, dest any) error {
	if !s.limiter.Allow() {
		return fmt.Errorf("get %s: %w", url, ErrThrottled)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
