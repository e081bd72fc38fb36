package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tpc-global/tpc_portal/internal/logging"
)

type stubSource struct {
	idr, sol       decimal.Decimal
	idrErr, solErr error
	calls          int
}

func (s *stubSource) FetchIDRPerUSD(context.Context) (decimal.Decimal, error) {
	s.calls++
	return s.idr, s.idrErr
}

func (s *stubSource) FetchSOLUSD(context.Context) (decimal.Decimal, error) {
	return s.sol, s.solErr
}

func testFallback() Fallback {
	return Fallback{IDRPerUSD: decimal.NewFromInt(17000), SOLUSD: decimal.NewFromInt(150)}
}

func TestHTTPSourceParsesBothEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v6/latest/USD", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1,"IDR":16250.5}}`))
	})
	mux.HandleFunc("/api/v3/simple/price", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"solana":{"usd":142.37}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/v6/latest/USD", srv.URL+"/api/v3/simple/price", srv.Client(), time.Millisecond)
	idr, err := src.FetchIDRPerUSD(context.Background())
	if err != nil {
		t.Fatalf("idr: %v", err)
	}
	if !idr.Equal(decimal.RequireFromString("16250.5")) {
		t.Fatalf("unexpected idr %s", idr)
	}
	sol, err := src.FetchSOLUSD(context.Background())
	if err != nil {
		t.Fatalf("sol: %v", err)
	}
	if !sol.Equal(decimal.RequireFromString("142.37")) {
		t.Fatalf("unexpected sol %s", sol)
	}
}

func TestHTTPSourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fiat" {
			w.Write([]byte(`{"result":"error","rates":{}}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/fiat", srv.URL+"/sol", srv.Client(), time.Millisecond)
	if _, err := src.FetchIDRPerUSD(context.Background()); err == nil {
		t.Fatal("expected fiat error")
	}
	if _, err := src.FetchSOLUSD(context.Background()); err == nil {
		t.Fatal("expected sol error")
	}
}

func TestProviderWithoutSourceUsesFallback(t *testing.T) {
	p := NewProvider(nil, nil, testFallback(), time.Minute, logging.Discard())
	snap := p.Current(context.Background())
	if snap.Source != OriginFallback {
		t.Fatalf("expected fallback, got %s", snap.Source)
	}
	if !snap.IDRPerUSD.Equal(decimal.NewFromInt(17000)) || !snap.SOLUSD.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected fallback rates %+v", snap)
	}
}

func TestProviderPartialFailureFallsBackPerField(t *testing.T) {
	src := &stubSource{idr: decimal.NewFromInt(16000), solErr: errors.New("down")}
	p := NewProvider(src, nil, testFallback(), time.Minute, logging.Discard())
	snap := p.Refresh(context.Background())
	if snap.Source != OriginLive {
		t.Fatalf("expected live, got %s", snap.Source)
	}
	if !snap.IDRPerUSD.Equal(decimal.NewFromInt(16000)) {
		t.Fatalf("expected live idr, got %s", snap.IDRPerUSD)
	}
	if !snap.SOLUSD.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected fallback sol, got %s", snap.SOLUSD)
	}
}

func TestProviderServesFromRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	src := &stubSource{idr: decimal.NewFromInt(16000), sol: decimal.NewFromInt(140)}
	p := NewProvider(src, cache, testFallback(), time.Minute, logging.Discard())
	ctx := context.Background()

	first := p.Current(ctx)
	if first.Source != OriginLive {
		t.Fatalf("expected live on first call, got %s", first.Source)
	}
	second := p.Current(ctx)
	if second.Source != OriginCache || src.calls != 1 {
		t.Fatalf("expected cached snapshot without refetch, got %s after %d calls", second.Source, src.calls)
	}
	if !second.SOLUSD.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("unexpected cached sol %s", second.SOLUSD)
	}
	if ttl := mr.TTL(cacheKey); ttl != 2*time.Minute {
		t.Fatalf("unexpected cache ttl %s", ttl)
	}
}

func TestProviderBacksOffAfterFailure(t *testing.T) {
	src := &stubSource{idrErr: errors.New("down"), solErr: errors.New("down")}
	p := NewProvider(src, nil, testFallback(), time.Minute, logging.Discard())
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if snap := p.Current(ctx); snap.Source != OriginFallback {
			t.Fatalf("call %d: expected fallback, got %s", i, snap.Source)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected a single fetch while backing off, got %d", src.calls)
	}

	now = now.Add(failureBackoff)
	src.idrErr, src.idr = nil, decimal.NewFromInt(16000)
	if snap := p.Current(ctx); snap.Source != OriginLive || src.calls != 2 {
		t.Fatalf("expected live after backoff, got %s after %d calls", snap.Source, src.calls)
	}
}

func TestCurrentDoesNotBlockOnThrottledSource(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/fiat", srv.URL+"/sol", srv.Client(), time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		src.FetchIDRPerUSD(ctx)
		src.FetchSOLUSD(ctx)
	}
	if n := hits.Load(); n != 4 {
		t.Fatalf("expected burst of 4 upstream hits, got %d", n)
	}
	if _, err := src.FetchIDRPerUSD(ctx); !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected throttled error, got %v", err)
	}

	p := NewProvider(src, nil, testFallback(), time.Hour, logging.Discard())
	start := time.Now()
	for i := 0; i < 3; i++ {
		if snap := p.Current(ctx); snap.Source != OriginFallback {
			t.Fatalf("expected fallback, got %s", snap.Source)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Current blocked for %s", elapsed)
	}
}
