// Package rates provides the IDR/USD and SOL/USD rates used to price orders.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tpc-global/tpc_portal/internal/money"
)

const (
	cacheKey = "rates:v1"
	// failureBackoff bounds how often request paths retry a dead source.
	failureBackoff = 30 * time.Second
)

// Origin records where a rate snapshot came from.
type Origin string

const (
	OriginLive     Origin = "live"
	OriginCache    Origin = "cache"
	OriginFallback Origin = "fallback"
)

// Snapshot is a set of rates with provenance.
type Snapshot struct {
	IDRPerUSD decimal.Decimal `json:"idr_per_usd"`
	SOLUSD    decimal.Decimal `json:"sol_usd"`
	Source    Origin          `json:"source"`
	AsOf      time.Time       `json:"as_of"`
}

// Money returns the conversion inputs.
func (s Snapshot) Money() money.Rates {
	return money.Rates{IDRPerUSD: s.IDRPerUSD, SOLUSD: s.SOLUSD}
}

// Fallback holds the configured rates used when live data is unavailable.
type Fallback struct {
	IDRPerUSD decimal.Decimal
	SOLUSD    decimal.Decimal
}

// Provider resolves rates from Redis, then the live source, then fallback.
type Provider struct {
	source   Source
	cache    *redis.Client
	fallback Fallback
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	last     *Snapshot
	failedAt time.Time
}

// NewProvider builds a provider. cache and source may be nil.
func NewProvider(source Source, cache *redis.Client, fallback Fallback, refresh time.Duration, logger *slog.Logger) *Provider {
	return &Provider{
		source:   source,
		cache:    cache,
		fallback: fallback,
		ttl:      2 * refresh,
		logger:   logger,
		now:      time.Now,
	}
}

// Current returns the freshest known rates and never fails: each missing
// field falls back to its configured value. After a failed fetch it serves
// the fallback without calling the source until failureBackoff passes.
func (p *Provider) Current(ctx context.Context) Snapshot {
	if snap, ok := p.cached(ctx); ok {
		return snap
	}
	if p.recentlyFailed() {
		return p.fallbackSnapshot()
	}
	return p.Refresh(ctx)
}

// Refresh fetches live rates, stores them, and returns the merged snapshot.
func (p *Provider) Refresh(ctx context.Context) Snapshot {
	snap := p.fallbackSnapshot()
	if p.source == nil {
		return snap
	}

	var live int
	if idr, err := p.source.FetchIDRPerUSD(ctx); err != nil {
		p.logger.Warn("idr rate unavailable, using fallback", slog.Any("error", err))
	} else {
		snap.IDRPerUSD = idr
		live++
	}
	if sol, err := p.source.FetchSOLUSD(ctx); err != nil {
		p.logger.Warn("sol price unavailable, using fallback", slog.Any("error", err))
	} else {
		snap.SOLUSD = sol
		live++
	}
	if live == 0 {
		p.mu.Lock()
		p.failedAt = p.now()
		p.mu.Unlock()
		return snap
	}
	snap.Source = OriginLive
	p.store(ctx, snap)
	return snap
}

func (p *Provider) fallbackSnapshot() Snapshot {
	return Snapshot{
		IDRPerUSD: p.fallback.IDRPerUSD,
		SOLUSD:    p.fallback.SOLUSD,
		Source:    OriginFallback,
		AsOf:      p.now().UTC(),
	}
}

func (p *Provider) recentlyFailed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.failedAt.IsZero() && p.now().Sub(p.failedAt) < failureBackoff
}

func (p *Provider) cached(ctx context.Context) (Snapshot, bool) {
	if p.cache != nil {
		raw, err := p.cache.Get(ctx, cacheKey).Bytes()
		switch {
		case err == nil:
			var snap Snapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				snap.Source = OriginCache
				return snap, true
			}
		case !errors.Is(err, redis.Nil):
			p.logger.Warn("rates cache read failed", slog.Any("error", err))
		}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last != nil && p.now().Sub(p.last.AsOf) < p.ttl {
		snap := *p.last
		snap.Source = OriginCache
		return snap, true
	}
	return Snapshot{}, false
}

func (p *Provider) store(ctx context.Context, snap Snapshot) {
	p.mu.Lock()
	p.last = &snap
	p.failedAt = time.Time{}
	p.mu.Unlock()
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, cacheKey, raw, p.ttl).Err(); err != nil {
		p.logger.Warn("rates cache write failed", slog.Any("error", err))
	}
}
