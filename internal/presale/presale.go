// Package presale holds the stage schedule and pricing of the token sale.
package presale

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tpc-global/tpc_portal/internal/rpc"
)

const (
	stageConfigFn   = "get_presale_stage_config"
	defaultDuration = 30 * 24 * time.Hour
)

// Stage is one presale stage.
type Stage struct {
	Number   int             `json:"stage_number"`
	PriceUSD decimal.Decimal `json:"price_usd"`
	Supply   decimal.Decimal `json:"supply"`
	StartsAt time.Time       `json:"start_at"`
	EndsAt   time.Time       `json:"end_at"`
}

// Covers reports whether t falls within the stage window.
func (s Stage) Covers(t time.Time) bool {
	return !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}

// Config is the current sale configuration.
type Config struct {
	Stages      []Stage         `json:"stages"`
	MinOrderUSD decimal.Decimal `json:"min_order_usd"`
	MinOrderTPC decimal.Decimal `json:"min_order_tpc"`
}

// Active returns the stage covering now. Before the sale it is the first
// stage; between or after stages it is the latest stage already started, so
// the price never drops back once the schedule runs out.
func (c Config) Active(now time.Time) Stage {
	if len(c.Stages) == 0 {
		return Stage{}
	}
	active := c.Stages[0]
	for _, s := range c.Stages {
		if s.Covers(now) {
			return s
		}
		if !now.Before(s.StartsAt) && s.StartsAt.After(active.StartsAt) {
			active = s
		}
	}
	return active
}

// DefaultStages is the schedule used when the backend is unreachable.
func DefaultStages(start time.Time) []Stage {
	supply := decimal.NewFromInt(200_000_000)
	return []Stage{
		{Number: 1, PriceUSD: decimal.RequireFromString("0.001"), Supply: supply, StartsAt: start, EndsAt: start.Add(defaultDuration)},
		{Number: 2, PriceUSD: decimal.RequireFromString("0.002"), Supply: supply, StartsAt: start.Add(defaultDuration), EndsAt: start.Add(2 * defaultDuration)},
	}
}

// Service caches the sale configuration and refreshes it from the backend.
type Service struct {
	caller rpc.Caller
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current Config
}

// NewService builds a service seeded with the default schedule starting at
// launch. caller may be nil.
func NewService(caller rpc.Caller, launch time.Time, minUSD, minTPC decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{
		caller: caller,
		logger: logger,
		now:    time.Now,
		current: Config{
			Stages:      DefaultStages(launch.UTC()),
			MinOrderUSD: minUSD,
			MinOrderTPC: minTPC,
		},
	}
}

// Current returns the cached configuration.
func (s *Service) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ActiveStage returns the stage in effect now.
func (s *Service) ActiveStage() Stage {
	return s.Current().Active(s.now())
}

// Refresh reloads the stage schedule. On failure the previous schedule is
// kept.
func (s *Service) Refresh(ctx context.Context) Config {
	if s.caller == nil {
		return s.Current()
	}
	var stages []Stage
	if err := s.caller.CallList(ctx, rpc.Anonymous(), stageConfigFn, nil, &stages); err != nil {
		s.logger.Warn("presale config unavailable, keeping previous", slog.Any("error", err))
		return s.Current()
	}
	stages = usable(stages)
	if len(stages) == 0 {
		s.logger.Warn("presale config empty, keeping previous")
		return s.Current()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Stages = stages
	return s.current
}

func usable(stages []Stage) []Stage {
	out := stages[:0]
	for _, st := range stages {
		if st.PriceUSD.IsPositive() && st.EndsAt.After(st.StartsAt) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
