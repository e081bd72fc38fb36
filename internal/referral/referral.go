// Package referral resolves the sponsor code attached to a new order.
package referral

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tpc-global/tpc_portal/internal/rpc"
)

const randomCodeFn = "get_random_referral_code"

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// Source records which step produced a sponsor code.
type Source string

const (
	SourceURL      Source = "url"
	SourcePending  Source = "pending"
	SourceAssigned Source = "assigned"
	SourceFallback Source = "fallback"
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Code   string `json:"code"`
	Source Source `json:"source"`
}

// Normalize trims and upper-cases code and reports whether it is usable.
func Normalize(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return "", false
	}
	return code, true
}

// Resolver walks URL code, pending code, remote assignment and fallback.
type Resolver struct {
	store    Store
	caller   rpc.Caller
	fallback string
	logger   *slog.Logger
}

// NewResolver builds a resolver. caller may be nil, in which case no remote
// assignment is attempted.
func NewResolver(store Store, caller rpc.Caller, fallback string, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, caller: caller, fallback: fallback, logger: logger}
}

// Resolve returns the sponsor code for clientID. It never fails; storage
// and backend errors degrade to the next step.
func (r *Resolver) Resolve(ctx context.Context, clientID, urlCode string) Resolution {
	if code, ok := Normalize(urlCode); ok {
		r.remember(ctx, clientID, code)
		return Resolution{Code: code, Source: SourceURL}
	}

	if clientID != "" {
		pending, err := r.store.Pending(ctx, clientID)
		if err != nil {
			r.logger.Warn("pending sponsor lookup failed", slog.String("client_id", clientID), slog.Any("error", err))
		} else if code, ok := Normalize(pending); ok {
			return Resolution{Code: code, Source: SourcePending}
		}
	}

	if r.caller != nil {
		assigned, err := r.caller.CallScalar(ctx, rpc.Anonymous(), randomCodeFn, nil)
		if err != nil {
			r.logger.Warn("sponsor assignment failed", slog.Any("error", err))
		} else if code, ok := Normalize(assigned); ok {
			r.remember(ctx, clientID, code)
			return Resolution{Code: code, Source: SourceAssigned}
		}
	}

	return Resolution{Code: r.fallback, Source: SourceFallback}
}

func (r *Resolver) remember(ctx context.Context, clientID, code string) {
	if clientID == "" {
		return
	}
	if err := r.store.Remember(ctx, clientID, code); err != nil {
		r.logger.Warn("pending sponsor write failed", slog.String("client_id", clientID), slog.Any("error", err))
	}
}
