package invoice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tpc-global/tpc_portal/internal/rpc"
)

const invoiceTTL = 24 * time.Hour

// MemoryRepository keeps invoices in memory and enforces the same ownership
// and transition rules as the backend.
type MemoryRepository struct {
	mu       sync.RWMutex
	invoices map[string]Invoice
	seq      int
	now      func() time.Time
}

// NewMemoryRepository builds an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{invoices: make(map[string]Invoice), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, caller rpc.Identity, in CreateInput) (Invoice, error) {
	if caller.UserID == "" {
		return Invoice{}, rpc.ErrAuthRequired
	}
	if !in.Amount.IsPositive() {
		return Invoice{}, &rpc.DomainError{Kind: rpc.KindAmount, Message: "amount must be positive"}
	}
	if strings.TrimSpace(in.Wallet) == "" {
		return Invoice{}, &rpc.DomainError{Kind: rpc.KindWallet, Message: "wallet is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	now := r.now().UTC()
	inv := Invoice{
		ID:           uuid.NewString(),
		InvoiceNo:    fmt.Sprintf("TPC-%s-%06d", now.Format("20060102"), r.seq),
		UserID:       caller.UserID,
		Email:        caller.Email,
		ReferralCode: in.ReferralCode,
		BaseCurrency: in.Currency,
		AmountInput:  in.Amount,
		AmountUSD:    in.AmountUSD,
		TPCAmount:    in.TPCAmount,
		Status:       StatusUnpaid,
		WalletTPC:    strings.TrimSpace(in.Wallet),
		CreatedAt:    now,
		ExpiresAt:    now.Add(invoiceTTL),
	}
	r.invoices[inv.ID] = inv
	return inv, nil
}

func (r *MemoryRepository) Get(_ context.Context, caller rpc.Identity, id string) (Invoice, error) {
	if caller.UserID == "" {
		return Invoice{}, rpc.ErrAuthRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.load(id)
	if !ok || inv.UserID != caller.UserID {
		return Invoice{}, rpc.ErrNotFound
	}
	return inv, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, caller rpc.Identity) ([]Invoice, error) {
	if caller.UserID == "" {
		return nil, rpc.ErrAuthRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Invoice, 0)
	for id := range r.invoices {
		inv, _ := r.load(id)
		if inv.UserID == caller.UserID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) SubmitProof(_ context.Context, caller rpc.Identity, id, proofURL string) (Invoice, error) {
	if caller.UserID == "" {
		return Invoice{}, rpc.ErrAuthRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.load(id)
	if !ok || inv.UserID != caller.UserID {
		return Invoice{}, rpc.ErrNotFound
	}
	if inv.Status != StatusUnpaid {
		return Invoice{}, transitionError(inv.Status, StatusPendingReview)
	}
	inv.Status = StatusPendingReview
	inv.ProofURL = proofURL
	r.invoices[id] = inv
	return inv, nil
}

func (r *MemoryRepository) AdminGet(_ context.Context, caller rpc.Identity, id string) (Invoice, error) {
	if !caller.IsAdmin() {
		return Invoice{}, rpc.ErrAuthRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.load(id)
	if !ok {
		return Invoice{}, rpc.ErrNotFound
	}
	return inv, nil
}

func (r *MemoryRepository) AdminApprove(_ context.Context, caller rpc.Identity, id string) (Invoice, error) {
	return r.review(caller, id, func(inv *Invoice, at time.Time) {
		inv.Status = StatusPaid
	}, StatusPaid)
}

func (r *MemoryRepository) AdminReject(_ context.Context, caller rpc.Identity, id, reason string) (Invoice, error) {
	if strings.TrimSpace(reason) == "" {
		return Invoice{}, &rpc.DomainError{Kind: rpc.KindInvalid, Message: "reject reason is required"}
	}
	return r.review(caller, id, func(inv *Invoice, at time.Time) {
		inv.Status = StatusCancelled
		inv.RejectedReason = strings.TrimSpace(reason)
		inv.RejectedAt = &at
	}, StatusCancelled)
}

func (r *MemoryRepository) review(caller rpc.Identity, id string, apply func(*Invoice, time.Time), to Status) (Invoice, error) {
	if !caller.IsAdmin() {
		return Invoice{}, rpc.ErrAuthRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.load(id)
	if !ok {
		return Invoice{}, rpc.ErrNotFound
	}
	if inv.Status != StatusPendingReview {
		return Invoice{}, transitionError(inv.Status, to)
	}
	at := r.now().UTC()
	apply(&inv, at)
	inv.ReviewedBy = caller.UserID
	inv.ReviewedAt = &at
	r.invoices[id] = inv
	return inv, nil
}

// load applies time-based expiry. Callers hold the write lock.
func (r *MemoryRepository) load(id string) (Invoice, bool) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, false
	}
	if inv.Status == StatusUnpaid && !inv.ExpiresAt.IsZero() && r.now().After(inv.ExpiresAt) {
		inv.Status = StatusExpired
		r.invoices[id] = inv
	}
	return inv, true
}

func transitionError(from, to Status) error {
	return &rpc.DomainError{Kind: rpc.KindStatus, Message: fmt.Sprintf("invalid status transition %s -> %s", from, to)}
}
