package withdrawal

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

// MemoryRepository keeps withdrawals in memory with backend-equivalent rules.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Withdrawal
	logs  map[string][]AuditLog
	now   func() time.Time
}

// NewMemoryRepository builds an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]Withdrawal),
		logs:  make(map[string][]AuditLog),
		now:   time.Now,
	}
}

// Seed stores w as-is, assigning an id and request time when missing.
func (r *MemoryRepository) Seed(w Withdrawal) Withdrawal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = StatusPending
	}
	if w.RequestedAt.IsZero() {
		w.RequestedAt = r.now().UTC()
	}
	r.items[w.ID] = w
	return w
}

func (r *MemoryRepository) ListByUser(_ context.Context, caller rpc.Identity) ([]Withdrawal, error) {
	if caller.UserID == "" {
		return nil, rpc.ErrAuthRequired
	}
	return r.filter(func(w Withdrawal) bool { return w.UserID == caller.UserID }), nil
}

func (r *MemoryRepository) AdminList(_ context.Context, caller rpc.Identity, status Status) ([]Withdrawal, error) {
	if !caller.IsAdmin() {
		return nil, rpc.ErrAuthRequired
	}
	return r.filter(func(w Withdrawal) bool { return status == "" || w.Status == status }), nil
}

func (r *MemoryRepository) AdminApprove(_ context.Context, caller rpc.Identity, id, txHash string) (Withdrawal, error) {
	return r.review(caller, id, StatusApproved, func(w *Withdrawal) {
		w.TxHash = strings.TrimSpace(txHash)
	}, txHash)
}

func (r *MemoryRepository) AdminReject(_ context.Context, caller rpc.Identity, id, reason string) (Withdrawal, error) {
	if strings.TrimSpace(reason) == "" {
		return Withdrawal{}, &rpc.DomainError{Kind: rpc.KindInvalid, Message: "reject reason is required"}
	}
	return r.review(caller, id, StatusRejected, func(w *Withdrawal) {
		w.RejectReason = strings.TrimSpace(reason)
	}, reason)
}

func (r *MemoryRepository) AuditLogs(_ context.Context, caller rpc.Identity, id string) ([]AuditLog, error) {
	if !caller.IsAdmin() {
		return nil, rpc.ErrAuthRequired
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.items[id]; !ok {
		return nil, rpc.ErrNotFound
	}
	return append([]AuditLog{}, r.logs[id]...), nil
}

func (r *MemoryRepository) review(caller rpc.Identity, id string, to Status, apply func(*Withdrawal), note string) (Withdrawal, error) {
	if !caller.IsAdmin() {
		return Withdrawal{}, rpc.ErrAuthRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id]
	if !ok {
		return Withdrawal{}, rpc.ErrNotFound
	}
	if w.Status != StatusPending {
		return Withdrawal{}, &rpc.DomainError{Kind: rpc.KindStatus, Message: fmt.Sprintf("invalid status transition %s -> %s", w.Status, to)}
	}
	at := r.now().UTC()
	w.Status = to
	w.ProcessedAt = &at
	apply(&w)
	r.items[id] = w
	r.logs[id] = append(r.logs[id], AuditLog{
		ID:           uuid.NewString(),
		WithdrawalID: id,
		Action:       strings.ToLower(string(to)),
		ActorID:      caller.UserID,
		Note:         strings.TrimSpace(note),
		CreatedAt:    at,
	})
	return w, nil
}

func (r *MemoryRepository) filter(keep func(Withdrawal) bool) []Withdrawal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Withdrawal, 0)
	for _, w := range r.items {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}
