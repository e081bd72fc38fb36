package invoice

import (
	"context"
	"strings"

	"github.com/tpc-global/tpc_portal/internal/money"
	"github.com/tpc-global/tpc_portal/internal/rpc"
)

const (
	fnCreate      = "create_invoice_locked"
	fnSubmitProof = "submit_invoice_proof"
	fnMemberGet   = "member_get_invoice"
	fnMemberList  = "member_list_invoices"
	fnAdminGet    = "admin_get_invoice_by_id"
	fnApprove     = "admin_approve_invoice"
	fnReject      = "admin_reject_invoice"
)

// Repository reads and mutates invoices on behalf of a caller. Every
// mutation returns the row as the backend stored it.
type Repository interface {
	Create(ctx context.Context, caller rpc.Identity, in CreateInput) (Invoice, error)
	Get(ctx context.Context, caller rpc.Identity, id string) (Invoice, error)
	ListByUser(ctx context.Context, caller rpc.Identity) ([]Invoice, error)
	SubmitProof(ctx context.Context, caller rpc.Identity, id, proofURL string) (Invoice, error)
	AdminGet(ctx context.Context, caller rpc.Identity, id string) (Invoice, error)
	AdminApprove(ctx context.Context, caller rpc.Identity, id string) (Invoice, error)
	AdminReject(ctx context.Context, caller rpc.Identity, id, reason string) (Invoice, error)
}

// PostgresRepository goes through the backend's remote procedures only.
type PostgresRepository struct {
	rpc rpc.Caller
}

// NewPostgresRepository builds a procedure-backed repository.
func NewPostgresRepository(caller rpc.Caller) *PostgresRepository {
	return &PostgresRepository{rpc: caller}
}

func (r *PostgresRepository) Create(ctx context.Context, caller rpc.Identity, in CreateInput) (Invoice, error) {
	var inv Invoice
	err := r.rpc.Call(ctx, caller, fnCreate, rpc.Args{
		"p_base_currency": string(in.Currency),
		"p_amount_input":  money.Format(in.Amount, in.Currency),
		"p_wallet_tpc":    strings.TrimSpace(in.Wallet),
		"p_referral_code": in.ReferralCode,
	}, &inv)
	return inv, err
}

func (r *PostgresRepository) Get(ctx context.Context, caller rpc.Identity, id string) (Invoice, error) {
	var inv Invoice
	err := r.rpc.Call(ctx, caller, fnMemberGet, rpc.Args{"p_invoice_id": id}, &inv)
	return inv, err
}

func (r *PostgresRepository) ListByUser(ctx context.Context, caller rpc.Identity) ([]Invoice, error) {
	var out []Invoice
	if err := r.rpc.CallList(ctx, caller, fnMemberList, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) SubmitProof(ctx context.Context, caller rpc.Identity, id, proofURL string) (Invoice, error) {
	var inv Invoice
	err := r.rpc.Call(ctx, caller, fnSubmitProof, rpc.Args{"p_invoice_id": id, "p_proof_url": proofURL}, &inv)
	return inv, err
}

func (r *PostgresRepository) AdminGet(ctx context.Context, caller rpc.Identity, id string) (Invoice, error) {
	var inv Invoice
	err := r.rpc.Call(ctx, caller, fnAdminGet, rpc.Args{"p_invoice_id": id}, &inv)
	return inv, err
}

func (r *PostgresRepository) AdminApprove(ctx context.Context, caller rpc.Identity, id string) (Invoice, error) {
	var inv Invoice
	err := r.rpc.Call(ctx, caller, fnApprove, rpc.Args{"p_invoice_id": id}, &inv)
	return inv, err
}

func (r *PostgresRepository) AdminReject(ctx context.Context, caller rpc.Identity, id, reason string) (Invoice, error) {
	var inv Invoice
	err := r.rpc.Call(ctx, caller, fnReject, rpc.Args{"p_invoice_id": id, "p_reason": reason}, &inv)
	return inv, err
}
