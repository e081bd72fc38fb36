package withdrawal

import (
	"context"

	"github.com/tpc-global/tpc_portal/internal/rpc"
)

const (
	fnMemberList = "member_list_withdrawals"
	fnAdminList  = "admin_list_withdrawals"
	fnApprove    = "admin_approve_withdrawal"
	fnReject     = "admin_reject_withdrawal"
	fnAuditLogs  = "admin_get_withdrawal_audit_logs"
)

// Repository reads and reviews withdrawals on behalf of a caller.
type Repository interface {
	ListByUser(ctx context.Context, caller rpc.Identity) ([]Withdrawal, error)
	AdminList(ctx context.Context, caller rpc.Identity, status Status) ([]Withdrawal, error)
	AdminApprove(ctx context.Context, caller rpc.Identity, id, txHash string) (Withdrawal, error)
	AdminReject(ctx context.Context, caller rpc.Identity, id, reason string) (Withdrawal, error)
	AuditLogs(ctx context.Context, caller rpc.Identity, id string) ([]AuditLog, error)
}

// PostgresRepository goes through the backend's remote procedures.
type PostgresRepository struct {
	rpc rpc.Caller
}

// NewPostgresRepository builds a procedure-backed repository.
func NewPostgresRepository(caller rpc.Caller) *PostgresRepository {
	return &PostgresRepository{rpc: caller}
}

func (r *PostgresRepository) ListByUser(ctx context.Context, caller rpc.Identity) ([]Withdrawal, error) {
	var out []Withdrawal
	if err := r.rpc.CallList(ctx, caller, fnMemberList, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminList lists withdrawals, filtered by status when status is non-empty.
func (r *PostgresRepository) AdminList(ctx context.Context, caller rpc.Identity, status Status) ([]Withdrawal, error) {
	var filter any
	if status != "" {
		filter = string(status)
	}
	var out []Withdrawal
	if err := r.rpc.CallList(ctx, caller, fnAdminList, rpc.Args{"p_status": filter}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) AdminApprove(ctx context.Context, caller rpc.Identity, id, txHash string) (Withdrawal, error) {
	var w Withdrawal
	err := r.rpc.Call(ctx, caller, fnApprove, rpc.Args{"p_withdrawal_id": id, "p_tx_hash": txHash}, &w)
	return w, err
}

func (r *PostgresRepository) AdminReject(ctx context.Context, caller rpc.Identity, id, reason string) (Withdrawal, error) {
	var w Withdrawal
	err := r.rpc.Call(ctx, caller, fnReject, rpc.Args{"p_withdrawal_id": id, "p_reason": reason}, &w)
	return w, err
}

func (r *PostgresRepository) AuditLogs(ctx context.Context, caller rpc.Identity, id string) ([]AuditLog, error) {
	var out []AuditLog
	if err := r.rpc.CallList(ctx, caller, fnAuditLogs, rpc.Args{"p_withdrawal_id": id}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
