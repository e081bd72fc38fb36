package withdrawal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the server-enforced withdrawal state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Withdrawal is a request to pay out TPC to an external wallet.
type Withdrawal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	AmountTPC     decimal.Decimal `json:"amount_tpc"`
	WalletAddress string          `json:"wallet_address"`
	Status        Status          `json:"status"`
	RequestedAt   time.Time       `json:"requested_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	TxHash        string          `json:"tx_hash,omitempty"`
	RejectReason  string          `json:"reject_reason,omitempty"`
}

// AuditLog records an admin action on a withdrawal.
type AuditLog struct {
	ID           string    `json:"id"`
	WithdrawalID string    `json:"withdrawal_id"`
	Action       string    `json:"action"`
	ActorID      string    `json:"actor_id"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
