package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tpc-global/tpc_portal/internal/money"
)

// Status is the server-enforced invoice lifecycle state.
type Status string

const (
	StatusUnpaid        Status = "UNPAID"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusPaid          Status = "PAID"
	StatusCancelled     Status = "CANCELLED"
	StatusExpired       Status = "EXPIRED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Invoice is a buy order as returned by the backend.
type Invoice struct {
	ID             string          `json:"id"`
	InvoiceNo      string          `json:"invoice_no"`
	UserID         string          `json:"user_id"`
	Email          string          `json:"email"`
	ReferralCode   string          `json:"referral_code"`
	BaseCurrency   money.Currency  `json:"base_currency"`
	AmountInput    decimal.Decimal `json:"amount_input"`
	AmountUSD      decimal.Decimal `json:"amount_usd"`
	TPCAmount      decimal.Decimal `json:"tpc_amount"`
	Status         Status          `json:"status"`
	WalletTPC      string          `json:"wallet_tpc"`
	ProofURL       string          `json:"proof_url,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	ReviewedBy     string          `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	RejectedReason string          `json:"rejected_reason,omitempty"`
	RejectedAt     *time.Time      `json:"rejected_at,omitempty"`
}

// CreateInput is a validated order ready for create_invoice_locked.
type CreateInput struct {
	Currency     money.Currency
	Amount       decimal.Decimal
	Wallet       string
	ReferralCode string

	// Quoted values; the backend reprices with its locked stage price.
	AmountUSD decimal.Decimal
	TPCAmount decimal.Decimal
}
