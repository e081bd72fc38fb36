// Package order validates the buy form before an invoice may be created.
package order

import (
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/money"
)

// Code identifies a failing check.
type Code string

const (
	CodeTerms  Code = "terms"
	CodeAmount Code = "amount"
	CodeWallet Code = "wallet"
	CodeMinUSD Code = "min_usd"
	CodeMinTPC Code = "min_tpc"
)

const (
	minWalletLength = 32
	maxWalletLength = 44
	pubKeyLength    = 32
)

// Form is the buyer-controlled state of the buy form.
type Form struct {
	TermsAgreed bool           `json:"terms_agreed"`
	Currency    money.Currency `json:"currency"`
	Amount      string         `json:"amount"`
	Wallet      string         `json:"wallet"`
	SponsorCode string         `json:"sponsor_code,omitempty"`
}

// Limits are the configured minimum order thresholds.
type Limits struct {
	MinUSD decimal.Decimal
	MinTPC decimal.Decimal
}

// Reason is one failing check with its localized message.
type Reason struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of Validate. OK is true iff Reasons is empty.
type Result struct {
	OK      bool     `json:"ok"`
	Reasons []Reason `json:"reasons"`
}

// Messages returns the reason messages in check order.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		out = append(out, reason.Message)
	}
	return out
}

// First is the reason surfaced inline next to the submit button.
func (r Result) First() string {
	if len(r.Reasons) == 0 {
		return ""
	}
	return r.Reasons[0].Message
}

// Has reports whether the given check failed.
func (r Result) Has(code Code) bool {
	for _, reason := range r.Reasons {
		if reason.Code == code {
			return true
		}
	}
	return false
}

// Validate runs every check in order and accumulates one reason per failing
// check: terms, amount, wallet, minimum USD, minimum TPC. It has no side effects.
func Validate(form Form, quote money.Quote, limits Limits, msgs i18n.ReasonsCopy) Result {
	reasons := make([]Reason, 0, 5)

	if !form.TermsAgreed {
		reasons = append(reasons, Reason{Code: CodeTerms, Message: msgs.Terms})
	}
	if !quote.Amount.IsPositive() {
		reasons = append(reasons, Reason{Code: CodeAmount, Message: msgs.Amount})
	}
	switch CheckWallet(form.Wallet) {
	case WalletMissing:
		reasons = append(reasons, Reason{Code: CodeWallet, Message: msgs.WalletRequired})
	case WalletTooShort:
		reasons = append(reasons, Reason{Code: CodeWallet, Message: msgs.WalletShort})
	case WalletMalformed:
		reasons = append(reasons, Reason{Code: CodeWallet, Message: msgs.WalletInvalid})
	}
	if quote.USD.LessThan(limits.MinUSD) {
		reasons = append(reasons, Reason{Code: CodeMinUSD, Message: i18n.Fill(msgs.MinUSD, limits.MinUSD.String())})
	}
	if quote.TPC.LessThan(limits.MinTPC) {
		reasons = append(reasons, Reason{Code: CodeMinTPC, Message: i18n.Fill(msgs.MinTPC, limits.MinTPC.String())})
	}

	return Result{OK: len(reasons) == 0, Reasons: reasons}
}

// WalletProblem classifies a wallet address.
type WalletProblem int

const (
	WalletOK WalletProblem = iota
	WalletMissing
	WalletTooShort
	WalletMalformed
)

// CheckWallet applies the Solana address shape check: non-empty, at least 32
// characters, base58 decoding to a 32-byte public key.
func CheckWallet(addr string) WalletProblem {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return WalletMissing
	case len(addr) < minWalletLength:
		return WalletTooShort
	case len(addr) > maxWalletLength:
		return WalletMalformed
	}
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != pubKeyLength {
		return WalletMalformed
	}
	return WalletOK
}

// ValidWallet reports whether addr passes CheckWallet.
func ValidWallet(addr string) bool {
	return CheckWallet(addr) == WalletOK
}

// ValidationError carries a failed Result through error returns.
type ValidationError struct {
	Result Result
}

func (e *ValidationError) Error() string {
	return "order invalid: " + e.Result.First()
}
