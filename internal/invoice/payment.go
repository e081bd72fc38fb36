package invoice

import (
	"errors"
	"net/url"

	"github.com/mr-tron/base58"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/blake2b"

	"github.com/tpc-global/tpc_portal/internal/money"
)

const (
	paymentLabel = "TPC Global"
	qrSize       = 320
)

// ErrNoPaymentQR is returned for invoices paid off-chain or when no treasury
// wallet is configured.
var ErrNoPaymentQR = errors.New("invoice has no on-chain payment request")

// PaymentTarget is where on-chain payments go.
type PaymentTarget struct {
	Treasury string
	USDCMint string
}

// Reference derives the Solana Pay reference key for an invoice. It is
// stable per invoice id so watchers can match transfers to invoices.
func Reference(invoiceID string) string {
	sum := blake2b.Sum256([]byte("tpc-invoice:" + invoiceID))
	return base58.Encode(sum[:])
}

// PaymentURI renders the Solana Pay transfer request for inv.
func PaymentURI(inv Invoice, target PaymentTarget) (string, error) {
	if target.Treasury == "" {
		return "", ErrNoPaymentQR
	}
	q := url.Values{}
	switch inv.BaseCurrency {
	case money.SOL:
	case money.USDC:
		if target.USDCMint == "" {
			return "", ErrNoPaymentQR
		}
		q.Set("spl-token", target.USDCMint)
	default:
		return "", ErrNoPaymentQR
	}
	q.Set("amount", inv.AmountInput.String())
	q.Set("reference", Reference(inv.ID))
	q.Set("label", paymentLabel)
	q.Set("memo", inv.InvoiceNo)
	return "solana:" + target.Treasury + "?" + q.Encode(), nil
}

// PaymentQR renders the payment URI as a PNG.
func PaymentQR(inv Invoice, target PaymentTarget) ([]byte, error) {
	uri, err := PaymentURI(inv, target)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(uri, qrcode.Medium, qrSize)
}
