// Package money normalizes user-entered purchase amounts and converts them
// between the supported payment currencies, USD and TPC.
package money

import (
	"errors"
	"strings"
)

// Currency is a payment currency accepted by the presale.
type Currency string

const (
	IDR  Currency = "IDR"
	USDC Currency = "USDC"
	SOL  Currency = "SOL"
)

// ErrUnsupportedCurrency is returned for currency tags outside IDR/USDC/SOL.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Currencies lists the accepted payment currencies in display order.
var Currencies = []Currency{IDR, USDC, SOL}

// ParseCurrency maps a case-insensitive tag to a Currency.
func ParseCurrency(tag string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(tag))) {
	case IDR:
		return IDR, nil
	case USDC:
		return USDC, nil
	case SOL:
		return SOL, nil
	}
	return "", ErrUnsupportedCurrency
}

// Decimals returns the number of fraction digits a currency allows.
func Decimals(c Currency) int32 {
	switch c {
	case IDR:
		return 0
	case SOL:
		return 4
	default:
		return 2
	}
}
