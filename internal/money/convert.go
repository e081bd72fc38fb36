package money

import (
	"github.com/shopspring/decimal"
)

const (
	usdScale = 8
	tpcScale = 4
)

// Rates carries the conversion inputs for non-USD currencies.
type Rates struct {
	IDRPerUSD decimal.Decimal `json:"idr_per_usd"`
	SOLUSD    decimal.Decimal `json:"sol_usd"`
}

// ToUSD converts an amount to USD: IDR divides by the FX rate, USDC is taken
// at par, SOL multiplies by the SOL/USD price. Missing rates yield zero.
func ToUSD(amount decimal.Decimal, c Currency, r Rates) decimal.Decimal {
	switch c {
	case IDR:
		if !r.IDRPerUSD.IsPositive() {
			return decimal.Zero
		}
		return amount.DivRound(r.IDRPerUSD, usdScale)
	case USDC:
		return amount
	case SOL:
		return amount.Mul(r.SOLUSD).Round(usdScale)
	}
	return decimal.Zero
}

// FromUSD is the inverse of ToUSD, rounded to the target currency precision.
func FromUSD(usd decimal.Decimal, c Currency, r Rates) decimal.Decimal {
	switch c {
	case IDR:
		return round(usd.Mul(r.IDRPerUSD), IDR)
	case USDC:
		return round(usd, USDC)
	case SOL:
		if !r.SOLUSD.IsPositive() {
			return decimal.Zero
		}
		return round(usd.DivRound(r.SOLUSD, usdScale), SOL)
	}
	return decimal.Zero
}

// Convert re-expresses amount in another currency, as when the buyer switches
// the currency selector with an amount already typed in.
func Convert(amount decimal.Decimal, from, to Currency, r Rates) decimal.Decimal {
	if from == to {
		return round(amount, to)
	}
	return FromUSD(ToUSD(amount, from, r), to, r)
}

// TPCFor returns the token amount bought with usd at the stage price,
// truncated to four decimals. A non-positive price yields zero.
func TPCFor(usd, stagePrice decimal.Decimal) decimal.Decimal {
	if !stagePrice.IsPositive() {
		return decimal.Zero
	}
	return usd.DivRound(stagePrice, usdScale).Truncate(tpcScale)
}

// Quote is the normalized state of the buy form for one input.
type Quote struct {
	Currency   Currency        `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	AmountText string          `json:"amount_text"`
	USD        decimal.Decimal `json:"usd"`
	TPC        decimal.Decimal `json:"tpc"`
	StagePrice decimal.Decimal `json:"stage_price"`
	Rates      Rates           `json:"rates"`
}

// NewQuote parses raw in currency c and prices it at the stage price.
func NewQuote(raw string, c Currency, r Rates, stagePrice decimal.Decimal) Quote {
	amount := Parse(raw, c)
	usd := ToUSD(amount, c, r)
	return Quote{
		Currency:   c,
		Amount:     amount,
		AmountText: Format(amount, c),
		USD:        usd,
		TPC:        TPCFor(usd, stagePrice),
		StagePrice: stagePrice,
		Rates:      r,
	}
}

// USDDisplay is the USD value rounded to cents.
func (q Quote) USDDisplay() decimal.Decimal {
	return q.USD.Round(2)
}
