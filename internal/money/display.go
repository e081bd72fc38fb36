package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatDisplay renders an amount for humans in the given locale, e.g.
// "Rp10.000.000" for Indonesian or "12.50 USDC" for English.
func FormatDisplay(tag language.Tag, d decimal.Decimal, c Currency) string {
	printer := message.NewPrinter(tag)
	scale := int(Decimals(c))
	formatted := printer.Sprint(number.Decimal(round(d, c).InexactFloat64(), number.Scale(scale)))
	if c == IDR {
		return "Rp" + formatted
	}
	return formatted + " " + string(c)
}

// FormatUSD renders a USD value with two decimals in the given locale.
func FormatUSD(tag language.Tag, usd decimal.Decimal) string {
	printer := message.NewPrinter(tag)
	return "$" + printer.Sprint(number.Decimal(usd.Round(2).InexactFloat64(), number.Scale(2)))
}

// FormatTPC renders a token amount, dropping the fraction for whole amounts.
func FormatTPC(tag language.Tag, tpc decimal.Decimal) string {
	printer := message.NewPrinter(tag)
	scale := 0
	if !tpc.Equal(tpc.Truncate(0)) {
		scale = tpcScale
	}
	return printer.Sprint(number.Decimal(tpc.InexactFloat64(), number.Scale(scale))) + " TPC"
}
