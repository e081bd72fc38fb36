package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	plainNumber = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
	dotGroups   = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	commaGroups = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)

	symbols = []string{"USDC", "IDR", "SOL", "RP", "$"}
)

// Parse turns user input into an amount rounded to the currency precision.
// IDR truncates to whole rupiah, USDC and SOL round half away from zero.
// Malformed, empty or negative input yields zero.
func Parse(raw string, c Currency) decimal.Decimal {
	d, ok := parseExact(raw, c)
	if !ok {
		return decimal.Zero
	}
	return round(d, c)
}

// ExceedsPrecision reports whether raw carries more fraction digits than c
// allows, e.g. "10.005" for USDC or "1500,5" for IDR.
func ExceedsPrecision(raw string, c Currency) bool {
	d, ok := parseExact(raw, c)
	if !ok {
		return false
	}
	return !d.Equal(d.Truncate(Decimals(c)))
}

// Format renders the canonical machine form: exactly Decimals(c) fraction
// digits, no grouping. Parse(Format(x), c) == x for any rounded x.
func Format(d decimal.Decimal, c Currency) string {
	return round(d, c).StringFixed(Decimals(c))
}

func round(d decimal.Decimal, c Currency) decimal.Decimal {
	if c == IDR {
		return d.Truncate(0)
	}
	return d.Round(Decimals(c))
}

func parseExact(raw string, c Currency) (decimal.Decimal, bool) {
	s := normalize(raw, c)
	if s == "" || !plainNumber.MatchString(s) {
		return decimal.Zero, false
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() < 0 {
		return decimal.Zero, false
	}
	return d, true
}

// normalize strips symbols and whitespace and rewrites grouping/decimal
// separators to a plain "1234.56" form. Separator rules:
//   - both "." and "," present: the rightmost one is the decimal separator;
//   - repeated separator: grouping;
//   - a single separator followed by exactly three digits is grouping for
//     IDR, and for "," in every currency; otherwise it is the decimal point.
func normalize(raw string, c Currency) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, sym := range symbols {
		s = strings.TrimPrefix(s, sym)
		s = strings.TrimSuffix(s, sym)
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '_', '\'':
			return -1
		}
		return r
	}, s)

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if dot > comma {
			return strings.ReplaceAll(s, ",", "")
		}
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		if commaGroups.MatchString(s) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0:
		if strings.Count(s, ".") > 1 || (c == IDR && dotGroups.MatchString(s)) {
			if dotGroups.MatchString(s) {
				return strings.ReplaceAll(s, ".", "")
			}
			return ""
		}
		return s
	}
	return s
}
