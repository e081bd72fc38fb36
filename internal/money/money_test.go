package money

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func TestParse(t *testing.T) {
	cases := []struct {
		raw  string
		cur  Currency
		want string
	}{
		{"10.000.000", IDR, "10000000"},
		{"Rp 10.000", IDR, "10000"},
		{"1500,75", IDR, "1500"},
		{"10.5", IDR, "10"},
		{"1,500", IDR, "1500"},
		{"10.005", USDC, "10.01"},
		{"1,234.56", USDC, "1234.56"},
		{"1.234,56", USDC, "1234.56"},
		{"$25", USDC, "25"},
		{"12,5", USDC, "12.5"},
		{"1.23456", SOL, "1.2346"},
		{"0.5 SOL", SOL, "0.5"},
		{".25", SOL, "0.25"},
	}
	for _, tc := range cases {
		got := Parse(tc.raw, tc.cur)
		if !got.Equal(dec(t, tc.want)) {
			t.Fatalf("Parse(%q, %s) = %s, want %s", tc.raw, tc.cur, got, tc.want)
		}
	}
}

func TestParseMalformedYieldsZero(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "-5", "1,2,3", "1..2", "10e3", "1.2.3"} {
		for _, c := range Currencies {
			if got := Parse(raw, c); !got.IsZero() {
				t.Fatalf("Parse(%q, %s) = %s, want 0", raw, c, got)
			}
		}
	}
}

func TestParseFormatIsStable(t *testing.T) {
	inputs := []string{"10.005", "10.004", "1.23456", "10.000.000", "1500,75", "0.00005", "999999.999"}
	for _, raw := range inputs {
		for _, c := range Currencies {
			first := Parse(raw, c)
			second := Parse(Format(first, c), c)
			third := Parse(Format(second, c), c)
			if !first.Equal(second) || !second.Equal(third) {
				t.Fatalf("unstable round trip for %q/%s: %s -> %s -> %s", raw, c, first, second, third)
			}
		}
	}
}

func TestIDRIsAlwaysWhole(t *testing.T) {
	for _, raw := range []string{"1500,99", "10.9", "0,5", "123456.789"} {
		got := Parse(raw, IDR)
		if !got.Equal(got.Truncate(0)) {
			t.Fatalf("Parse(%q, IDR) = %s is fractional", raw, got)
		}
		if strings.Contains(Format(got, IDR), ".") {
			t.Fatalf("Format IDR %s contains a fraction", got)
		}
	}
}

func TestExceedsPrecision(t *testing.T) {
	if !ExceedsPrecision("10.005", USDC) {
		t.Fatal("expected 10.005 USDC to exceed precision")
	}
	if ExceedsPrecision("10.50", USDC) {
		t.Fatal("10.50 USDC is within precision")
	}
	if !ExceedsPrecision("1500,5", IDR) {
		t.Fatal("expected fractional IDR to exceed precision")
	}
	if ExceedsPrecision("1.2345", SOL) {
		t.Fatal("1.2345 SOL is within precision")
	}
}

func TestQuoteIDRExample(t *testing.T) {
	rates := Rates{IDRPerUSD: dec(t, "17000"), SOLUSD: dec(t, "150")}
	q := NewQuote("10.000.000", IDR, rates, dec(t, "0.001"))

	if !q.Amount.Equal(dec(t, "10000000")) {
		t.Fatalf("amount %s", q.Amount)
	}
	if !q.USDDisplay().Equal(dec(t, "588.24")) {
		t.Fatalf("usd %s", q.USDDisplay())
	}
	if q.TPC.IntPart() != 588235 {
		t.Fatalf("tpc %s", q.TPC)
	}
	if q.AmountText != "10000000" {
		t.Fatalf("amount text %s", q.AmountText)
	}
}

func TestToUSD(t *testing.T) {
	rates := Rates{IDRPerUSD: dec(t, "16000"), SOLUSD: dec(t, "150")}
	if got := ToUSD(dec(t, "2.5"), SOL, rates); !got.Equal(dec(t, "375")) {
		t.Fatalf("SOL to USD = %s", got)
	}
	if got := ToUSD(dec(t, "12.34"), USDC, rates); !got.Equal(dec(t, "12.34")) {
		t.Fatalf("USDC to USD = %s", got)
	}
	if got := ToUSD(dec(t, "160000"), IDR, rates); !got.Equal(dec(t, "10")) {
		t.Fatalf("IDR to USD = %s", got)
	}
	if got := ToUSD(dec(t, "160000"), IDR, Rates{}); !got.IsZero() {
		t.Fatalf("missing FX rate should yield zero, got %s", got)
	}
}

func TestConvert(t *testing.T) {
	rates := Rates{IDRPerUSD: dec(t, "17000"), SOLUSD: dec(t, "200")}
	if got := Convert(dec(t, "100"), USDC, IDR, rates); !got.Equal(dec(t, "1700000")) {
		t.Fatalf("USDC->IDR = %s", got)
	}
	if got := Convert(dec(t, "100"), USDC, SOL, rates); !got.Equal(dec(t, "0.5")) {
		t.Fatalf("USDC->SOL = %s", got)
	}
	if got := Convert(dec(t, "1"), SOL, USDC, rates); !got.Equal(dec(t, "200")) {
		t.Fatalf("SOL->USDC = %s", got)
	}
}

func TestTPCForZeroPrice(t *testing.T) {
	if got := TPCFor(dec(t, "100"), decimal.Zero); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestParseCurrency(t *testing.T) {
	if c, err := ParseCurrency(" usdc "); err != nil || c != USDC {
		t.Fatalf("ParseCurrency usdc = %s, %v", c, err)
	}
	if _, err := ParseCurrency("BTC"); err != ErrUnsupportedCurrency {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestFormatDisplayEnglish(t *testing.T) {
	got := FormatDisplay(language.English, dec(t, "1234.5"), USDC)
	if !strings.HasPrefix(got, "1,234.5") || !strings.HasSuffix(got, " USDC") {
		t.Fatalf("unexpected display %q", got)
	}
	if idr := FormatDisplay(language.English, dec(t, "1500"), IDR); !strings.HasPrefix(idr, "Rp") {
		t.Fatalf("unexpected IDR display %q", idr)
	}
}
