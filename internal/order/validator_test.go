package order

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/money"
)

const wrappedSOL = "So11111111111111111111111111111111111111112"

func testRates() money.Rates {
	return money.Rates{IDRPerUSD: decimal.NewFromInt(17000), SOLUSD: decimal.NewFromInt(150)}
}

func testLimits() Limits {
	return Limits{MinUSD: decimal.NewFromInt(5), MinTPC: decimal.NewFromInt(1000)}
}

func testMessages(t *testing.T) i18n.ReasonsCopy {
	t.Helper()
	cat, err := i18n.Load()
	if err != nil {
		t.Fatalf("load copy: %v", err)
	}
	return cat.PublicCopySafe(i18n.EN).Reasons
}

func quote(form Form) money.Quote {
	return money.NewQuote(form.Amount, form.Currency, testRates(), decimal.RequireFromString("0.001"))
}

func TestValidateIDRExampleIsOK(t *testing.T) {
	form := Form{TermsAgreed: true, Currency: money.IDR, Amount: "10.000.000", Wallet: wrappedSOL}
	res := Validate(form, quote(form), testLimits(), testMessages(t))
	if !res.OK {
		t.Fatalf("expected ok, got reasons %v", res.Messages())
	}
	if len(res.Reasons) != 0 || res.First() != "" {
		t.Fatalf("expected no reasons, got %v", res.Reasons)
	}
}

func TestValidateShortWallet(t *testing.T) {
	msgs := testMessages(t)
	form := Form{TermsAgreed: true, Currency: money.USDC, Amount: "100", Wallet: "abc"}
	res := Validate(form, quote(form), testLimits(), msgs)
	if res.OK {
		t.Fatal("expected validation failure")
	}
	if len(res.Reasons) != 1 || res.Reasons[0].Code != CodeWallet {
		t.Fatalf("expected single wallet reason, got %v", res.Reasons)
	}
	if res.First() != msgs.WalletShort {
		t.Fatalf("unexpected message %q", res.First())
	}
}

func TestValidateAccumulatesEveryFailingCheck(t *testing.T) {
	form := Form{TermsAgreed: false, Currency: money.SOL, Amount: "abc", Wallet: ""}
	res := Validate(form, quote(form), testLimits(), testMessages(t))
	if res.OK {
		t.Fatal("expected failure")
	}
	want := []Code{CodeTerms, CodeAmount, CodeWallet, CodeMinUSD, CodeMinTPC}
	if len(res.Reasons) != len(want) {
		t.Fatalf("expected %d reasons, got %v", len(want), res.Reasons)
	}
	for i, code := range want {
		if res.Reasons[i].Code != code {
			t.Fatalf("reason %d: expected %s got %s", i, code, res.Reasons[i].Code)
		}
	}
}

func TestValidateOKIffAllChecksPass(t *testing.T) {
	cases := []struct {
		name    string
		form    Form
		failing int
	}{
		{"all pass", Form{TermsAgreed: true, Currency: money.USDC, Amount: "50", Wallet: wrappedSOL}, 0},
		{"terms", Form{TermsAgreed: false, Currency: money.USDC, Amount: "50", Wallet: wrappedSOL}, 1},
		{"malformed wallet", Form{TermsAgreed: true, Currency: money.USDC, Amount: "50", Wallet: strings.Repeat("0", 40)}, 1},
		{"below min usd only", Form{TermsAgreed: true, Currency: money.USDC, Amount: "4.99", Wallet: wrappedSOL}, 1},
		{"below both minimums", Form{TermsAgreed: true, Currency: money.USDC, Amount: "0.5", Wallet: wrappedSOL}, 2},
	}
	for _, tc := range cases {
		res := Validate(tc.form, quote(tc.form), testLimits(), testMessages(t))
		if res.OK != (tc.failing == 0) {
			t.Fatalf("%s: ok=%v with %d failing checks", tc.name, res.OK, tc.failing)
		}
		if len(res.Reasons) != tc.failing {
			t.Fatalf("%s: expected %d reasons, got %v", tc.name, tc.failing, res.Messages())
		}
	}
}

func TestMinimumMessagesCarryThreshold(t *testing.T) {
	form := Form{TermsAgreed: true, Currency: money.USDC, Amount: "1", Wallet: wrappedSOL}
	res := Validate(form, quote(form), testLimits(), testMessages(t))
	if !res.Has(CodeMinUSD) {
		t.Fatalf("expected min usd reason, got %v", res.Reasons)
	}
	if !strings.Contains(res.First(), "5") {
		t.Fatalf("expected threshold in message, got %q", res.First())
	}
}

func TestCheckWallet(t *testing.T) {
	cases := map[string]WalletProblem{
		"":          WalletMissing,
		"   ":       WalletMissing,
		"abc":       WalletTooShort,
		wrappedSOL:  WalletOK,
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": WalletOK,
		strings.Repeat("1", 32):                         WalletOK,
		strings.Repeat("0", 40):                         WalletMalformed,
		strings.Repeat("z", 50):                         WalletMalformed,
		"0xde0B295669a9FD93d5F28D9Ec85E40f4cb697BAe":   WalletMalformed,
	}
	for addr, want := range cases {
		if got := CheckWallet(addr); got != want {
			t.Fatalf("CheckWallet(%q) = %d, want %d", addr, got, want)
		}
	}
}
