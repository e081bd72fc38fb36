package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/money"
	"github.com/tpc-global/tpc_portal/internal/order"
	"github.com/tpc-global/tpc_portal/internal/rpc"
)

func errorApp(t *testing.T, lang i18n.Lang, cur money.Currency, err error) (int, Problem) {
	t.Helper()
	cat, lerr := i18n.Load()
	if lerr != nil {
		t.Fatalf("load copy: %v", lerr)
	}
	app := fiber.New()
	app.Post("/api/v1/:lang/invoices", func(c *fiber.Ctx) error {
		SetLang(c, lang)
		return Error(c, Copy(c, cat).Errors, cur, err)
	})
	resp, terr := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/"+string(lang)+"/invoices", nil))
	if terr != nil {
		t.Fatalf("app.Test: %v", terr)
	}
	defer resp.Body.Close()
	var body struct {
		Error Problem `json:"error"`
	}
	if derr := json.NewDecoder(resp.Body).Decode(&body); derr != nil {
		t.Fatalf("decode: %v", derr)
	}
	return resp.StatusCode, body.Error
}

func TestAuthErrorsRedirectToLogin(t *testing.T) {
	status, p := errorApp(t, i18n.ID, money.IDR, fmt.Errorf("create: %w", rpc.ErrAuthRequired))
	if status != http.StatusUnauthorized || p.Code != CodeAuthRequired {
		t.Fatalf("unexpected %d %+v", status, p)
	}
	if p.Redirect != "/id/login?next=%2Fid%2Finvoices" {
		t.Fatalf("unexpected redirect %s", p.Redirect)
	}
}

func TestPrecisionMessageIsCurrencySpecific(t *testing.T) {
	cat, _ := i18n.Load()
	errs := cat.PublicCopySafe(i18n.EN).Errors
	domain := &rpc.DomainError{Kind: rpc.KindAmountPrecision, Message: "too many decimals"}
	want := map[money.Currency]string{money.IDR: errs.PrecisionIDR, money.USDC: errs.PrecisionUSDC, money.SOL: errs.PrecisionSOL}
	for cur, msg := range want {
		status, p := errorApp(t, i18n.EN, cur, domain)
		if status != http.StatusUnprocessableEntity || p.Message != msg {
			t.Fatalf("%s: unexpected %d %+v", cur, status, p)
		}
	}
}

func TestValidationErrorCarriesReasons(t *testing.T) {
	res := order.Result{Reasons: []order.Reason{{Code: order.CodeTerms, Message: "agree"}, {Code: order.CodeWallet, Message: "wallet"}}}
	status, p := errorApp(t, i18n.EN, money.USDC, &order.ValidationError{Result: res})
	if status != http.StatusUnprocessableEntity || p.Message != "agree" || len(p.Reasons) != 2 {
		t.Fatalf("unexpected %d %+v", status, p)
	}
}

func TestGenericErrorsHideDetails(t *testing.T) {
	status, p := errorApp(t, i18n.EN, money.USDC, errors.New("dial tcp: connection refused"))
	if status != http.StatusBadGateway || p.Code != CodeGeneric || p.Message == "" {
		t.Fatalf("unexpected %d %+v", status, p)
	}
	if p.Message == "dial tcp: connection refused" {
		t.Fatal("driver errors must not leak")
	}
}

func TestNotFound(t *testing.T) {
	status, _ := errorApp(t, i18n.EN, money.USDC, rpc.ErrNotFound)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestLoginRedirectRejectsOffsiteNext(t *testing.T) {
	if got := LoginRedirect(i18n.EN, "//evil.example"); got != "/en/login?next=%2Fen" {
		t.Fatalf("unexpected redirect %s", got)
	}
}
