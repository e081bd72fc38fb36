package rpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestBuildStatementSortsNamedArguments(t *testing.T) {
	stmt, values, err := buildStatement("to_jsonb(t)", "create_invoice_locked", Args{
		"p_wallet":   "w",
		"p_amount":   "10",
		"p_currency": "IDR",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "SELECT to_jsonb(t) FROM public.create_invoice_locked(p_amount => $1, p_currency => $2, p_wallet => $3) AS t"
	if stmt != want {
		t.Fatalf("unexpected statement:\n%s", stmt)
	}
	if len(values) != 3 || values[0] != "10" || values[2] != "w" {
		t.Fatalf("unexpected values %v", values)
	}
}

func TestBuildStatementRejectsUnsafeNames(t *testing.T) {
	if _, _, err := buildStatement("t", "drop table x;--", nil); err == nil {
		t.Fatal("expected invalid function name")
	}
	if _, _, err := buildStatement("t", "ok_fn", Args{"p; select": 1}); err == nil {
		t.Fatal("expected invalid argument name")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
		kind Kind
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound, ""},
		{"jwt invalid", &pgconn.PgError{Code: "28000", Message: "jwt expired"}, ErrAuthRequired, ""},
		{"rls", &pgconn.PgError{Code: "42501", Message: "permission denied"}, ErrAuthRequired, ""},
		{"raised not authenticated", &pgconn.PgError{Code: "P0001", Message: "Not authenticated"}, ErrAuthRequired, ""},
		{"precision", &pgconn.PgError{Code: "P0001", Message: "Amount exceeds allowed decimal precision"}, nil, KindAmountPrecision},
		{"minimum", &pgconn.PgError{Code: "P0001", Message: "Order below minimum"}, nil, KindMinimum},
		{"wallet", &pgconn.PgError{Code: "22023", Message: "invalid wallet address"}, nil, KindWallet},
		{"status", &pgconn.PgError{Code: "P0001", Message: "invalid status transition"}, nil, KindStatus},
		{"amount", &pgconn.PgError{Code: "23514", Message: "amount must be positive"}, nil, KindAmount},
		{"missing", &pgconn.PgError{Code: "P0001", Message: "invoice not found"}, nil, KindNotFound},
		{"no data", &pgconn.PgError{Code: "P0002", Message: "query returned no rows"}, ErrNotFound, ""},
	}
	for _, tc := range cases {
		got := Classify(fmt.Errorf("call: %w", tc.err))
		if tc.want != nil {
			if !errors.Is(got, tc.want) {
				t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
			}
			continue
		}
		de, ok := IsDomain(got)
		if !ok {
			t.Fatalf("%s: expected domain error, got %v", tc.name, got)
		}
		if de.Kind != tc.kind {
			t.Fatalf("%s: expected kind %s got %s", tc.name, tc.kind, de.Kind)
		}
	}
}

func TestClassifyPassesThroughUnknownErrors(t *testing.T) {
	boom := errors.New("connection reset")
	if got := Classify(boom); got != boom {
		t.Fatalf("expected passthrough, got %v", got)
	}
	if got := Classify(&pgconn.PgError{Code: "08006", Message: "connection failure"}); errors.Is(got, ErrAuthRequired) {
		t.Fatal("connection failure must not look like auth")
	}
}

func TestIdentityClaims(t *testing.T) {
	anon, err := Anonymous().claimsJSON()
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if anon != `{"role":"anon"}` {
		t.Fatalf("unexpected anon claims %s", anon)
	}
	id := Identity{UserID: "u1", Email: "a@b.c", Claims: map[string]any{"app_metadata": map[string]any{"role": "admin"}}}
	if id.dbRole() != roleAuthenticated {
		t.Fatalf("expected authenticated role")
	}
}

func TestDecodeChange(t *testing.T) {
	ch, err := DecodeChange(`{"id":"inv-1","user_id":"u1","status":"PAID"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ch.ID != "inv-1" || ch.UserID != "u1" || ch.Status != "PAID" {
		t.Fatalf("unexpected change %+v", ch)
	}
	if _, err := DecodeChange(`{"status":"PAID"}`); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestIdentityIsAdmin(t *testing.T) {
	admin := Identity{UserID: "a", Claims: map[string]any{"app_metadata": map[string]any{"role": "admin"}}}
	if !admin.IsAdmin() {
		t.Fatal("expected admin")
	}
	if (Identity{UserID: "m"}).IsAdmin() || Anonymous().IsAdmin() {
		t.Fatal("expected non-admin")
	}
}
