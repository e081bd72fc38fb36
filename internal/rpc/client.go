// Package rpc invokes the remote procedures exposed by the managed Postgres
// backend on behalf of a caller, so row-level security sees the same role and
// JWT claims it would for a browser session.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	roleAuthenticated = "authenticated"
	roleAnon          = "anon"
	schema            = "public"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Identity describes the caller a procedure runs as.
type Identity struct {
	UserID string
	Email  string
	Role   string
	Claims map[string]any
}

// Anonymous is the identity used for public reads.
func Anonymous() Identity {
	return Identity{}
}

func (i Identity) dbRole() string {
	if i.UserID == "" {
		return roleAnon
	}
	return roleAuthenticated
}

func (i Identity) claimsJSON() (string, error) {
	claims := make(map[string]any, len(i.Claims)+2)
	for k, v := range i.Claims {
		claims[k] = v
	}
	claims["role"] = i.dbRole()
	if i.UserID != "" {
		claims["sub"] = i.UserID
	}
	if i.Email != "" {
		claims["email"] = i.Email
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	return string(raw), nil
}

// Args are named procedure arguments.
type Args map[string]any

// Caller is the subset of Client used by repositories.
type Caller interface {
	Call(ctx context.Context, id Identity, fn string, args Args, dest any) error
	CallList(ctx context.Context, id Identity, fn string, args Args, dest any) error
	CallScalar(ctx context.Context, id Identity, fn string, args Args) (string, error)
}

// Client runs procedures through a pgx pool.
type Client struct {
	db *pgxpool.Pool
}

// NewClient builds a procedure client.
func NewClient(db *pgxpool.Pool) *Client {
	return &Client{db: db}
}

// Call runs fn and decodes its single result row into dest.
func (c *Client) Call(ctx context.Context, id Identity, fn string, args Args, dest any) error {
	stmt, values, err := buildStatement("to_jsonb(t)", fn, args)
	if err != nil {
		return err
	}
	var raw []byte
	err = c.withIdentity(ctx, id, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, stmt, values...).Scan(&raw)
	})
	if err != nil {
		return Classify(err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ErrNotFound
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s result: %w", fn, err)
	}
	return nil
}

// CallList runs a set-returning fn and decodes every row into dest, which must
// point to a slice.
func (c *Client) CallList(ctx context.Context, id Identity, fn string, args Args, dest any) error {
	stmt, values, err := buildStatement("coalesce(jsonb_agg(to_jsonb(t)), '[]'::jsonb)", fn, args)
	if err != nil {
		return err
	}
	var raw []byte
	err = c.withIdentity(ctx, id, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, stmt, values...).Scan(&raw)
	})
	if err != nil {
		return Classify(err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s rows: %w", fn, err)
	}
	return nil
}

// CallScalar runs fn and returns its result as text.
func (c *Client) CallScalar(ctx context.Context, id Identity, fn string, args Args) (string, error) {
	stmt, values, err := buildStatement("t::text", fn, args)
	if err != nil {
		return "", err
	}
	var out *string
	err = c.withIdentity(ctx, id, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, stmt, values...).Scan(&out)
	})
	if err != nil {
		return "", Classify(err)
	}
	if out == nil {
		return "", ErrNotFound
	}
	return *out, nil
}

func (c *Client) withIdentity(ctx context.Context, id Identity, fn func(pgx.Tx) error) error {
	if c == nil || c.db == nil {
		return errors.New("rpc: no database configured")
	}
	claims, err := id.claimsJSON()
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('role', $1, true), set_config('request.jwt.claims', $2, true)`, id.dbRole(), claims); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// buildStatement renders `SELECT <projection> FROM public.fn(p_a => $1, ...) AS t`
// with arguments bound in sorted name order.
func buildStatement(projection, fn string, args Args) (string, []any, error) {
	if !identPattern.MatchString(fn) {
		return "", nil, fmt.Errorf("rpc: invalid function name %q", fn)
	}
	names := make([]string, 0, len(args))
	for name := range args {
		if !identPattern.MatchString(name) {
			return "", nil, fmt.Errorf("rpc: invalid argument name %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]string, 0, len(names))
	values := make([]any, 0, len(names))
	for i, name := range names {
		params = append(params, fmt.Sprintf("%s => $%d", name, i+1))
		values = append(values, args[name])
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s.%s(%s) AS t", projection, schema, fn, strings.Join(params, ", "))
	return stmt, values, nil
}

// IsAdmin reports whether the caller carries the admin role in app_metadata.
func (i Identity) IsAdmin() bool {
	meta, ok := i.Claims["app_metadata"].(map[string]any)
	if !ok {
		return false
	}
	role, _ := meta["role"].(string)
	return role == "admin"
}
