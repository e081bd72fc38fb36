package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tpc-global/tpc_portal/internal/logging"
	"github.com/tpc-global/tpc_portal/internal/rpc"
)

type stubCaller struct {
	code  string
	err   error
	calls int
}

func (s *stubCaller) Call(context.Context, rpc.Identity, string, rpc.Args, any) error {
	return errors.New("unused")
}

func (s *stubCaller) CallList(context.Context, rpc.Identity, string, rpc.Args, any) error {
	return errors.New("unused")
}

func (s *stubCaller) CallScalar(_ context.Context, _ rpc.Identity, fn string, _ rpc.Args) (string, error) {
	s.calls++
	if fn != randomCodeFn {
		return "", errors.New("unexpected function " + fn)
	}
	return s.code, s.err
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return NewRedisStore(cache), mr
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		" abc123 ":  "ABC123",
		"tpc-ref_1": "TPC-REF_1",
		"ab":        "",
		"has space": "",
		"émoji":     "",
	}
	for in, want := range cases {
		got, ok := Normalize(in)
		if got != want || ok != (want != "") {
			t.Fatalf("Normalize(%q) = %q,%v want %q", in, got, ok, want)
		}
	}
}

func TestResolveURLCodeWinsAndIsRemembered(t *testing.T) {
	store, mr := newRedisStore(t)
	caller := &stubCaller{code: "RANDOM1"}
	r := NewResolver(store, caller, "TPCGLOBAL", logging.Discard())
	ctx := context.Background()

	_ = store.Remember(ctx, "client-1", "OLDCODE")
	res := r.Resolve(ctx, "client-1", "newcode")
	if res.Code != "NEWCODE" || res.Source != SourceURL {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if caller.calls != 0 {
		t.Fatal("remote assignment must not run when URL code is present")
	}
	if got, _ := mr.Get(pendingPrefix + "client-1"); got != "NEWCODE" {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if ttl := mr.TTL(pendingPrefix + "client-1"); ttl != pendingTTL {
		t.Fatalf("unexpected ttl %s", ttl)
	}
}

func TestResolvePendingBeforeRemote(t *testing.T) {
	store, _ := newRedisStore(t)
	caller := &stubCaller{code: "RANDOM1"}
	r := NewResolver(store, caller, "TPCGLOBAL", logging.Discard())
	ctx := context.Background()

	_ = store.Remember(ctx, "client-1", "SAVED1")
	res := r.Resolve(ctx, "client-1", "")
	if res.Code != "SAVED1" || res.Source != SourcePending {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolveRemoteAssignmentIsRemembered(t *testing.T) {
	store, _ := newRedisStore(t)
	caller := &stubCaller{code: "random1"}
	r := NewResolver(store, caller, "TPCGLOBAL", logging.Discard())
	ctx := context.Background()

	res := r.Resolve(ctx, "client-2", "x")
	if res.Code != "RANDOM1" || res.Source != SourceAssigned {
		t.Fatalf("unexpected resolution %+v", res)
	}
	again := r.Resolve(ctx, "client-2", "")
	if again.Source != SourcePending || caller.calls != 1 {
		t.Fatalf("expected pending code on second resolve, got %+v after %d calls", again, caller.calls)
	}
}

func TestResolveFallback(t *testing.T) {
	r := NewResolver(NewMemoryStore(), &stubCaller{err: errors.New("rpc down")}, "TPCGLOBAL", logging.Discard())
	res := r.Resolve(context.Background(), "client-3", "")
	if res.Code != "TPCGLOBAL" || res.Source != SourceFallback {
		t.Fatalf("unexpected resolution %+v", res)
	}

	noBackend := NewResolver(NewMemoryStore(), nil, "TPCGLOBAL", logging.Discard())
	if got := noBackend.Resolve(context.Background(), "", ""); got.Source != SourceFallback {
		t.Fatalf("expected fallback without backend, got %+v", got)
	}
}

func TestPendingCodeExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	_ = store.Remember(ctx, "client-4", "SAVED4")
	mr.FastForward(pendingTTL + time.Second)
	if code, err := store.Pending(ctx, "client-4"); err != nil || code != "" {
		t.Fatalf("expected expired code, got %q %v", code, err)
	}
}
