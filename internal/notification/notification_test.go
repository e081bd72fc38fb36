package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
	gate chan struct{}
}

func (n *recordingNotifier) Send(ctx context.Context, msg Message) error {
	if n.gate != nil {
		select {
		case <-n.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func TestHTTPNotifierPostsToFunction(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL+"/functions/v1/", "", srv.Client())
	err := n.Send(context.Background(), Message{
		Kind:    KindInvoiceApproved,
		Token:   "tok",
		Payload: map[string]any{"invoice_id": "inv-1"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/functions/v1/"+KindInvoiceApproved {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected auth %q", gotAuth)
	}
	if gotBody["invoice_id"] != "inv-1" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestHTTPNotifierReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "smtp down", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "", srv.Client())
	if err := n.Send(context.Background(), Message{Kind: KindInvoiceRejected}); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, 2, 8)
	for i := 0; i < 5; i++ {
		if err := d.Enqueue(Message{Kind: KindInvoiceCreated}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if rec.count() != 5 {
		t.Fatalf("expected 5 deliveries, got %d", rec.count())
	}
	if err := d.Enqueue(Message{Kind: KindInvoiceCreated}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDispatcherEnqueueNeverBlocks(t *testing.T) {
	rec := &recordingNotifier{gate: make(chan struct{})}
	d := NewDispatcher(rec, 1, 1)

	// One message is held by the worker, one sits in the queue.
	var full bool
	for i := 0; i < 5; i++ {
		if err := d.Enqueue(Message{Kind: KindInvoiceApproved}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	if !full {
		t.Fatal("expected ErrQueueFull once saturated")
	}
	close(rec.gate)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDispatcherReportsFailures(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("boom")}
	d := NewDispatcher(rec, 1, 4)
	if err := d.Enqueue(Message{Kind: KindWithdrawalRejected}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case f := <-d.Failures():
		if f.Message.Kind != KindWithdrawalRejected || f.Err == nil {
			t.Fatalf("unexpected failure %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a failure report")
	}
	_ = d.Close(context.Background())
}
