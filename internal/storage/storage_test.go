package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestInspectProofAcceptsImagesAndPDF(t *testing.T) {
	p, err := InspectProof(bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if p.ContentType != "image/png" || p.Extension != ".png" {
		t.Fatalf("unexpected png detection %+v", p)
	}
	pdf, err := InspectProof(strings.NewReader("%PDF-1.4\n%test\n"))
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if pdf.Extension != ".pdf" {
		t.Fatalf("unexpected pdf extension %q", pdf.Extension)
	}
}

func TestInspectProofRejects(t *testing.T) {
	if _, err := InspectProof(strings.NewReader("")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := InspectProof(strings.NewReader("just text")); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxProofSize)...)
	if _, err := InspectProof(bytes.NewReader(big)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestProofPath(t *testing.T) {
	p := ProofPath("user-1", "inv-1", ".png")
	if !strings.HasPrefix(p, "user-1/inv-1/") || !strings.HasSuffix(p, ".png") {
		t.Fatalf("unexpected path %s", p)
	}
	if ProofPath("u", "i", ".png") == ProofPath("u", "i", ".png") {
		t.Fatal("paths must be unique")
	}
}

func TestHTTPBucketUpload(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewHTTPBucket(srv.URL, "invoice-proofs", "anon", srv.Client())
	if err := b.Upload(context.Background(), "tok", "u/i/x.png", "image/png", pngHeader); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotPath != "/storage/v1/object/invoice-proofs/u/i/x.png" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer tok" || gotType != "image/png" || !bytes.Equal(gotBody, pngHeader) {
		t.Fatalf("unexpected request auth=%q type=%q", gotAuth, gotType)
	}
	if got := b.PublicURL("u/i/x.png"); got != srv.URL+"/storage/v1/object/public/invoice-proofs/u/i/x.png" {
		t.Fatalf("unexpected public url %s", got)
	}
}

func TestHTTPBucketUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := NewHTTPBucket(srv.URL, "invoice-proofs", "", srv.Client())
	if err := b.Upload(context.Background(), "", "u/i/x.png", "image/png", pngHeader); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestMemoryBucket(t *testing.T) {
	b := NewMemoryBucket("http://local/proofs")
	if err := b.Upload(context.Background(), "", "a/b/c.pdf", "application/pdf", []byte("x")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := b.Upload(context.Background(), "", "a/b/c.pdf", "application/pdf", []byte("y")); err == nil {
		t.Fatal("expected duplicate path rejection")
	}
	if body, ok := b.Object("a/b/c.pdf"); !ok || string(body) != "x" {
		t.Fatalf("unexpected object %q", body)
	}
	if b.PublicURL("a/b/c.pdf") != "http://local/proofs/a/b/c.pdf" {
		t.Fatalf("unexpected url %s", b.PublicURL("a/b/c.pdf"))
	}
}
