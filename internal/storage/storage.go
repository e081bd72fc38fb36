// Package storage uploads payment proofs to the object storage bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxProofSize caps an uploaded proof.
const MaxProofSize = 5 << 20

var (
	// ErrTooLarge is returned for proofs above MaxProofSize.
	ErrTooLarge = errors.New("proof exceeds size limit")
	// ErrUnsupportedType is returned for anything but images and PDF.
	ErrUnsupportedType = errors.New("proof must be an image or PDF")
	// ErrEmpty is returned for an empty upload.
	ErrEmpty = errors.New("proof is empty")
)

// Bucket stores objects and resolves their public URLs.
type Bucket interface {
	Upload(ctx context.Context, token, path, contentType string, body []byte) error
	PublicURL(path string) string
}

// Proof is a sniffed, size-checked upload.
type Proof struct {
	ContentType string
	Extension   string
	Body        []byte
}

// InspectProof reads at most MaxProofSize+1 bytes from r and accepts images
// and PDF documents.
func InspectProof(r io.Reader) (Proof, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxProofSize+1))
	if err != nil {
		return Proof{}, fmt.Errorf("read proof: %w", err)
	}
	if len(body) == 0 {
		return Proof{}, ErrEmpty
	}
	if len(body) > MaxProofSize {
		return Proof{}, ErrTooLarge
	}
	mt := mimetype.Detect(body)
	if !strings.HasPrefix(mt.String(), "image/") && !mt.Is("application/pdf") {
		return Proof{}, ErrUnsupportedType
	}
	return Proof{ContentType: mt.String(), Extension: mt.Extension(), Body: body}, nil
}

// ProofPath is the object path <user>/<invoice>/<uuid><ext>.
func ProofPath(userID, invoiceID, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s", userID, invoiceID, uuid.NewString(), ext)
}

// HTTPBucket talks to the managed storage REST API.
type HTTPBucket struct {
	baseURL string
	bucket  string
	apiKey  string
	client  *http.Client
}

// NewHTTPBucket builds a bucket client rooted at the backend base URL.
func NewHTTPBucket(baseURL, bucket, apiKey string, client *http.Client) *HTTPBucket {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPBucket{baseURL: strings.TrimSuffix(baseURL, "/"), bucket: bucket, apiKey: apiKey, client: client}
}

// Upload PUTs-or-creates the object with the caller's token so bucket
// policies apply to the uploading user.
func (b *HTTPBucket) Upload(ctx context.Context, token, path, contentType string, body []byte) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.baseURL, b.bucket, escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if b.apiKey != "" {
		req.Header.Set("apikey", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// PublicURL returns the public object URL.
func (b *HTTPBucket) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", b.baseURL, b.bucket, escapePath(path))
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// MemoryBucket keeps objects in memory.
type MemoryBucket struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

// NewMemoryBucket builds an in-memory bucket serving URLs under baseURL.
func NewMemoryBucket(baseURL string) *MemoryBucket {
	return &MemoryBucket{objects: make(map[string][]byte), baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Upload stores body. Existing paths are rejected like the remote bucket does
// without upsert.
func (b *MemoryBucket) Upload(_ context.Context, _ string, path, _ string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.objects[path]; exists {
		return fmt.Errorf("upload %s: object exists", path)
	}
	b.objects[path] = append([]byte(nil), body...)
	return nil
}

// PublicURL returns a URL for path.
func (b *MemoryBucket) PublicURL(path string) string {
	return b.baseURL + "/" + path
}

// Object returns the stored bytes for path.
func (b *MemoryBucket) Object(path string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	body, ok := b.objects[path]
	return body, ok
}
