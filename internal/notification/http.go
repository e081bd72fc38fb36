package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPNotifier posts messages to serverless email functions at
// <baseURL>/<kind>, authenticated with the caller's bearer token.
type HTTPNotifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPNotifier builds a notifier for the functions base URL. apiKey is sent
// as the apikey header when non-empty.
func NewHTTPNotifier(baseURL, apiKey string, client *http.Client) *HTTPNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPNotifier{baseURL: strings.TrimSuffix(baseURL, "/"), apiKey: apiKey, client: client}
}

// Send delivers one message. Non-2xx responses are errors.
func (n *HTTPNotifier) Send(ctx context.Context, message Message) error {
	body, err := json.Marshal(message.Payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", message.Kind, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/"+message.Kind, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if message.Token != "" {
		req.Header.Set("Authorization", "Bearer "+message.Token)
	}
	if n.apiKey != "" {
		req.Header.Set("apikey", n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", message.Kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send %s: status %d: %s", message.Kind, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
