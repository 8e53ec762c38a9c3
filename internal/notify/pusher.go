package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Pusher delivers one notification to a user's device.
type Pusher interface {
	Push(ctx context.Context, userID uuid.UUID, title, body string) error
}

// GatewayPusher posts notifications to an HTTP push gateway. The gateway
// owns device token lookup and the vendor push services; this client only
// speaks its JSON API.
type GatewayPusher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewGatewayPusher creates a pusher for the gateway at baseURL. token is
// sent as a bearer credential; empty disables the header.
func NewGatewayPusher(baseURL, token string) *GatewayPusher {
	return &GatewayPusher{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type pushRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Push sends one notification. Non-2xx responses are errors.
func (p *GatewayPusher) Push(ctx context.Context, userID uuid.UUID, title, body string) error {
	payload, err := json.Marshal(pushRequest{
		UserID: userID.String(),
		Title:  title,
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/push", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, snippet)
	}

	return nil
}
