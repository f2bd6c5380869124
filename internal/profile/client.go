package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds one relay round trip.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 1 << 20

// Client talks to the profile relay: one POST endpoint that takes a username
// and returns the user's public profile as JSON. Any non-200 status is a
// lookup failure; the relay does not distinguish "unknown user" from its own
// upstream errors.
type Client struct {
	url string
	hc  *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url: url,
		hc:  &http.Client{Timeout: DefaultTimeout},
	}
}

// Lookup fetches a user's profile. The returned bytes are the raw response
// body, verified to be JSON but otherwise untouched.
func (c *Client) Lookup(ctx context.Context, username string) (json.RawMessage, error) {
	if c.url == "" {
		return nil, fmt.Errorf("no relay endpoint configured")
	}
	body, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("relay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned %s", resp.Status)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("relay returned invalid JSON")
	}
	return json.RawMessage(raw), nil
}
