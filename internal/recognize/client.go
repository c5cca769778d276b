package recognize

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

// Identifier produces plant candidates for an image reachable at a URL.
type Identifier interface {
	Identify(ctx context.Context, imageURL string) ([]byte, error)
}

// ModelClient calls the recognition model HTTP API.
type ModelClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewModelClient constructs a client with the provided base URL.
func NewModelClient(baseURL, apiKey string) *ModelClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &ModelClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type identifyRequest struct {
	Image string `json:"image"`
}

// Identify posts the image URL to the model endpoint and returns the
// raw candidates payload, a JSON array of plant candidates.
func (c *ModelClient) Identify(ctx context.Context, imageURL string) ([]byte, error) {
	body, err := json.Marshal(identifyRequest{Image: imageURL})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/identify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call recognition model: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(payload, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("recognition model: %s", msg)
	}
	return payload, nil
}
