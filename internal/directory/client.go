package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// GraphClient issues single unpaged GETs against Graph-style collection
// endpoints and returns the raw objects untouched. Interpretation of the
// payload belongs to the aggregation fold, not the transport.
type GraphClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewGraphClient creates a client for the given API base URL. The timeout
// bounds each individual fetch so one hung upstream call cannot stall the
// fan-out indefinitely.
func NewGraphClient(baseURL string, timeout time.Duration, logger *slog.Logger) *GraphClient {
	return &GraphClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Collection fetches one collection endpoint (path may carry a query string)
// and returns the objects under the standard "value" wrapper.
func (c *GraphClient) Collection(ctx context.Context, token, path string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused; the body itself is only
		// interesting for the error message.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upstream returned %d for %s: %s", resp.StatusCode, path, string(snippet))
	}

	var payload struct {
		Value []map[string]any `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("could not decode %s response: %w", path, err)
	}
	if payload.Value == nil {
		return []map[string]any{}, nil
	}
	return payload.Value, nil
}
