package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pmetrics "prism/internal/platform/metrics"
	dErrors "prism/pkg/domain-errors"
)

// TokenClient exchanges a tenant's client credentials for a bearer token
// against the directory's OAuth token endpoint. The exchange itself is a
// black box: one POST, one token, no caching or refresh.
type TokenClient struct {
	httpClient *http.Client
	baseURL    string
	scope      string
	logger     *slog.Logger
	metrics    *pmetrics.Metrics
}

func NewTokenClient(baseURL, scope string, timeout time.Duration, logger *slog.Logger, metrics *pmetrics.Metrics) *TokenClient {
	return &TokenClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		scope:      scope,
		logger:     logger,
		metrics:    metrics,
	}
}

// Acquire performs the client-credentials grant for the given triplet.
// Any response without an access_token fails with an upstream auth error
// whose details carry the raw token endpoint response for diagnostics.
func (c *TokenClient) Acquire(ctx context.Context, directoryID, clientID, clientSecret string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("scope", c.scope)

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.baseURL, directoryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countFailure()
		return "", dErrors.Wrap(err, dErrors.CodeUpstreamAuth, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countFailure()
		return "", dErrors.Wrap(err, dErrors.CodeUpstreamAuth, "could not read token response")
	}

	// The diagnostic payload is whatever the endpoint returned, decoded when
	// possible so callers see structured OAuth error fields.
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		raw = map[string]any{"response": string(body)}
	}

	token, _ := raw["access_token"].(string)
	if token == "" {
		c.countFailure()
		c.logger.WarnContext(ctx, "token exchange yielded no access token",
			"status", resp.StatusCode,
			"directory", directoryID,
		)
		return "", dErrors.NewWithDetails(dErrors.CodeUpstreamAuth, "Failed to acquire token for tenant", raw)
	}

	c.logTokenExpiry(ctx, token, directoryID)
	return token, nil
}

// logTokenExpiry peeks at the token's exp claim for debug logs. The token is
// treated as opaque otherwise; no signature verification happens here.
func (c *TokenClient) logTokenExpiry(ctx context.Context, token, directoryID string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	c.logger.DebugContext(ctx, "acquired bearer token",
		"directory", directoryID,
		"expires_at", exp.UTC().Format(time.RFC3339),
	)
}

func (c *TokenClient) countFailure() {
	if c.metrics != nil {
		c.metrics.IncrementTokenFailures()
	}
}
