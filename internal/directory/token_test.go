package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "prism/pkg/domain-errors"
)

func mintToken(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"aud": "https://graph.microsoft.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("fake-idp-key"))
	require.NoError(t, err)
	return signed
}

func newTokenClient(t *testing.T, baseURL string) *TokenClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewTokenClient(baseURL, "https://graph.microsoft.com/.default", 2*time.Second, logger, nil)
}

func TestAcquire_SendsClientCredentialsGrant(t *testing.T) {
	accessToken := mintToken(t)

	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dir-1/oauth2/v2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "app-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "https://graph.microsoft.com/.default", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   3599,
		})
	}))
	defer idp.Close()

	token, err := newTokenClient(t, idp.URL).Acquire(context.Background(), "dir-1", "app-1", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, accessToken, token)
}

func TestAcquire_NoTokenInResponseCarriesDiagnostics(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_client",
			"error_description": "AADSTS7000215: Invalid client secret provided.",
		})
	}))
	defer idp.Close()

	_, err := newTokenClient(t, idp.URL).Acquire(context.Background(), "dir-1", "app-1", "wrong")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstreamAuth))

	var domainErr *dErrors.Error
	require.ErrorAs(t, err, &domainErr)
	details, ok := domainErr.Details.(map[string]any)
	require.True(t, ok, "details carry the raw token endpoint response")
	assert.Equal(t, "invalid_client", details["error"])
}

func TestAcquire_NonJSONResponseStillDiagnosable(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer idp.Close()

	_, err := newTokenClient(t, idp.URL).Acquire(context.Background(), "dir-1", "app-1", "s3cret")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstreamAuth))
}

func TestAcquire_UnreachableEndpoint(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	idp.Close() // immediately, so the address refuses connections

	_, err := newTokenClient(t, idp.URL).Acquire(context.Background(), "dir-1", "app-1", "s3cret")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstreamAuth))
}
