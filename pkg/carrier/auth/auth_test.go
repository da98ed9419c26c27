package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/auth"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/transport"
)

func newHTTPClient() *transport.Client {
	return transport.New(transport.ClientConfig{}, otelzap.New(zap.NewNop()))
}

func basicCreds() carrier.Credentials {
	return carrier.Credentials{Kind: carrier.CredentialBasic, Username: "user", Password: "pass"}
}

func TestHeaders_Variants(t *testing.T) {
	h, err := auth.Headers(carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "k-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "k-1", h["Api-key"])

	h, err = auth.Headers(carrier.Credentials{Kind: carrier.CredentialOAuth2, BearerToken: "tok"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", h["Authorization"])

	h, err = auth.Headers(basicCreds(), map[string]string{"X-Accounting-Code": "ACC"})
	require.NoError(t, err)
	assert.Equal(t, auth.BasicHeader("user", "pass"), h["Authorization"])
	assert.Equal(t, "ACC", h["X-Accounting-Code"])

	_, err = auth.Headers(carrier.Credentials{Kind: carrier.CredentialAPIKey}, nil)
	require.Error(t, err)
	assert.Equal(t, carrier.Validation, carrier.CategoryOf(err))
}

func TestBasicHeader(t *testing.T) {
	// base64("user:pass")
	assert.Equal(t, "Basic dXNlcjpwYXNz", auth.BasicHeader("user", "pass"))
}

func TestTokenCache_Expiry(t *testing.T) {
	cache := &auth.TokenCache{}
	issued := time.Now()
	cache.Set(&carrier.OAuthToken{AccessToken: "tok", ExpiresIn: 1799, IssuedAt: issued})

	// Usable up to lifetime minus the 60s safety margin.
	tok, ok := cache.Get(issued.Add(1738 * time.Second))
	require.True(t, ok)
	assert.Equal(t, "tok", tok.AccessToken)

	_, ok = cache.Get(issued.Add(1739 * time.Second))
	assert.False(t, ok)
}

func TestTokenCache_LastWriteWins(t *testing.T) {
	cache := &auth.TokenCache{}
	now := time.Now()
	cache.Set(&carrier.OAuthToken{AccessToken: "first", ExpiresIn: 3600, IssuedAt: now})
	cache.Set(&carrier.OAuthToken{AccessToken: "second", ExpiresIn: 3600, IssuedAt: now})

	tok, ok := cache.Get(now)
	require.True(t, ok)
	assert.Equal(t, "second", tok.AccessToken)
}

func TestExchanger_Exchange(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "issued-token",
			"expires_in":   1799,
		})
	}))
	defer srv.Close()

	e := &auth.Exchanger{HTTP: newHTTPClient(), TokenURL: srv.URL, CarrierID: "mpl"}
	tok, err := e.Exchange(context.Background(), basicCreds())
	require.NoError(t, err)

	assert.Equal(t, auth.BasicHeader("user", "pass"), gotAuth)
	assert.Equal(t, "issued-token", tok.AccessToken)
	assert.Equal(t, 1799, tok.ExpiresIn)
	assert.Equal(t, "Bearer", tok.TokenType) // defaulted when absent
	assert.WithinDuration(t, time.Now(), tok.IssuedAt, time.Minute)
}

func TestExchanger_RejectsBearerCredentials(t *testing.T) {
	e := &auth.Exchanger{HTTP: newHTTPClient(), TokenURL: "http://unused", CarrierID: "mpl"}

	_, err := e.Exchange(context.Background(), carrier.Credentials{
		Kind: carrier.CredentialOAuth2, BearerToken: "tok",
	})
	require.Error(t, err)
	assert.Equal(t, carrier.Permanent, carrier.CategoryOf(err))
}

func TestExchanger_MalformedResponses(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing access_token", `{"expires_in":1799}`},
		{"empty access_token", `{"access_token":"","expires_in":1799}`},
		{"missing expires_in", `{"access_token":"tok"}`},
		{"expires_in not a number", `{"access_token":"tok","expires_in":"soon"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			e := &auth.Exchanger{HTTP: newHTTPClient(), TokenURL: srv.URL, CarrierID: "mpl"}
			_, err := e.Exchange(context.Background(), basicCreds())
			require.Error(t, err)
			assert.Equal(t, carrier.Permanent, carrier.CategoryOf(err))
		})
	}
}

func TestExchanger_UpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	e := &auth.Exchanger{HTTP: newHTTPClient(), TokenURL: srv.URL, CarrierID: "mpl"}
	_, err := e.Exchange(context.Background(), basicCreds())
	require.Error(t, err)
	assert.Equal(t, carrier.Auth, carrier.CategoryOf(err))
}

func TestIsBasicAuthDisabled(t *testing.T) {
	byCode := map[string]any{
		"fault": map[string]any{
			"faultstring": "something else",
			"detail":      map[string]any{"errorcode": "RaiseFault.BasicAuthNotEnabled"},
		},
	}
	assert.True(t, auth.IsBasicAuthDisabled(byCode))

	byString := map[string]any{
		"fault": map[string]any{
			"faultstring": "Gateway says: Basic authentication is not enabled for this endpoint",
		},
	}
	assert.True(t, auth.IsBasicAuthDisabled(byString))

	plain401 := map[string]any{"message": "bad credentials"}
	assert.False(t, auth.IsBasicAuthDisabled(plain401))
	assert.False(t, auth.IsBasicAuthDisabled(nil))
}

// fallbackHarness drives a Fallback against a fake API endpoint and a
// fake token endpoint, counting calls to each.
type fallbackHarness struct {
	fallback  *auth.Fallback
	apiCalls  int
	exchanges int
	// handler decides the API response from the Authorization header and
	// the call ordinal.
	handler func(authorization string, call int) (int, string)
	close   func()
}

func newFallbackHarness(t *testing.T) *fallbackHarness {
	t.Helper()
	h := &fallbackHarness{}

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.exchanges++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "exchanged-token", "expires_in": 1799})
	}))

	h.fallback = &auth.Fallback{
		Cache: &auth.TokenCache{},
		Exchanger: &auth.Exchanger{
			HTTP:      newHTTPClient(),
			TokenURL:  tokenSrv.URL,
			CarrierID: "mpl",
		},
		CarrierID: "mpl",
	}
	h.close = tokenSrv.Close
	return h
}

func (h *fallbackHarness) do(t *testing.T, creds carrier.Credentials) (*transport.Response, error) {
	t.Helper()
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.apiCalls++
		status, body := h.handler(r.Header.Get("Authorization"), h.apiCalls)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer apiSrv.Close()

	client := newHTTPClient()
	return h.fallback.Do(context.Background(), creds,
		func(ctx context.Context, authorization string) (*transport.Response, error) {
			return client.Post(ctx, apiSrv.URL, map[string]string{"op": "create"}, &transport.Config{
				Headers: map[string]string{"Authorization": authorization},
			})
		})
}

const basicAuthDisabledBody = `{"fault":{"faultstring":"Basic authentication is not enabled","detail":{"errorcode":"RaiseFault.BasicAuthNotEnabled"}}}`

func TestFallback_BasicSucceedsDirectly(t *testing.T) {
	h := newFallbackHarness(t)
	defer h.close()
	h.handler = func(authorization string, call int) (int, string) {
		assert.Equal(t, auth.BasicHeader("user", "pass"), authorization)
		return 200, `{"ok":true}`
	}

	resp, err := h.do(t, basicCreds())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 1, h.apiCalls)
	assert.Equal(t, 0, h.exchanges)
}

func TestFallback_ExchangesOnceOnBasicAuthDisabled(t *testing.T) {
	h := newFallbackHarness(t)
	defer h.close()
	h.handler = func(authorization string, call int) (int, string) {
		if call == 1 {
			assert.Equal(t, auth.BasicHeader("user", "pass"), authorization)
			return 401, basicAuthDisabledBody
		}
		assert.Equal(t, "Bearer exchanged-token", authorization)
		return 200, `{"ok":true}`
	}

	resp, err := h.do(t, basicCreds())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 2, h.apiCalls)
	assert.Equal(t, 1, h.exchanges)
}

func TestFallback_CachedTokenSkipsBasic(t *testing.T) {
	h := newFallbackHarness(t)
	defer h.close()
	h.fallback.Cache.Set(&carrier.OAuthToken{
		AccessToken: "cached-token", ExpiresIn: 3600, IssuedAt: time.Now(),
	})
	h.handler = func(authorization string, call int) (int, string) {
		assert.Equal(t, "Bearer cached-token", authorization)
		return 200, `{"ok":true}`
	}

	_, err := h.do(t, basicCreds())
	require.NoError(t, err)
	assert.Equal(t, 1, h.apiCalls)
	assert.Equal(t, 0, h.exchanges)
}

func TestFallback_SecondRejectionIsAuthError(t *testing.T) {
	h := newFallbackHarness(t)
	defer h.close()
	h.handler = func(authorization string, call int) (int, string) {
		if call == 1 {
			return 401, basicAuthDisabledBody
		}
		return 403, `{"message":"token lacks scope"}`
	}

	_, err := h.do(t, basicCreds())
	require.Error(t, err)
	assert.Equal(t, carrier.Auth, carrier.CategoryOf(err))
	assert.Contains(t, err.Error(), "after token exchange")
	assert.Equal(t, 2, h.apiCalls)
	assert.Equal(t, 1, h.exchanges)
}

func TestFallback_Plain401PassesThrough(t *testing.T) {
	h := newFallbackHarness(t)
	defer h.close()
	h.handler = func(authorization string, call int) (int, string) {
		return 401, `{"message":"bad credentials"}`
	}

	_, err := h.do(t, basicCreds())
	require.Error(t, err)

	var statusErr *transport.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 401, statusErr.Status)
	assert.Equal(t, 1, h.apiCalls)
	assert.Equal(t, 0, h.exchanges)
}

func TestFallback_ExchangedTokenIsCached(t *testing.T) {
	h := newFallbackHarness(t)
	defer h.close()
	h.handler = func(authorization string, call int) (int, string) {
		if call == 1 {
			return 401, basicAuthDisabledBody
		}
		assert.Equal(t, "Bearer exchanged-token", authorization)
		return 200, `{"ok":true}`
	}

	_, err := h.do(t, basicCreds())
	require.NoError(t, err)

	// A later call reuses the cached exchanged token without re-exchanging.
	_, err = h.do(t, basicCreds())
	require.NoError(t, err)
	assert.Equal(t, 3, h.apiCalls)
	assert.Equal(t, 1, h.exchanges)
}

func TestFallback_RejectsAPIKeyCredentials(t *testing.T) {
	h := newFallbackHarness(t)
	defer h.close()
	h.handler = func(authorization string, call int) (int, string) { return 200, `{}` }

	_, err := h.do(t, carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "k"})
	require.Error(t, err)
	assert.Equal(t, carrier.Validation, carrier.CategoryOf(err))
	assert.Equal(t, 0, h.apiCalls)
}
