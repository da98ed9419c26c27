// Package auth implements the credential engine shared by carrier
// adapters: header construction for the credential variants, OAuth2
// token exchange with cached tokens, and the transparent Basic-to-Bearer
// fallback when a gateway reports basic auth disabled.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/transport"
)

// Gateway fault markers for the "basic auth disabled" condition. The
// gateway reports it on a 401 either by error code or fault string.
const (
	ErrorCodeBasicAuthDisabled = "RaiseFault.BasicAuthNotEnabled"
	faultBasicAuthDisabled     = "Basic authentication is not enabled"
)

// BasicHeader builds a Basic Authorization header value.
func BasicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// BearerHeader builds a Bearer Authorization header value.
func BearerHeader(token string) string {
	return "Bearer " + token
}

// RequestID returns a fresh per-request id for the X-Request-ID header.
func RequestID() string {
	return uuid.New().String()
}

// Headers builds the Authorization (and carrier-specific) headers for a
// credential variant. extra headers are merged in last.
func Headers(creds carrier.Credentials, extra map[string]string) (map[string]string, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	h := make(map[string]string, len(extra)+2)
	switch creds.Kind {
	case carrier.CredentialAPIKey:
		h["Api-key"] = creds.APIKey
	case carrier.CredentialOAuth2:
		h["Authorization"] = BearerHeader(creds.BearerToken)
	case carrier.CredentialBasic:
		h["Authorization"] = BasicHeader(creds.Username, creds.Password)
		if creds.APIKey != "" {
			h["Api-key"] = creds.APIKey
		}
	}
	for k, v := range extra {
		h[k] = v
	}
	return h, nil
}

// TokenCache holds the per-adapter-instance OAuth token. Concurrent
// refreshes may race; the cache accepts the last-written token and a
// superseded one is simply discarded on next use.
type TokenCache struct {
	mu  sync.Mutex
	tok *carrier.OAuthToken
}

// Get returns the cached token if it is still valid at now.
func (c *TokenCache) Get(now time.Time) (*carrier.OAuthToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tok != nil && c.tok.ValidAt(now) {
		return c.tok, true
	}
	return nil, false
}

// Set stores a token, last write wins.
func (c *TokenCache) Set(tok *carrier.OAuthToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tok = tok
}

// Exchanger exchanges credentials for a bearer token at the carrier's
// token endpoint.
type Exchanger struct {
	HTTP      *transport.Client
	TokenURL  string
	CarrierID string
}

// Exchange calls the token endpoint. It rejects oauth2 credentials
// outright (nothing to exchange) and validates the response shape:
// access_token must be a non-empty string and expires_in a number.
func (e *Exchanger) Exchange(ctx context.Context, creds carrier.Credentials) (*carrier.OAuthToken, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if creds.Kind == carrier.CredentialOAuth2 {
		return nil, carrier.NewError(e.CarrierID, carrier.Permanent, "token exchange requires api key or basic credentials, not a bearer token")
	}

	headers, err := Headers(creds, map[string]string{"X-Request-ID": RequestID()})
	if err != nil {
		return nil, err
	}

	body := map[string]string{"grant_type": "client_credentials"}
	resp, err := e.HTTP.Post(ctx, e.TokenURL, body, &transport.Config{Headers: headers})
	if err != nil {
		var se *transport.StatusError
		if errors.As(err, &se) {
			return nil, carrier.FromHTTPStatus(e.CarrierID, se.Status, "token exchange rejected").WithRaw(se.Response.Data)
		}
		return nil, carrier.WrapError(e.CarrierID, err)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, carrier.NewError(e.CarrierID, carrier.Permanent, "token endpoint returned malformed JSON").WithCause(err)
	}

	accessToken, ok := payload["access_token"].(string)
	if !ok || accessToken == "" {
		return nil, carrier.NewError(e.CarrierID, carrier.Permanent, "token response is missing a non-empty access_token")
	}
	expiresIn, ok := payload["expires_in"].(float64)
	if !ok {
		return nil, carrier.NewError(e.CarrierID, carrier.Permanent, "token response expires_in is missing or not a number")
	}
	tokenType, _ := payload["token_type"].(string)
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &carrier.OAuthToken{
		AccessToken: accessToken,
		TokenType:   tokenType,
		ExpiresIn:   int(expiresIn),
		IssuedAt:    time.Now(),
	}, nil
}

// gatewayFault is the fault envelope the gateway wraps 401 bodies in.
type gatewayFault struct {
	Fault struct {
		FaultString string `json:"faultstring"`
		Detail      struct {
			ErrorCode string `json:"errorcode"`
		} `json:"detail"`
	} `json:"fault"`
}

// IsBasicAuthDisabled reports whether a 401 body carries the
// basic-auth-disabled fault, by error code or fault string substring.
func IsBasicAuthDisabled(data any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	var f gatewayFault
	if err := json.Unmarshal(raw, &f); err != nil {
		return false
	}
	if f.Fault.Detail.ErrorCode == ErrorCodeBasicAuthDisabled {
		return true
	}
	return strings.Contains(f.Fault.FaultString, faultBasicAuthDisabled)
}

// Fallback wires the Basic-to-Bearer exchange: when a call authenticated
// with Basic credentials fails with the basic-auth-disabled 401, it
// exchanges the same credentials for a token, caches it for its reported
// lifetime minus the safety margin, and retries the call exactly once.
type Fallback struct {
	Cache     *TokenCache
	Exchanger *Exchanger
	CarrierID string
}

// Do invokes call with an Authorization header. A valid cached token is
// preferred; otherwise Basic credentials are tried first. A second
// authentication failure after the exchange surfaces as Auth.
func (f *Fallback) Do(ctx context.Context, creds carrier.Credentials,
	call func(ctx context.Context, authorization string) (*transport.Response, error)) (*transport.Response, error) {

	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if tok, ok := f.Cache.Get(time.Now()); ok {
		return call(ctx, BearerHeader(tok.AccessToken))
	}

	var authorization string
	switch creds.Kind {
	case carrier.CredentialBasic:
		authorization = BasicHeader(creds.Username, creds.Password)
	case carrier.CredentialOAuth2:
		authorization = BearerHeader(creds.BearerToken)
	default:
		return nil, carrier.NewError(f.CarrierID, carrier.Validation, "fallback auth requires basic or oauth2 credentials")
	}

	resp, err := call(ctx, authorization)
	if err == nil {
		return resp, nil
	}

	var se *transport.StatusError
	if !errors.As(err, &se) || se.Status != 401 || !IsBasicAuthDisabled(se.Response.Data) {
		return nil, err
	}
	if creds.Kind != carrier.CredentialBasic {
		return nil, carrier.FromHTTPStatus(f.CarrierID, se.Status, "authentication rejected").WithRaw(se.Response.Data)
	}

	tok, err := f.Exchanger.Exchange(ctx, creds)
	if err != nil {
		return nil, err
	}
	f.Cache.Set(tok)

	resp, err = call(ctx, BearerHeader(tok.AccessToken))
	if err != nil {
		if errors.As(err, &se) && (se.Status == 401 || se.Status == 403) {
			return nil, carrier.NewError(f.CarrierID, carrier.Auth,
				fmt.Sprintf("authentication still rejected after token exchange (HTTP %d)", se.Status)).
				WithRaw(se.Response.Data)
		}
		return nil, err
	}
	return resp, nil
}
