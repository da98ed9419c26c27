package mpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/auth"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/transport"
)

const (
	defaultBaseURL      = "https://core.api.posta.hu/v2/mplapi"
	defaultTestBaseURL  = "https://sandbox.api.posta.hu/v2/mplapi"
	defaultTokenURL     = "https://core.api.posta.hu/oauth2/token"
	defaultTestTokenURL = "https://sandbox.api.posta.hu/oauth2/token"
)

// HTTPAPIClient is the production implementation of APIClient. Every
// call runs through the auth fallback: Basic credentials are tried
// first and transparently exchanged for a bearer token when the gateway
// reports basic auth disabled. Production and sandbox keep separate
// token caches.
type HTTPAPIClient struct {
	http         *transport.Client
	baseURL      string
	testBaseURL  string
	fallback     *auth.Fallback
	testFallback *auth.Fallback
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	HTTP         *transport.Client
	BaseURL      string
	TestBaseURL  string
	TokenURL     string
	TestTokenURL string
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	testBaseURL := cfg.TestBaseURL
	if testBaseURL == "" {
		testBaseURL = defaultTestBaseURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	testTokenURL := cfg.TestTokenURL
	if testTokenURL == "" {
		testTokenURL = defaultTestTokenURL
	}

	return &HTTPAPIClient{
		http:        cfg.HTTP,
		baseURL:     baseURL,
		testBaseURL: testBaseURL,
		fallback: &auth.Fallback{
			Cache:     &auth.TokenCache{},
			Exchanger: &auth.Exchanger{HTTP: cfg.HTTP, TokenURL: tokenURL, CarrierID: CarrierID},
			CarrierID: CarrierID,
		},
		testFallback: &auth.Fallback{
			Cache:     &auth.TokenCache{},
			Exchanger: &auth.Exchanger{HTTP: cfg.HTTP, TokenURL: testTokenURL, CarrierID: CarrierID},
			CarrierID: CarrierID,
		},
	}
}

func (c *HTTPAPIClient) apiURL(useTest bool, path string) string {
	if useTest {
		return c.testBaseURL + path
	}
	return c.baseURL + path
}

func (c *HTTPAPIClient) auth(useTest bool) *auth.Fallback {
	if useTest {
		return c.testFallback
	}
	return c.fallback
}

// requestHeaders builds the per-call headers. The accounting code names
// the postal account the call bills to; the request id makes the call
// traceable at the gateway.
func requestHeaders(authorization, accountingCode string) map[string]string {
	h := map[string]string{
		"Authorization": authorization,
		"X-Request-ID":  auth.RequestID(),
	}
	if accountingCode != "" {
		h["X-Accounting-Code"] = accountingCode
	}
	return h
}

// CreateShipments registers shipments. POST /shipments
func (c *HTTPAPIClient) CreateShipments(ctx context.Context, req *ShipmentsRequest) (*ShipmentsResponse, error) {
	resp, err := c.auth(req.UseTest).Do(ctx, req.Credentials,
		func(ctx context.Context, authorization string) (*transport.Response, error) {
			return c.http.Post(ctx, c.apiURL(req.UseTest, "/shipments"), req, &transport.Config{
				Headers: requestHeaders(authorization, req.AccountingCode),
			})
		})
	if err != nil {
		return nil, translateError(err)
	}

	var result ShipmentsResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode shipments response").WithCause(err)
	}
	return &result, nil
}

// CloseShipment finalizes a shipment. POST /shipments/{id}/close
func (c *HTTPAPIClient) CloseShipment(ctx context.Context, req *CloseRequest) (*CloseResponse, error) {
	path := fmt.Sprintf("/shipments/%s/close", req.ShipmentID)
	resp, err := c.auth(req.UseTest).Do(ctx, req.Credentials,
		func(ctx context.Context, authorization string) (*transport.Response, error) {
			return c.http.Post(ctx, c.apiURL(req.UseTest, path), nil, &transport.Config{
				Headers: requestHeaders(authorization, req.AccountingCode),
			})
		})
	if err != nil {
		return nil, translateError(err)
	}

	var result CloseResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode close response").WithCause(err)
	}
	if result.ShipmentID == "" {
		result.ShipmentID = req.ShipmentID
	}
	return &result, nil
}

// GetLabels fetches labels. GET /shipments/label
// A single-file request asks for the combined PDF directly and receives
// raw bytes; otherwise the response is JSON with per-shipment payloads.
func (c *HTTPAPIClient) GetLabels(ctx context.Context, req *LabelsRequest) (*LabelsResponse, error) {
	cfg := &transport.Config{
		Params: map[string]string{
			"trackingNumbers": strings.Join(req.TrackingNumbers, ","),
		},
	}
	if req.LabelType != "" {
		cfg.Params["labelType"] = req.LabelType
	}
	if req.SingleFile {
		cfg.ResponseType = transport.ResponseArrayBuffer
	}

	resp, err := c.auth(req.UseTest).Do(ctx, req.Credentials,
		func(ctx context.Context, authorization string) (*transport.Response, error) {
			headers := requestHeaders(authorization, req.AccountingCode)
			if req.SingleFile {
				headers["Accept"] = "application/pdf"
			}
			callCfg := *cfg
			callCfg.Headers = headers
			return c.http.Get(ctx, c.apiURL(req.UseTest, "/shipments/label"), &callCfg)
		})
	if err != nil {
		return nil, translateError(err)
	}

	contentType := resp.Headers.Get("Content-Type")
	if req.SingleFile && !strings.Contains(strings.ToLower(contentType), "application/json") {
		return &LabelsResponse{ContentType: contentType, Combined: resp.Body}, nil
	}

	var result LabelsResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode labels response").WithCause(err)
	}
	return &result, nil
}

// SubmitTrackingJob starts a bulk tracking query. POST /tracking/batch
func (c *HTTPAPIClient) SubmitTrackingJob(ctx context.Context, req *TrackingJobRequest) (*TrackingJobResponse, error) {
	resp, err := c.auth(req.UseTest).Do(ctx, req.Credentials,
		func(ctx context.Context, authorization string) (*transport.Response, error) {
			return c.http.Post(ctx, c.apiURL(req.UseTest, "/tracking/batch"), req, &transport.Config{
				Headers: requestHeaders(authorization, req.AccountingCode),
			})
		})
	if err != nil {
		return nil, translateError(err)
	}

	var result TrackingJobResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode tracking job response").WithCause(err)
	}
	return &result, nil
}

// PollTrackingJob polls a tracking job. GET /tracking/batch/{guid}
func (c *HTTPAPIClient) PollTrackingJob(ctx context.Context, req *TrackingPollRequest) (*TrackingPollResponse, error) {
	path := fmt.Sprintf("/tracking/batch/%s", req.GUID)
	resp, err := c.auth(req.UseTest).Do(ctx, req.Credentials,
		func(ctx context.Context, authorization string) (*transport.Response, error) {
			return c.http.Get(ctx, c.apiURL(req.UseTest, path), &transport.Config{
				Headers: requestHeaders(authorization, req.AccountingCode),
			})
		})
	if err != nil {
		return nil, translateError(err)
	}

	var result TrackingPollResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode tracking poll response").WithCause(err)
	}
	return &result, nil
}

// ExchangeToken exchanges credentials for a bearer token at the
// production token endpoint and primes the fallback cache with it.
func (c *HTTPAPIClient) ExchangeToken(ctx context.Context, creds carrier.Credentials) (*carrier.OAuthToken, error) {
	tok, err := c.fallback.Exchanger.Exchange(ctx, creds)
	if err != nil {
		return nil, err
	}
	c.fallback.Cache.Set(tok)
	return tok, nil
}

// translateError maps transport failures to carrier errors using the
// shared status taxonomy. The upstream Retry-After hint survives the
// translation.
func translateError(err error) error {
	var se *transport.StatusError
	if errors.As(err, &se) {
		return carrier.FromHTTPStatus(CarrierID, se.Status, "MPL request rejected").
			WithRetryAfter(se.RetryAfter).
			WithRaw(se.Response.Data)
	}
	return carrier.WrapError(CarrierID, err)
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
