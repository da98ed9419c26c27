package gls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/auth"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/transport"
)

const (
	defaultBaseURL     = "https://api.mygls.hu/ParcelService.svc/json"
	defaultTestBaseURL = "https://testapi.mygls.hu/ParcelService.svc/json"
	defaultFeedURL     = "https://map.gls-hungary.com/data/deliveryPoints"
	defaultTestFeedURL = "https://testmap.gls-hungary.com/data/deliveryPoints"
)

// HTTPAPIClient is the production implementation of APIClient. The
// test-mode flag travels on each request, so one client serves both the
// production and sandbox endpoints.
type HTTPAPIClient struct {
	http        *transport.Client
	baseURL     string
	testBaseURL string
	feedURL     string
	testFeedURL string
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	HTTP        *transport.Client
	BaseURL     string
	TestBaseURL string
	FeedURL     string // public pickup-point feed, no credentials
	TestFeedURL string
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	c := &HTTPAPIClient{
		http:        cfg.HTTP,
		baseURL:     cfg.BaseURL,
		testBaseURL: cfg.TestBaseURL,
		feedURL:     cfg.FeedURL,
		testFeedURL: cfg.TestFeedURL,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.testBaseURL == "" {
		c.testBaseURL = defaultTestBaseURL
	}
	if c.feedURL == "" {
		c.feedURL = defaultFeedURL
	}
	if c.testFeedURL == "" {
		c.testFeedURL = defaultTestFeedURL
	}
	return c
}

func (c *HTTPAPIClient) apiURL(useTest bool, path string) string {
	if useTest {
		return c.testBaseURL + path
	}
	return c.baseURL + path
}

// CreateParcels registers a batch of parcels. POST /PrepareLabels
func (c *HTTPAPIClient) CreateParcels(ctx context.Context, req *ParcelListRequest) (*ParcelListResponse, error) {
	headers, err := auth.Headers(req.Credentials, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(ctx, c.apiURL(req.UseTest, "/PrepareLabels"), req, &transport.Config{Headers: headers})
	if err != nil {
		return nil, translateError(err)
	}

	var result ParcelListResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode parcel list response").WithCause(err)
	}
	return &result, nil
}

// PrintLabels generates labels. POST /GetPrintedLabels
func (c *HTTPAPIClient) PrintLabels(ctx context.Context, req *PrintLabelsRequest) (*PrintLabelsResponse, error) {
	headers, err := auth.Headers(req.Credentials, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(ctx, c.apiURL(req.UseTest, "/GetPrintedLabels"), req, &transport.Config{Headers: headers})
	if err != nil {
		return nil, translateError(err)
	}

	var result PrintLabelsResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode print labels response").WithCause(err)
	}
	return &result, nil
}

// GetParcelStatuses fetches tracking history. GET /GetParcelStatuses
func (c *HTTPAPIClient) GetParcelStatuses(ctx context.Context, req *ParcelStatusRequest) (*ParcelStatusResponse, error) {
	headers, err := auth.Headers(req.Credentials, nil)
	if err != nil {
		return nil, err
	}

	params := map[string]string{"parcelNumber": req.ParcelNumber}
	if req.LanguageIsoCode != "" {
		params["languageIsoCode"] = req.LanguageIsoCode
	}
	if req.ReturnPOD {
		params["returnPOD"] = "true"
	}

	resp, err := c.http.Get(ctx, c.apiURL(req.UseTest, "/GetParcelStatuses"), &transport.Config{
		Headers: headers,
		Params:  params,
	})
	if err != nil {
		return nil, translateError(err)
	}

	var result ParcelStatusResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode parcel status response").WithCause(err)
	}
	if result.ParcelNumber == "" {
		result.ParcelNumber = req.ParcelNumber
	}
	return &result, nil
}

// GetDeliveryPoints fetches the public pickup-point feed for a country.
// The feed needs no credentials.
func (c *HTTPAPIClient) GetDeliveryPoints(ctx context.Context, req *DeliveryPointsRequest) (*DeliveryPointsResponse, error) {
	base := c.feedURL
	if req.UseTest {
		base = c.testFeedURL
	}

	resp, err := c.http.Get(ctx, fmt.Sprintf("%s/%s.json", base, req.Country), nil)
	if err != nil {
		return nil, translateFeedError(req.Country, err)
	}

	var feed deliveryPointsFeed
	if err := json.Unmarshal(resp.Body, &feed); err != nil {
		return nil, carrier.NewError(CarrierID, carrier.Transient, "failed to decode delivery points feed").WithCause(err)
	}
	return &DeliveryPointsResponse{Items: feed.items()}, nil
}

// translateError maps transport failures to carrier errors using the
// shared status taxonomy. The upstream Retry-After hint survives the
// translation.
func translateError(err error) error {
	var se *transport.StatusError
	if errors.As(err, &se) {
		return carrier.FromHTTPStatus(CarrierID, se.Status, "GLS request rejected").
			WithRetryAfter(se.RetryAfter).
			WithRaw(se.Response.Data)
	}
	return carrier.WrapError(CarrierID, err)
}

// translateFeedError maps feed failures. The feed is an unauthenticated
// static file, so 401/403 means the path is gone for good, not that
// credentials were wrong, and 400/404 means the country is not served.
func translateFeedError(country string, err error) error {
	var se *transport.StatusError
	if !errors.As(err, &se) {
		return carrier.WrapError(CarrierID, err)
	}
	switch {
	case se.Status == 400 || se.Status == 404:
		return carrier.NewError(CarrierID, carrier.Validation,
			fmt.Sprintf("country not found in pickup point feed: %s", country)).WithRaw(se.Response.Data)
	case se.Status == 401 || se.Status == 403:
		return carrier.NewError(CarrierID, carrier.Permanent,
			fmt.Sprintf("pickup point feed refused access (HTTP %d)", se.Status)).WithRaw(se.Response.Data)
	case se.Status >= 500:
		return carrier.NewError(CarrierID, carrier.Transient,
			fmt.Sprintf("pickup point feed unavailable (HTTP %d)", se.Status)).WithRaw(se.Response.Data)
	default:
		return carrier.FromHTTPStatus(CarrierID, se.Status, "pickup point feed request rejected").WithRaw(se.Response.Data)
	}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
