// Package mpl provides integration with the Magyar Posta (MPL) shipping
// API: shipment registration with an explicit close step, label
// retrieval, and async bulk tracking.
package mpl

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/asyncjob"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/transport"
)

// CarrierID identifies this adapter in the registry.
const CarrierID = "mpl"

// maxShipmentsPerBatch is the MPL request limit for shipment creation.
const maxShipmentsPerBatch = 100

// maxTrackingNumbersPerJob is the MPL limit for one bulk tracking job.
const maxTrackingNumbersPerJob = 500

// Delivery modes on the wire: home delivery and pickup-point delivery.
const (
	deliveryModeHome        = "HA"
	deliveryModePickupPoint = "CS"
)

// Config holds MPL adapter configuration. Credentials travel per
// request; the accounting code here is the default used when a request
// carries none.
type Config struct {
	BaseURL        string
	TestBaseURL    string
	TokenURL       string
	TestTokenURL   string
	AccountingCode string
	UseMock        bool // when true, uses the mock API client
}

// Client is the MPL adapter. It implements the carrier.Adapter interface
// and delegates API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new MPL adapter. If cfg.UseMock is true, it uses a mock
// API client for testing. Otherwise, it uses the real HTTP API client.
func New(cfg Config, httpClient *transport.Client, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			HTTP:         httpClient,
			BaseURL:      cfg.BaseURL,
			TestBaseURL:  cfg.TestBaseURL,
			TokenURL:     cfg.TokenURL,
			TestTokenURL: cfg.TestTokenURL,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new MPL adapter with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Descriptor returns the static capability declaration. Label generation
// only works on registered and closed shipments, hence the
// prerequisites.
func (c *Client) Descriptor() carrier.Descriptor {
	return carrier.Descriptor{
		ID:          CarrierID,
		DisplayName: "Magyar Posta",
		Capabilities: []carrier.Capability{
			carrier.CapCreateParcel,
			carrier.CapCreateParcels,
			carrier.CapCloseShipment,
			carrier.CapCreateLabel,
			carrier.CapCreateLabels,
			carrier.CapTrack,
			carrier.CapExchangeAuthToken,
			carrier.CapTestMode,
		},
		Requires: map[carrier.Capability][]carrier.Capability{
			carrier.CapCreateLabels: {carrier.CapCreateParcels, carrier.CapCloseShipment},
		},
	}
}

func (c *Client) accountingCode(opts carrier.Options) string {
	if opts.AccountingCode != "" {
		return opts.AccountingCode
	}
	return c.config.AccountingCode
}

// CreateParcel registers a single parcel as a batch of one.
func (c *Client) CreateParcel(ctx context.Context, req *carrier.CreateParcelRequest) (*carrier.CarrierResource, error) {
	resp, err := c.CreateParcels(ctx, &carrier.CreateParcelsRequest{
		Parcels:     []carrier.Parcel{req.Parcel},
		Credentials: req.Credentials,
		Options:     req.Options,
	})
	if err != nil {
		return nil, err
	}

	result := resp.Results[0]
	if result.Resource.Status == carrier.ResourceFailed {
		msg := "shipment rejected by MPL"
		code := ""
		if len(result.Errors) > 0 {
			msg = result.Errors[0].Message
			code = result.Errors[0].Code
		}
		return nil, carrier.NewError(CarrierID, carrier.Validation, msg).WithCode(code).WithRaw(result.Resource.Raw)
	}
	return &result.Resource, nil
}

// CreateParcels registers a batch of shipments. Invalid canonical input
// aborts the whole batch; item failures reported by MPL downgrade only
// the affected items. A created resource carries the tracking number as
// its carrier id.
func (c *Client) CreateParcels(ctx context.Context, req *carrier.CreateParcelsRequest) (*carrier.CreateParcelsResponse, error) {
	if err := carrier.ValidateBatchSize(CarrierID, len(req.Parcels), maxShipmentsPerBatch); err != nil {
		return nil, err
	}
	for i := range req.Parcels {
		if err := req.Parcels[i].Validate(); err != nil {
			return nil, err
		}
	}

	c.logger.Info("Creating MPL shipments",
		zap.Int("shipment_count", len(req.Parcels)),
		zap.Bool("test_mode", req.Options.UseTestAPI),
	)

	apiReq := &ShipmentsRequest{
		Credentials:    req.Credentials,
		UseTest:        req.Options.UseTestAPI,
		AccountingCode: c.accountingCode(req.Options),
	}
	for i := range req.Parcels {
		apiReq.Shipments = append(apiReq.Shipments, parcelToWire(&req.Parcels[i]))
	}

	apiResp, err := c.apiClient.CreateShipments(ctx, apiReq)
	if err != nil {
		c.logger.Error("MPL API error", zap.Error(err))
		return nil, carrier.WrapError(CarrierID, err)
	}

	results := make([]carrier.ParcelResult, 0, len(req.Parcels))
	for i := range req.Parcels {
		results = append(results, shipmentOutcome(&req.Parcels[i], apiResp))
	}
	return carrier.BuildParcelsResponse(results, apiResp), nil
}

// shipmentOutcome resolves one input parcel against the MPL response,
// matched by client reference. An input with no outcome is treated as
// failed.
func shipmentOutcome(p *carrier.Parcel, resp *ShipmentsResponse) carrier.ParcelResult {
	for _, out := range resp.Result {
		if out.ClientReference != p.ID {
			continue
		}
		if len(out.Errors) > 0 {
			itemErrs := make([]carrier.ItemError, 0, len(out.Errors))
			for _, f := range out.Errors {
				itemErrs = append(itemErrs, carrier.ItemError{Code: f.Code, Message: f.Text})
			}
			return carrier.ParcelResult{
				InputID:  p.ID,
				Resource: carrier.FailedResource(out),
				Errors:   itemErrs,
			}
		}
		return carrier.ParcelResult{
			InputID:  p.ID,
			Resource: carrier.CreatedResource(out.TrackingNumber, out),
		}
	}
	return carrier.ParcelResult{
		InputID:  p.ID,
		Resource: carrier.FailedResource(nil),
		Errors:   []carrier.ItemError{{Code: "MISSING", Message: "shipment missing from carrier response"}},
	}
}

// CloseShipment finalizes a shipment so labels can be generated.
func (c *Client) CloseShipment(ctx context.Context, req *carrier.CloseShipmentRequest) (*carrier.CarrierResource, error) {
	if req.ShipmentID == "" {
		return nil, carrier.NewError(CarrierID, carrier.Validation, "shipment id is required")
	}

	apiResp, err := c.apiClient.CloseShipment(ctx, &CloseRequest{
		Credentials:    req.Credentials,
		UseTest:        req.Options.UseTestAPI,
		AccountingCode: c.accountingCode(req.Options),
		ShipmentID:     req.ShipmentID,
	})
	if err != nil {
		c.logger.Error("MPL API error", zap.Error(err))
		return nil, carrier.WrapError(CarrierID, err)
	}
	if len(apiResp.Errors) > 0 {
		return nil, carrier.NewError(CarrierID, carrier.Validation, apiResp.Errors[0].Text).
			WithCode(apiResp.Errors[0].Code).WithRaw(apiResp)
	}

	resource := carrier.CreatedResource(apiResp.ShipmentID, apiResp)
	return &resource, nil
}

// CreateLabel generates a label for one shipment as a batch of one.
func (c *Client) CreateLabel(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.LabelResult, error) {
	resp, err := c.CreateLabels(ctx, &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{req.ParcelCarrierID},
		Credentials:      req.Credentials,
		Options:          req.Options,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Results[0], nil
}

// CreateLabels fetches labels for closed shipments by tracking number.
// A single-file request yields one combined PDF with one page per
// shipment; otherwise each shipment gets its own file.
func (c *Client) CreateLabels(ctx context.Context, req *carrier.CreateLabelsRequest) (*carrier.CreateLabelsResponse, error) {
	if err := carrier.ValidateBatchSize(CarrierID, len(req.ParcelCarrierIDs), maxShipmentsPerBatch); err != nil {
		return nil, err
	}

	apiResp, err := c.apiClient.GetLabels(ctx, &LabelsRequest{
		Credentials:     req.Credentials,
		UseTest:         req.Options.UseTestAPI,
		AccountingCode:  c.accountingCode(req.Options),
		TrackingNumbers: req.ParcelCarrierIDs,
		LabelType:       req.Options.LabelType,
		SingleFile:      req.Options.SingleFile,
	})
	if err != nil {
		c.logger.Error("MPL API error", zap.Error(err))
		return nil, carrier.WrapError(CarrierID, err)
	}

	results := make([]carrier.LabelResult, 0, len(req.ParcelCarrierIDs))
	var files []carrier.LabelFile

	for _, tn := range req.ParcelCarrierIDs {
		result := labelOutcome(tn, apiResp)
		if result.Status != carrier.ResourceFailed {
			if item, ok := result.Raw.(LabelItem); ok && item.Label != nil {
				data, err := carrier.DecodeLabelData(item.Label)
				if err != nil {
					return nil, carrier.WrapError(CarrierID, err)
				}
				file := carrier.NewLabelFile(data, "application/pdf", 1)
				files = append(files, file)
				result.FileID = file.ID
				result.PageRange = &carrier.PageRange{Start: 1, End: 1}
			}
		}
		results = append(results, result)
	}

	if len(apiResp.Combined) > 0 {
		file := carrier.NewLabelFile(apiResp.Combined, apiResp.ContentType, 0)
		file.Pages = carrier.AssignPageRanges(results, file.ID)
		files = append(files, file)
	}

	return carrier.BuildLabelsResponse(results, files, apiResp), nil
}

// labelOutcome resolves one tracking number against the labels response.
// On a combined response the carrier reports no per-item entries; every
// requested number is then taken as fulfilled.
func labelOutcome(trackingNumber string, resp *LabelsResponse) carrier.LabelResult {
	for _, item := range resp.Items {
		if item.TrackingNumber != trackingNumber {
			continue
		}
		if len(item.Errors) > 0 {
			itemErrs := make([]carrier.ItemError, 0, len(item.Errors))
			for _, f := range item.Errors {
				itemErrs = append(itemErrs, carrier.ItemError{Code: f.Code, Message: f.Text})
			}
			return carrier.LabelResult{
				InputID: trackingNumber,
				Status:  carrier.ResourceFailed,
				Errors:  itemErrs,
				Raw:     item,
			}
		}
		return carrier.LabelResult{
			InputID:   trackingNumber,
			Status:    carrier.ResourceCreated,
			CarrierID: trackingNumber,
			Raw:       item,
		}
	}
	if len(resp.Combined) > 0 {
		return carrier.LabelResult{
			InputID:   trackingNumber,
			Status:    carrier.ResourceCreated,
			CarrierID: trackingNumber,
		}
	}
	return carrier.LabelResult{
		InputID: trackingNumber,
		Status:  carrier.ResourceFailed,
		Errors:  []carrier.ItemError{{Code: "MISSING", Message: "shipment missing from carrier response"}},
	}
}

// Track queries a single number through the bulk tracking job.
func (c *Client) Track(ctx context.Context, req *carrier.TrackRequest) (*carrier.TrackingUpdate, error) {
	if req.TrackingNumber == "" {
		return nil, carrier.NewError(CarrierID, carrier.Validation, "tracking number is required")
	}

	updates, err := c.BulkTrack(ctx, []string{req.TrackingNumber}, req.Credentials, req.Options)
	if err != nil {
		return nil, err
	}
	return updates[0], nil
}

// BulkTrack runs one async tracking job for up to 500 numbers and
// returns one update per number, in input order. A number absent from
// the report yields an empty PENDING update.
func (c *Client) BulkTrack(ctx context.Context, trackingNumbers []string,
	creds carrier.Credentials, opts carrier.Options) ([]*carrier.TrackingUpdate, error) {

	if err := carrier.ValidateBatchSize(CarrierID, len(trackingNumbers), maxTrackingNumbersPerJob); err != nil {
		return nil, err
	}

	c.logger.Info("Starting MPL tracking job",
		zap.Int("number_count", len(trackingNumbers)),
		zap.Bool("test_mode", opts.UseTestAPI),
	)

	runner := asyncjob.Runner{CarrierID: CarrierID}
	report, err := runner.Run(ctx,
		func(ctx context.Context) (string, error) {
			resp, err := c.apiClient.SubmitTrackingJob(ctx, &TrackingJobRequest{
				Credentials:     creds,
				UseTest:         opts.UseTestAPI,
				AccountingCode:  c.accountingCode(opts),
				TrackingNumbers: trackingNumbers,
				Language:        opts.LanguageISOCode,
			})
			if err != nil {
				return "", carrier.WrapError(CarrierID, err)
			}
			if len(resp.Errors) > 0 {
				return "", carrier.NewError(CarrierID, carrier.Validation, resp.Errors[0].Text).
					WithCode(resp.Errors[0].Code).WithRaw(resp)
			}
			return resp.TrackingGUID, nil
		},
		func(ctx context.Context, guid string) (*asyncjob.PollResult, error) {
			resp, err := c.apiClient.PollTrackingJob(ctx, &TrackingPollRequest{
				Credentials:    creds,
				UseTest:        opts.UseTestAPI,
				AccountingCode: c.accountingCode(opts),
				GUID:           guid,
			})
			if err != nil {
				return nil, carrier.WrapError(CarrierID, err)
			}
			result := &asyncjob.PollResult{
				State:        asyncjob.State(resp.State),
				ReportFields: resp.ReportFields,
				Report:       resp.Report,
			}
			for _, f := range resp.Errors {
				result.Errors = append(result.Errors, f.Code)
			}
			return result, nil
		})
	if err != nil {
		return nil, err
	}

	byNumber := make(map[string][]carrier.TrackingEvent)
	for _, rec := range report.Records() {
		tn := rec["tracking"]
		if tn == "" {
			continue
		}
		byNumber[tn] = append(byNumber[tn], carrier.TrackingEvent{
			Timestamp:         parseReportDate(rec["date"]),
			Status:            MapStatus(rec["status"]),
			CarrierStatusCode: rec["status"],
			Description:       rec["status"],
			Raw:               rec,
		})
	}

	updates := make([]*carrier.TrackingUpdate, 0, len(trackingNumbers))
	for _, tn := range trackingNumbers {
		updates = append(updates, carrier.NewTrackingUpdate(tn, byNumber[tn], report))
	}
	return updates, nil
}

// ExchangeAuthToken proactively exchanges credentials for a bearer
// token.
func (c *Client) ExchangeAuthToken(ctx context.Context, req *carrier.ExchangeAuthTokenRequest) (*carrier.OAuthToken, error) {
	tok, err := c.apiClient.ExchangeToken(ctx, req.Credentials)
	if err != nil {
		c.logger.Error("MPL token exchange failed", zap.Error(err))
		return nil, carrier.WrapError(CarrierID, err)
	}
	return tok, nil
}

// FetchPickupPoints is not supported; MPL publishes no point feed on
// this API.
func (c *Client) FetchPickupPoints(ctx context.Context, req *carrier.PickupPointsRequest) (*carrier.PickupPointsResponse, error) {
	return nil, carrier.NewError(CarrierID, carrier.Permanent, "MPL does not publish a pickup point feed")
}

// ============================================================================
// Conversion helpers (canonical -> MPL wire)
// ============================================================================

func parcelToWire(p *carrier.Parcel) WireShipment {
	wire := WireShipment{
		ClientReference: p.ID,
		Sender:          addressToWire(p.Shipper.Address, p.Shipper.Contact),
		Weight:          p.Package.WeightGrams,
		DeliveryMode:    deliveryModeHome,
		Insurance:       p.Handling.InsuredValue,
	}
	if p.Service != "" {
		wire.Services = []string{p.Service}
	}
	if p.Handling.CODAmount > 0 {
		wire.COD = &WireCOD{Value: p.Handling.CODAmount, Currency: p.Handling.CODCurrency}
	}

	switch p.Recipient.Method {
	case carrier.DeliveryPickupPoint:
		wire.DeliveryMode = deliveryModePickupPoint
		wire.PickupPointID = p.Recipient.PickupPoint.ID
		wire.Recipient = WireAddress{
			Name:        p.Recipient.Contact.Name,
			Phone:       p.Recipient.Contact.Phone,
			Email:       p.Recipient.Contact.Email,
			CountryCode: p.Shipper.Address.CountryCode,
		}
	default:
		wire.Recipient = addressToWire(*p.Recipient.Address, p.Recipient.Contact)
	}
	return wire
}

func addressToWire(a carrier.Address, contact carrier.Contact) WireAddress {
	address := a.Street
	if a.HouseNumber != "" {
		address = fmt.Sprintf("%s %s", a.Street, a.HouseNumber)
	}
	return WireAddress{
		Name:        a.Name,
		PostCode:    a.PostalCode,
		City:        a.City,
		Address:     address,
		CountryCode: a.CountryCode,
		Phone:       contact.Phone,
		Email:       contact.Email,
		ContactName: contact.Name,
	}
}

// reportDateLayouts are the date spellings the bulk report uses.
var reportDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseReportDate(s string) time.Time {
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Ensure Client implements the adapter interface
var _ carrier.Adapter = (*Client)(nil)
