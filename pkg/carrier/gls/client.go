// Package gls provides integration with the GLS CEE parcel API and the
// public GLS pickup-point feed.
package gls

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/transport"
)

// CarrierID identifies this adapter in the registry.
const CarrierID = "gls"

// maxParcelsPerBatch is the GLS request limit. Larger batches are
// rejected up front, before any HTTP call.
const maxParcelsPerBatch = 100

// servicePSD is the parcel-shop-delivery service flag.
const servicePSD = "PSD"

// supportedFeedCountries are the countries the pickup-point feed serves.
var supportedFeedCountries = map[string]bool{
	"HU": true, "SK": true, "CZ": true, "RO": true, "SI": true, "HR": true,
}

// Config holds GLS adapter configuration. Credentials travel per request,
// not here.
type Config struct {
	BaseURL     string
	TestBaseURL string
	FeedURL     string
	TestFeedURL string
	UseMock     bool // when true, uses the mock API client
}

// Client is the GLS adapter. It implements the carrier.Adapter interface
// and delegates API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new GLS adapter. If cfg.UseMock is true, it uses a mock
// API client for testing. Otherwise, it uses the real HTTP API client.
func New(cfg Config, httpClient *transport.Client, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			HTTP:        httpClient,
			BaseURL:     cfg.BaseURL,
			TestBaseURL: cfg.TestBaseURL,
			FeedURL:     cfg.FeedURL,
			TestFeedURL: cfg.TestFeedURL,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new GLS adapter with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Descriptor returns the static capability declaration.
func (c *Client) Descriptor() carrier.Descriptor {
	return carrier.Descriptor{
		ID:          CarrierID,
		DisplayName: "GLS",
		Capabilities: []carrier.Capability{
			carrier.CapCreateParcel,
			carrier.CapCreateParcels,
			carrier.CapCreateLabel,
			carrier.CapCreateLabels,
			carrier.CapTrack,
			carrier.CapFetchPickupPoints,
			carrier.CapTestMode,
		},
		Requires: map[carrier.Capability][]carrier.Capability{
			carrier.CapCreateLabel:  {carrier.CapCreateParcel},
			carrier.CapCreateLabels: {carrier.CapCreateParcels},
		},
	}
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
		msg := "parcel rejected by GLS"
		code := ""
		if len(result.Errors) > 0 {
			msg = result.Errors[0].Message
			code = result.Errors[0].Code
		}
		return nil, carrier.NewError(CarrierID, carrier.Validation, msg).WithCode(code).WithRaw(result.Resource.Raw)
	}
	return &result.Resource, nil
}

// CreateParcels registers a batch of parcels. Invalid canonical input
// aborts the whole batch; item failures reported by GLS downgrade only
// the affected items.
func (c *Client) CreateParcels(ctx context.Context, req *carrier.CreateParcelsRequest) (*carrier.CreateParcelsResponse, error) {
	if err := carrier.ValidateBatchSize(CarrierID, len(req.Parcels), maxParcelsPerBatch); err != nil {
		return nil, err
	}
	for i := range req.Parcels {
		if err := req.Parcels[i].Validate(); err != nil {
			return nil, err
		}
	}

	c.logger.Info("Creating GLS parcels",
		zap.Int("parcel_count", len(req.Parcels)),
		zap.Bool("test_mode", req.Options.UseTestAPI),
	)

	apiReq := &ParcelListRequest{
		Credentials: req.Credentials,
		UseTest:     req.Options.UseTestAPI,
	}
	for i := range req.Parcels {
		apiReq.ParcelList = append(apiReq.ParcelList, parcelToWire(&req.Parcels[i]))
	}

	apiResp, err := c.apiClient.CreateParcels(ctx, apiReq)
	if err != nil {
		c.logger.Error("GLS API error", zap.Error(err))
		return nil, carrier.WrapError(CarrierID, err)
	}

	results := make([]carrier.ParcelResult, 0, len(req.Parcels))
	for i := range req.Parcels {
		results = append(results, parcelOutcome(&req.Parcels[i], apiResp))
	}
	return carrier.BuildParcelsResponse(results, apiResp), nil
}

// parcelOutcome resolves one input parcel against the GLS response. The
// response lists successes and failures separately, keyed by client
// reference; an input absent from both is treated as failed.
func parcelOutcome(p *carrier.Parcel, resp *ParcelListResponse) carrier.ParcelResult {
	for _, info := range resp.ParcelInfoList {
		if info.ClientReference == p.ID {
			return carrier.ParcelResult{
				InputID:  p.ID,
				Resource: carrier.CreatedResource(strconv.FormatInt(info.ParcelID, 10), info),
			}
		}
	}
	for _, we := range resp.ErrorList {
		for _, ref := range we.ClientReferenceList {
			if ref == p.ID {
				return carrier.ParcelResult{
					InputID:  p.ID,
					Resource: carrier.FailedResource(we),
					Errors: []carrier.ItemError{{
						Code:    strconv.Itoa(we.ErrorCode),
						Message: we.ErrorDescription,
					}},
				}
			}
		}
	}
	return carrier.ParcelResult{
		InputID:  p.ID,
		Resource: carrier.FailedResource(nil),
		Errors:   []carrier.ItemError{{Code: "MISSING", Message: "parcel missing from carrier response"}},
	}
}

// CreateLabel generates a label for one parcel as a batch of one.
func (c *Client) CreateLabel(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.LabelResult, error) {
	batchReq := &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{req.ParcelCarrierID},
		Credentials:      req.Credentials,
		Options:          req.Options,
	}
	if req.Parcel != nil {
		batchReq.Parcels = []carrier.Parcel{*req.Parcel}
	}

	resp, err := c.CreateLabels(ctx, batchReq)
	if err != nil {
		return nil, err
	}
	return &resp.Results[0], nil
}

// CreateLabels generates labels for a batch of already-registered
// parcels. GLS returns one combined PDF by default; when it chooses to
// split, each parcel's label arrives inside its print-data entry and the
// response yields one file per parcel instead.
func (c *Client) CreateLabels(ctx context.Context, req *carrier.CreateLabelsRequest) (*carrier.CreateLabelsResponse, error) {
	if err := carrier.ValidateBatchSize(CarrierID, len(req.ParcelCarrierIDs), maxParcelsPerBatch); err != nil {
		return nil, err
	}

	apiReq := &PrintLabelsRequest{
		Credentials: req.Credentials,
		UseTest:     req.Options.UseTestAPI,
		SingleFile:  req.Options.SingleFile,
	}
	if req.Options.LabelType != "" {
		apiReq.TypeOfPrinter = req.Options.LabelType
	}
	for i, id := range req.ParcelCarrierIDs {
		if parcelID, numeric := parseParcelID(id); numeric {
			apiReq.ParcelIDList = append(apiReq.ParcelIDList, parcelID)
			continue
		}
		// Reference-only entry: GLS resolves the parcel by client
		// reference, but the wire schema still requires address blocks.
		apiReq.ParcelList = append(apiReq.ParcelList, labelParcelToWire(id, req.Parcels, i))
	}

	c.logger.Info("Printing GLS labels",
		zap.Int("parcel_count", len(req.ParcelCarrierIDs)),
		zap.Bool("test_mode", req.Options.UseTestAPI),
	)

	apiResp, err := c.apiClient.PrintLabels(ctx, apiReq)
	if err != nil {
		c.logger.Error("GLS API error", zap.Error(err))
		return nil, carrier.WrapError(CarrierID, err)
	}

	results := make([]carrier.LabelResult, 0, len(req.ParcelCarrierIDs))
	var files []carrier.LabelFile
	perParcel := false

	for _, rawID := range req.ParcelCarrierIDs {
		result := labelOutcome(rawID, apiResp)
		if result.Status != carrier.ResourceFailed {
			if info, ok := result.Raw.(PrintDataInfo); ok && info.Labels != nil {
				data, err := carrier.DecodeLabelData(info.Labels)
				if err != nil {
					return nil, carrier.WrapError(CarrierID, err)
				}
				file := carrier.NewLabelFile(data, "application/pdf", 1)
				files = append(files, file)
				result.FileID = file.ID
				result.PageRange = &carrier.PageRange{Start: 1, End: 1}
				perParcel = true
			}
		}
		results = append(results, result)
	}

	// Combined document: one file, one page per successful parcel, in
	// result order.
	if !perParcel && apiResp.Labels != nil {
		data, err := carrier.DecodeLabelData(apiResp.Labels)
		if err != nil {
			return nil, carrier.WrapError(CarrierID, err)
		}
		if len(data) > 0 {
			file := carrier.NewLabelFile(data, "application/pdf", 0)
			file.Pages = carrier.AssignPageRanges(results, file.ID)
			files = append(files, file)
		}
	}

	return carrier.BuildLabelsResponse(results, files, apiResp), nil
}

// labelOutcome resolves one requested id against the print response. GLS
// echoes the client reference on print-data entries; numeric requests may
// instead come back keyed by parcel id, and the error list keys failures
// either way.
func labelOutcome(rawID string, resp *PrintLabelsResponse) carrier.LabelResult {
	parcelID, numeric := parseParcelID(rawID)
	for _, info := range resp.PrintDataInfoList {
		if info.ClientReference == rawID || (numeric && info.ParcelID == parcelID) {
			return carrier.LabelResult{
				InputID:   rawID,
				Status:    carrier.ResourceCreated,
				CarrierID: parcelNumberOf(rawID, info),
				Raw:       info,
			}
		}
	}
	for _, we := range resp.ErrorList {
		if matchesWireError(we, rawID, parcelID, numeric) {
			return carrier.LabelResult{
				InputID: rawID,
				Status:  carrier.ResourceFailed,
				Errors: []carrier.ItemError{{
					Code:    strconv.Itoa(we.ErrorCode),
					Message: we.ErrorDescription,
				}},
				Raw: we,
			}
		}
	}
	return carrier.LabelResult{
		InputID: rawID,
		Status:  carrier.ResourceFailed,
		Errors:  []carrier.ItemError{{Code: "MISSING", Message: "parcel missing from carrier response"}},
	}
}

func parseParcelID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil
}

// parcelNumberOf picks the tracking number for a printed entry, falling
// back through the entry's identifiers to the requested id.
func parcelNumberOf(rawID string, info PrintDataInfo) string {
	switch {
	case info.ParcelNumber != 0:
		return strconv.FormatInt(info.ParcelNumber, 10)
	case info.ParcelID != 0:
		return strconv.FormatInt(info.ParcelID, 10)
	default:
		return rawID
	}
}

func matchesWireError(we WireError, rawID string, parcelID int64, numeric bool) bool {
	for _, ref := range we.ClientReferenceList {
		if ref == rawID {
			return true
		}
	}
	if numeric {
		for _, id := range we.ParcelIDList {
			if id == parcelID {
				return true
			}
		}
	}
	return false
}

// CloseShipment is not supported by GLS; labels print directly from
// registered parcels.
func (c *Client) CloseShipment(ctx context.Context, req *carrier.CloseShipmentRequest) (*carrier.CarrierResource, error) {
	return nil, carrier.NewError(CarrierID, carrier.Permanent, "GLS has no shipment close step")
}

// Track fetches and normalizes the tracking history of one parcel.
func (c *Client) Track(ctx context.Context, req *carrier.TrackRequest) (*carrier.TrackingUpdate, error) {
	if req.TrackingNumber == "" {
		return nil, carrier.NewError(CarrierID, carrier.Validation, "tracking number is required")
	}

	apiResp, err := c.apiClient.GetParcelStatuses(ctx, &ParcelStatusRequest{
		Credentials:     req.Credentials,
		UseTest:         req.Options.UseTestAPI,
		ParcelNumber:    req.TrackingNumber,
		LanguageIsoCode: req.Options.LanguageISOCode,
		ReturnPOD:       req.Options.ReturnPOD,
	})
	if err != nil {
		c.logger.Error("GLS API error", zap.Error(err))
		return nil, carrier.WrapError(CarrierID, err)
	}

	events := make([]carrier.TrackingEvent, 0, len(apiResp.ParcelStatusList))
	for _, entry := range apiResp.ParcelStatusList {
		events = append(events, carrier.TrackingEvent{
			Timestamp:         parseStatusDate(entry.StatusDate),
			Status:            MapStatusCode(entry.StatusCode),
			CarrierStatusCode: entry.StatusCode,
			Location:          entry.DepotCity,
			Description:       entry.StatusDescription,
			Raw:               entry,
		})
	}
	return carrier.NewTrackingUpdate(req.TrackingNumber, events, apiResp), nil
}

// ExchangeAuthToken is not supported; GLS authenticates every call
// directly.
func (c *Client) ExchangeAuthToken(ctx context.Context, req *carrier.ExchangeAuthTokenRequest) (*carrier.OAuthToken, error) {
	return nil, carrier.NewError(CarrierID, carrier.Permanent, "GLS does not issue auth tokens")
}

// FetchPickupPoints fetches and normalizes the pickup-point feed for a
// country.
func (c *Client) FetchPickupPoints(ctx context.Context, req *carrier.PickupPointsRequest) (*carrier.PickupPointsResponse, error) {
	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if !supportedFeedCountries[country] {
		return nil, carrier.NewError(CarrierID, carrier.Validation,
			fmt.Sprintf("country not found in pickup point feed: %s", req.Country))
	}

	apiResp, err := c.apiClient.GetDeliveryPoints(ctx, &DeliveryPointsRequest{
		UseTest: req.Options.UseTestAPI,
		Country: strings.ToLower(country),
	})
	if err != nil {
		c.logger.Error("GLS feed error", zap.Error(err))
		return nil, carrier.WrapError(CarrierID, err)
	}

	points := make([]carrier.PickupPoint, 0, len(apiResp.Items))
	for _, dp := range apiResp.Items {
		points = append(points, translatePickupPoint(country, dp))
	}
	sortPickupPoints(points, req.Options.OrderBy)

	c.logger.Info("Fetched GLS pickup points",
		zap.String("country", country),
		zap.Int("point_count", len(points)),
	)
	return &carrier.PickupPointsResponse{Points: points, TotalCount: len(points)}, nil
}

// ============================================================================
// Conversion helpers (canonical -> GLS wire)
// ============================================================================

func parcelToWire(p *carrier.Parcel) WireParcel {
	wire := WireParcel{
		ClientReference: p.ID,
		Content:         p.Service,
		Count:           1,
		Weight:          float64(p.Package.WeightGrams) / 1000.0,
		PickupAddress:   addressToWire(p.Shipper.Address, p.Shipper.Contact),
	}

	if p.Handling.CODAmount > 0 {
		wire.CODAmount = p.Handling.CODAmount
		wire.CODCurrency = p.Handling.CODCurrency
	}

	switch p.Recipient.Method {
	case carrier.DeliveryPickupPoint:
		// Pickup-point delivery addresses the point itself; the chosen
		// point id travels as the PSD service parameter.
		wire.DeliveryAddress = WireAddress{
			Name:           p.Recipient.Contact.Name,
			ContactName:    p.Recipient.Contact.Name,
			ContactPhone:   p.Recipient.Contact.Phone,
			ContactEmail:   p.Recipient.Contact.Email,
			CountryIsoCode: p.Shipper.Address.CountryCode,
		}
		wire.ServiceList = append(wire.ServiceList, WireService{
			Code:         servicePSD,
			PSDParameter: &PSDParameter{StringValue: p.Recipient.PickupPoint.ID},
		})
	default:
		if p.Recipient.Address != nil {
			wire.DeliveryAddress = addressToWire(*p.Recipient.Address, p.Recipient.Contact)
		} else {
			wire.DeliveryAddress = placeholderAddress
		}
	}
	return wire
}

// placeholderAddress fills the required address blocks on reference-only
// label entries; GLS resolves the real addresses from the stored parcel.
var placeholderAddress = WireAddress{
	Name:           "-",
	Street:         "-",
	HouseNumber:    "1",
	City:           "-",
	ZipCode:        "0000",
	CountryIsoCode: "HU",
}

// labelParcelToWire builds the wire entry for one non-numeric label
// request. With the full parcel at hand it travels complete; otherwise
// only the reference is real and placeholders satisfy the schema.
func labelParcelToWire(id string, parcels []carrier.Parcel, i int) WireParcel {
	if i < len(parcels) && parcels[i].ID == id {
		wire := parcelToWire(&parcels[i])
		if wire.PickupAddress == (WireAddress{}) {
			wire.PickupAddress = placeholderAddress
		}
		return wire
	}
	return WireParcel{
		ClientReference: id,
		Count:           1,
		PickupAddress:   placeholderAddress,
		DeliveryAddress: placeholderAddress,
	}
}

func addressToWire(a carrier.Address, contact carrier.Contact) WireAddress {
	return WireAddress{
		Name:           a.Name,
		Street:         a.Street,
		HouseNumber:    a.HouseNumber,
		City:           a.City,
		ZipCode:        a.PostalCode,
		CountryIsoCode: a.CountryCode,
		ContactName:    contact.Name,
		ContactPhone:   contact.Phone,
		ContactEmail:   contact.Email,
	}
}

// statusDateLayouts are the timestamp spellings GLS uses across its
// portals.
var statusDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006.01.02. 15:04:05",
	"2006-01-02",
}

func parseStatusDate(s string) time.Time {
	for _, layout := range statusDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Ensure Client implements the adapter interface
var _ carrier.Adapter = (*Client)(nil)
