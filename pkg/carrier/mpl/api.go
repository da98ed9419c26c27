package mpl

import (
	"context"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// APIClient defines the MPL API operations. The abstraction allows mock
// implementations during testing and real implementations in production.
type APIClient interface {
	// CreateShipments registers a batch of shipments.
	CreateShipments(ctx context.Context, req *ShipmentsRequest) (*ShipmentsResponse, error)

	// CloseShipment finalizes a shipment so labels can be generated.
	CloseShipment(ctx context.Context, req *CloseRequest) (*CloseResponse, error)

	// GetLabels fetches labels for closed shipments.
	GetLabels(ctx context.Context, req *LabelsRequest) (*LabelsResponse, error)

	// SubmitTrackingJob starts an async bulk tracking query and returns
	// the job GUID.
	SubmitTrackingJob(ctx context.Context, req *TrackingJobRequest) (*TrackingJobResponse, error)

	// PollTrackingJob polls a tracking job by GUID.
	PollTrackingJob(ctx context.Context, req *TrackingPollRequest) (*TrackingPollResponse, error)

	// ExchangeToken exchanges credentials for a bearer token.
	ExchangeToken(ctx context.Context, creds carrier.Credentials) (*carrier.OAuthToken, error)
}

// ============================================================================
// API Request/Response Types (match the MPL JSON API structure)
// ============================================================================

// ShipmentsRequest registers shipments. POST /shipments
type ShipmentsRequest struct {
	Credentials    carrier.Credentials `json:"-"`
	UseTest        bool                `json:"-"`
	AccountingCode string              `json:"-"` // travels as the X-Accounting-Code header
	Shipments      []WireShipment      `json:"shipment"`
}

// WireShipment is one shipment in MPL wire form.
type WireShipment struct {
	ClientReference string      `json:"clientReferenceNumber"`
	Sender          WireAddress `json:"sender"`
	Recipient       WireAddress `json:"recipient"`
	DeliveryMode    string      `json:"deliveryMode,omitempty"` // HA (home), CS (pickup point)
	PickupPointID   string      `json:"deliveryPlaceId,omitempty"`
	Weight          int         `json:"weight"` // grams
	Services        []string    `json:"services,omitempty"`
	COD             *WireCOD    `json:"cod,omitempty"`
	Insurance       float64     `json:"insurance,omitempty"`
}

// WireAddress is an MPL address block.
type WireAddress struct {
	Name        string `json:"name"`
	PostCode    string `json:"postCode"`
	City        string `json:"city"`
	Address     string `json:"address"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	ContactName string `json:"contactName,omitempty"`
}

// WireCOD is the cash-on-delivery block.
type WireCOD struct {
	Value    float64 `json:"codValue"`
	Currency string  `json:"currency,omitempty"`
}

// ShipmentsResponse lists the per-shipment outcome, in request order
// where the carrier preserves it, otherwise matched by client reference.
type ShipmentsResponse struct {
	Result []ShipmentOutcome `json:"result"`
}

// ShipmentOutcome is one registered or rejected shipment. Errors and
// identifiers are mutually exclusive.
type ShipmentOutcome struct {
	ClientReference string      `json:"clientReferenceNumber"`
	ShipmentID      string      `json:"shipmentId,omitempty"`
	TrackingNumber  string      `json:"trackingNumber,omitempty"`
	Label           any         `json:"label,omitempty"` // present when labels were requested inline
	Errors          []WireFault `json:"errors,omitempty"`
}

// WireFault is an MPL item-level error.
type WireFault struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// CloseRequest finalizes a shipment. POST /shipments/{id}/close
type CloseRequest struct {
	Credentials    carrier.Credentials `json:"-"`
	UseTest        bool                `json:"-"`
	AccountingCode string              `json:"-"`
	ShipmentID     string              `json:"-"`
}

// CloseResponse reports the closed shipment.
type CloseResponse struct {
	ShipmentID string      `json:"shipmentId"`
	State      string      `json:"state"`
	Errors     []WireFault `json:"errors,omitempty"`
}

// LabelsRequest fetches labels for closed shipments.
// GET /shipments/label
type LabelsRequest struct {
	Credentials     carrier.Credentials
	UseTest         bool
	AccountingCode  string
	TrackingNumbers []string
	LabelType       string // A4, A5, thermal
	SingleFile      bool   // request one combined PDF as raw bytes
}

// LabelsResponse carries either one combined PDF as raw bytes or
// per-shipment label payloads.
type LabelsResponse struct {
	ContentType string      // of Combined
	Combined    []byte      // set on an arraybuffer response
	Items       []LabelItem `json:"labels"`
}

// LabelItem is one shipment's label payload.
type LabelItem struct {
	TrackingNumber string      `json:"trackingNumber"`
	Label          any         `json:"label,omitempty"`
	Errors         []WireFault `json:"errors,omitempty"`
}

// TrackingJobRequest starts a bulk tracking query.
// POST /tracking/batch
type TrackingJobRequest struct {
	Credentials     carrier.Credentials `json:"-"`
	UseTest         bool                `json:"-"`
	AccountingCode  string              `json:"-"`
	TrackingNumbers []string            `json:"trackingNumbers"`
	Language        string              `json:"language,omitempty"`
}

// TrackingJobResponse acknowledges the submitted job.
type TrackingJobResponse struct {
	TrackingGUID string      `json:"trackingGUID"`
	Errors       []WireFault `json:"errors,omitempty"`
}

// TrackingPollRequest polls a tracking job.
// GET /tracking/batch/{guid}
type TrackingPollRequest struct {
	Credentials    carrier.Credentials
	UseTest        bool
	AccountingCode string
	GUID           string
}

// TrackingPollResponse is one poll outcome. ReportFields and Report are
// ';'-delimited and only set once the state is READY.
type TrackingPollResponse struct {
	State        string      `json:"state"` // NEW, INPROGRESS, READY, ERROR
	ReportFields string      `json:"report_fields,omitempty"`
	Report       string      `json:"report,omitempty"`
	Errors       []WireFault `json:"errors,omitempty"`
}
