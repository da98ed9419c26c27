// Package carrier provides the canonical model and dispatch engine for a
// multi-carrier shipping integration layer. Adapters translate between
// this model and each carrier's wire model.
package carrier

import (
	"context"
)

// Options are per-call adapter options. Unknown options simply do not
// exist here; adapters read what they understand.
type Options struct {
	UseTestAPI      bool
	AccountingCode  string
	LanguageISOCode string
	ReturnPOD       bool
	LabelType       string
	LabelFormat     string
	OrderBy         string
	SingleFile      bool
}

// CreateParcelRequest creates one parcel with the carrier.
type CreateParcelRequest struct {
	Parcel      Parcel
	Credentials Credentials
	Options     Options
}

// CreateParcelsRequest creates a batch of parcels.
type CreateParcelsRequest struct {
	Parcels     []Parcel
	Credentials Credentials
	Options     Options
}

// ParcelResult is the per-item outcome of a parcel batch.
type ParcelResult struct {
	InputID  string
	Resource CarrierResource
	Errors   []ItemError
}

// CreateParcelsResponse is the aggregated outcome of a parcel batch.
// Results preserve input order.
type CreateParcelsResponse struct {
	Results            []ParcelResult
	SuccessCount       int
	FailureCount       int
	TotalCount         int
	AllSucceeded       bool
	AllFailed          bool
	SomeFailed         bool
	Summary            string
	RawCarrierResponse any
}

// CreateLabelRequest generates a label for one already-created parcel.
type CreateLabelRequest struct {
	ParcelCarrierID string
	Parcel          *Parcel // optional; some carriers need a full payload
	Credentials     Credentials
	Options         Options
}

// CreateLabelsRequest generates labels for a batch of parcels.
type CreateLabelsRequest struct {
	ParcelCarrierIDs []string
	Parcels          []Parcel // optional, aligned with ParcelCarrierIDs when present
	Credentials      Credentials
	Options          Options
}

// LabelResult is the per-item outcome of a label batch. A created result
// references pages of a label file; a failed one carries errors instead.
type LabelResult struct {
	InputID   string
	Status    ResourceStatus
	CarrierID string
	FileID    string
	PageRange *PageRange
	Errors    []ItemError
	Raw       any
}

// CreateLabelsResponse is the aggregated outcome of a label batch.
type CreateLabelsResponse struct {
	Results            []LabelResult
	Files              []LabelFile
	SuccessCount       int
	FailureCount       int
	TotalCount         int
	AllSucceeded       bool
	AllFailed          bool
	SomeFailed         bool
	Summary            string
	RawCarrierResponse any
}

// CloseShipmentRequest finalizes a shipment for carriers that require a
// close step before labels can be generated.
type CloseShipmentRequest struct {
	ShipmentID  string
	Credentials Credentials
	Options     Options
}

// TrackRequest asks for the tracking state of a single parcel.
type TrackRequest struct {
	TrackingNumber string
	Credentials    Credentials
	Options        Options
}

// ExchangeAuthTokenRequest proactively exchanges credentials for a token.
type ExchangeAuthTokenRequest struct {
	Credentials Credentials
	Options     Options
}

// PickupPointsRequest fetches the carrier's pickup points for a country.
type PickupPointsRequest struct {
	Country     string // ISO 3166-1 alpha-2
	Credentials Credentials
	Options     Options
}

// PickupPointsResponse carries the normalized points plus derived counts.
type PickupPointsResponse struct {
	Points     []PickupPoint
	TotalCount int
}

// Adapter is implemented once per carrier. An adapter only has to
// implement the operations it declares in its Descriptor; the dispatcher
// rejects everything else before it gets here.
type Adapter interface {
	// Descriptor returns the static capability declaration.
	Descriptor() Descriptor

	CreateParcel(ctx context.Context, req *CreateParcelRequest) (*CarrierResource, error)
	CreateParcels(ctx context.Context, req *CreateParcelsRequest) (*CreateParcelsResponse, error)
	CreateLabel(ctx context.Context, req *CreateLabelRequest) (*LabelResult, error)
	CreateLabels(ctx context.Context, req *CreateLabelsRequest) (*CreateLabelsResponse, error)
	CloseShipment(ctx context.Context, req *CloseShipmentRequest) (*CarrierResource, error)
	Track(ctx context.Context, req *TrackRequest) (*TrackingUpdate, error)
	ExchangeAuthToken(ctx context.Context, req *ExchangeAuthTokenRequest) (*OAuthToken, error)
	FetchPickupPoints(ctx context.Context, req *PickupPointsRequest) (*PickupPointsResponse, error)
}
