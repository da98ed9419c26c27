// Package mock provides a configurable mock carrier adapter for testing
// the registry and dispatcher.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// Adapter is a mock carrier for testing. Hooks override individual
// operations; without a hook the default canned outcome is returned.
type Adapter struct {
	ID           string
	Capabilities []carrier.Capability
	Requires     map[carrier.Capability][]carrier.Capability

	OnCreateParcel      func(ctx context.Context, req *carrier.CreateParcelRequest) (*carrier.CarrierResource, error)
	OnCreateParcels     func(ctx context.Context, req *carrier.CreateParcelsRequest) (*carrier.CreateParcelsResponse, error)
	OnCreateLabel       func(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.LabelResult, error)
	OnCreateLabels      func(ctx context.Context, req *carrier.CreateLabelsRequest) (*carrier.CreateLabelsResponse, error)
	OnCloseShipment     func(ctx context.Context, req *carrier.CloseShipmentRequest) (*carrier.CarrierResource, error)
	OnTrack             func(ctx context.Context, req *carrier.TrackRequest) (*carrier.TrackingUpdate, error)
	OnExchangeAuthToken func(ctx context.Context, req *carrier.ExchangeAuthTokenRequest) (*carrier.OAuthToken, error)
	OnFetchPickupPoints func(ctx context.Context, req *carrier.PickupPointsRequest) (*carrier.PickupPointsResponse, error)
}

// New creates a mock adapter declaring every capability.
func New(id string) *Adapter {
	return &Adapter{
		ID: id,
		Capabilities: []carrier.Capability{
			carrier.CapCreateParcel,
			carrier.CapCreateParcels,
			carrier.CapCreateLabel,
			carrier.CapCreateLabels,
			carrier.CapCloseShipment,
			carrier.CapTrack,
			carrier.CapExchangeAuthToken,
			carrier.CapFetchPickupPoints,
			carrier.CapTestMode,
		},
	}
}

// Descriptor returns the configured capability declaration.
func (a *Adapter) Descriptor() carrier.Descriptor {
	return carrier.Descriptor{
		ID:           a.ID,
		DisplayName:  a.ID,
		Capabilities: a.Capabilities,
		Requires:     a.Requires,
	}
}

// CreateParcel creates a mock parcel.
func (a *Adapter) CreateParcel(ctx context.Context, req *carrier.CreateParcelRequest) (*carrier.CarrierResource, error) {
	if a.OnCreateParcel != nil {
		return a.OnCreateParcel(ctx, req)
	}
	res := carrier.CreatedResource(fmt.Sprintf("%s-parcel-%s", a.ID, req.Parcel.ID), nil)
	return &res, nil
}

// CreateParcels creates mock parcels, all succeeding.
func (a *Adapter) CreateParcels(ctx context.Context, req *carrier.CreateParcelsRequest) (*carrier.CreateParcelsResponse, error) {
	if a.OnCreateParcels != nil {
		return a.OnCreateParcels(ctx, req)
	}
	results := make([]carrier.ParcelResult, 0, len(req.Parcels))
	for _, p := range req.Parcels {
		results = append(results, carrier.ParcelResult{
			InputID:  p.ID,
			Resource: carrier.CreatedResource(fmt.Sprintf("%s-parcel-%s", a.ID, p.ID), nil),
		})
	}
	return carrier.BuildParcelsResponse(results, nil), nil
}

// CreateLabel creates a mock label result.
func (a *Adapter) CreateLabel(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.LabelResult, error) {
	if a.OnCreateLabel != nil {
		return a.OnCreateLabel(ctx, req)
	}
	return &carrier.LabelResult{
		InputID:   req.ParcelCarrierID,
		Status:    carrier.ResourceCreated,
		CarrierID: req.ParcelCarrierID,
	}, nil
}

// CreateLabels creates one mock combined file covering every parcel.
func (a *Adapter) CreateLabels(ctx context.Context, req *carrier.CreateLabelsRequest) (*carrier.CreateLabelsResponse, error) {
	if a.OnCreateLabels != nil {
		return a.OnCreateLabels(ctx, req)
	}
	results := make([]carrier.LabelResult, 0, len(req.ParcelCarrierIDs))
	for _, id := range req.ParcelCarrierIDs {
		results = append(results, carrier.LabelResult{
			InputID:   id,
			Status:    carrier.ResourceCreated,
			CarrierID: id,
		})
	}
	file := carrier.NewLabelFile([]byte("%PDF-1.4 mock"), "application/pdf", 0)
	file.Pages = carrier.AssignPageRanges(results, file.ID)
	return carrier.BuildLabelsResponse(results, []carrier.LabelFile{file}, nil), nil
}

// CloseShipment closes a mock shipment.
func (a *Adapter) CloseShipment(ctx context.Context, req *carrier.CloseShipmentRequest) (*carrier.CarrierResource, error) {
	if a.OnCloseShipment != nil {
		return a.OnCloseShipment(ctx, req)
	}
	res := carrier.CreatedResource(req.ShipmentID, nil)
	return &res, nil
}

// Track returns a mock in-transit update.
func (a *Adapter) Track(ctx context.Context, req *carrier.TrackRequest) (*carrier.TrackingUpdate, error) {
	if a.OnTrack != nil {
		return a.OnTrack(ctx, req)
	}
	now := time.Now()
	return carrier.NewTrackingUpdate(req.TrackingNumber, []carrier.TrackingEvent{
		{Timestamp: now.Add(-time.Hour), Status: carrier.TrackingPending, CarrierStatusCode: "1"},
		{Timestamp: now, Status: carrier.TrackingInTransit, CarrierStatusCode: "2"},
	}, nil), nil
}

// ExchangeAuthToken returns a mock token.
func (a *Adapter) ExchangeAuthToken(ctx context.Context, req *carrier.ExchangeAuthTokenRequest) (*carrier.OAuthToken, error) {
	if a.OnExchangeAuthToken != nil {
		return a.OnExchangeAuthToken(ctx, req)
	}
	return &carrier.OAuthToken{
		AccessToken: a.ID + "-token",
		TokenType:   "Bearer",
		ExpiresIn:   1800,
		IssuedAt:    time.Now(),
	}, nil
}

// FetchPickupPoints returns one mock point.
func (a *Adapter) FetchPickupPoints(ctx context.Context, req *carrier.PickupPointsRequest) (*carrier.PickupPointsResponse, error) {
	if a.OnFetchPickupPoints != nil {
		return a.OnFetchPickupPoints(ctx, req)
	}
	return &carrier.PickupPointsResponse{
		Points: []carrier.PickupPoint{
			{
				ID:             a.ID + "-point-1",
				ProviderID:     a.ID,
				Name:           a.ID + " point",
				Country:        "hu",
				City:           "Budapest",
				PickupAllowed:  true,
				DropoffAllowed: true,
			},
		},
		TotalCount: 1,
	}, nil
}

var _ carrier.Adapter = (*Adapter)(nil)
