package carrier

import (
	"context"
	"errors"
)

// ResourceType keys carrier cross-references in the store.
type ResourceType string

const (
	ResourceTypeParcel   ResourceType = "parcel"
	ResourceTypeShipment ResourceType = "shipment"
	ResourceTypeLabel    ResourceType = "label"
)

// Store is the persistence contract the engine consumes. Implementations
// own their concurrency; the engine performs one write per confirmed
// carrier outcome. Every method may fail transiently, and callers
// propagate such failures as Transient.
type Store interface {
	SaveShipment(ctx context.Context, shipment *Shipment) error
	GetShipment(ctx context.Context, id string) (*Shipment, error)

	SaveParcel(ctx context.Context, parcel *Parcel) error
	GetParcel(ctx context.Context, id string) (*Parcel, error)

	SaveCarrierResource(ctx context.Context, internalID string, rt ResourceType, res CarrierResource) error
	GetCarrierResource(ctx context.Context, internalID string, rt ResourceType) (*CarrierResource, error)

	// AppendEvent is append-only; events keep insertion order on equal
	// timestamps.
	AppendEvent(ctx context.Context, internalID string, event TrackingEvent) error
	GetEvents(ctx context.Context, internalID string) ([]TrackingEvent, error)

	SaveLabel(ctx context.Context, label LabelFile, trackingNumber string) error
	GetLabel(ctx context.Context, id string) (*LabelFile, error)
	GetLabelByTrackingNumber(ctx context.Context, trackingNumber string) (*LabelFile, error)
}

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")
