// Package memstore provides the in-memory Store implementation used in
// tests and single-process deployments.
package memstore

import (
	"context"
	"sync"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

type resourceKey struct {
	internalID string
	rt         carrier.ResourceType
}

// Store is a mutex-protected, map-backed carrier.Store. Values are
// copied on write and read, so callers cannot mutate stored state.
type Store struct {
	mu        sync.RWMutex
	shipments map[string]carrier.Shipment
	parcels   map[string]carrier.Parcel
	resources map[resourceKey]carrier.CarrierResource
	events    map[string][]carrier.TrackingEvent
	labels    map[string]carrier.LabelFile
	byNumber  map[string]string // tracking number -> label id
}

// New creates an empty store.
func New() *Store {
	return &Store{
		shipments: make(map[string]carrier.Shipment),
		parcels:   make(map[string]carrier.Parcel),
		resources: make(map[resourceKey]carrier.CarrierResource),
		events:    make(map[string][]carrier.TrackingEvent),
		labels:    make(map[string]carrier.LabelFile),
		byNumber:  make(map[string]string),
	}
}

// SaveShipment stores a shipment by id.
func (s *Store) SaveShipment(ctx context.Context, shipment *carrier.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *shipment
	stored.ParcelIDs = append([]string(nil), shipment.ParcelIDs...)
	s.shipments[shipment.ID] = stored
	return nil
}

// GetShipment fetches a shipment by id.
func (s *Store) GetShipment(ctx context.Context, id string) (*carrier.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shipment, ok := s.shipments[id]
	if !ok {
		return nil, carrier.ErrNotFound
	}
	shipment.ParcelIDs = append([]string(nil), shipment.ParcelIDs...)
	return &shipment, nil
}

// SaveParcel stores a parcel by id.
func (s *Store) SaveParcel(ctx context.Context, parcel *carrier.Parcel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parcels[parcel.ID] = *parcel
	return nil
}

// GetParcel fetches a parcel by id.
func (s *Store) GetParcel(ctx context.Context, id string) (*carrier.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parcel, ok := s.parcels[id]
	if !ok {
		return nil, carrier.ErrNotFound
	}
	return &parcel, nil
}

// SaveCarrierResource stores the carrier cross-reference for an internal
// record.
func (s *Store) SaveCarrierResource(ctx context.Context, internalID string, rt carrier.ResourceType, res carrier.CarrierResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[resourceKey{internalID, rt}] = res
	return nil
}

// GetCarrierResource fetches the carrier cross-reference for an internal
// record.
func (s *Store) GetCarrierResource(ctx context.Context, internalID string, rt carrier.ResourceType) (*carrier.CarrierResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[resourceKey{internalID, rt}]
	if !ok {
		return nil, carrier.ErrNotFound
	}
	return &res, nil
}

// AppendEvent appends one tracking event, keeping insertion order.
func (s *Store) AppendEvent(ctx context.Context, internalID string, event carrier.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[internalID] = append(s.events[internalID], event)
	return nil
}

// GetEvents fetches the stored events in insertion order.
func (s *Store) GetEvents(ctx context.Context, internalID string) ([]carrier.TrackingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]carrier.TrackingEvent(nil), s.events[internalID]...), nil
}

// SaveLabel stores a label file, indexed by id and tracking number.
func (s *Store) SaveLabel(ctx context.Context, label carrier.LabelFile, trackingNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := label
	stored.Data = append([]byte(nil), label.Data...)
	s.labels[label.ID] = stored
	if trackingNumber != "" {
		s.byNumber[trackingNumber] = label.ID
	}
	return nil
}

// GetLabel fetches a label file by id.
func (s *Store) GetLabel(ctx context.Context, id string) (*carrier.LabelFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labelLocked(id)
}

// GetLabelByTrackingNumber fetches a label file by tracking number.
func (s *Store) GetLabelByTrackingNumber(ctx context.Context, trackingNumber string) (*carrier.LabelFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[trackingNumber]
	if !ok {
		return nil, carrier.ErrNotFound
	}
	return s.labelLocked(id)
}

func (s *Store) labelLocked(id string) (*carrier.LabelFile, error) {
	label, ok := s.labels[id]
	if !ok {
		return nil, carrier.ErrNotFound
	}
	label.Data = append([]byte(nil), label.Data...)
	return &label, nil
}

var _ carrier.Store = (*Store)(nil)
