package carrier

import (
	"fmt"
	"sort"
	"time"
)

// ParcelStatus represents the lifecycle status of a parcel on our side.
type ParcelStatus string

const (
	ParcelDraft          ParcelStatus = "draft"
	ParcelCreated        ParcelStatus = "created"
	ParcelClosed         ParcelStatus = "closed"
	ParcelLabelGenerated ParcelStatus = "label_generated"
	ParcelShipped        ParcelStatus = "shipped"
	ParcelDelivered      ParcelStatus = "delivered"
	ParcelException      ParcelStatus = "exception"
)

// TrackingStatus is the normalized tracking status shared by all carriers.
type TrackingStatus string

const (
	TrackingPending        TrackingStatus = "PENDING"
	TrackingInTransit      TrackingStatus = "IN_TRANSIT"
	TrackingOutForDelivery TrackingStatus = "OUT_FOR_DELIVERY"
	TrackingDelivered      TrackingStatus = "DELIVERED"
	TrackingException      TrackingStatus = "EXCEPTION"
	TrackingReturned       TrackingStatus = "RETURNED"
	TrackingCancelled      TrackingStatus = "CANCELLED"
)

// DeliveryMethod discriminates how the recipient receives the parcel.
type DeliveryMethod string

const (
	DeliveryHome        DeliveryMethod = "HOME"
	DeliveryPickupPoint DeliveryMethod = "PICKUP_POINT"
)

// ResourceStatus is the outcome status of a single carrier operation.
type ResourceStatus string

const (
	ResourceCreated ResourceStatus = "created"
	ResourcePending ResourceStatus = "pending"
	ResourceFailed  ResourceStatus = "failed"
)

// Address represents a physical address.
type Address struct {
	Name        string
	Street      string
	HouseNumber string
	City        string
	PostalCode  string
	CountryCode string // ISO 3166-1 alpha-2, e.g. "HU", "DE"
}

// Contact represents sender or recipient contact info.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// PickupPointRef identifies a pickup point chosen by the recipient.
type PickupPointRef struct {
	ID       string
	Provider string
}

// Party is the shipper side of a parcel: a contact with a physical address.
type Party struct {
	Contact Contact
	Address Address
}

// Recipient is the receiving side. Method selects between a home address
// and a pickup point; exactly one of Address / PickupPoint is set.
type Recipient struct {
	Method      DeliveryMethod
	Contact     Contact
	Address     *Address
	PickupPoint *PickupPointRef
}

// Package holds physical package properties.
type Package struct {
	WeightGrams int
	LengthCM    float64
	WidthCM     float64
	HeightCM    float64
}

// Handling holds special-handling flags for a parcel.
type Handling struct {
	Fragile      bool
	CODAmount    float64
	CODCurrency  string
	InsuredValue float64
}

// Parcel is the canonical unit of work.
type Parcel struct {
	ID         string // client-chosen unique ID
	ShipmentID string // optional grouping, carrier-dependent
	Shipper    Party
	Recipient  Recipient
	Package    Package
	Service    string // carrier-agnostic service hint
	References []string
	Status     ParcelStatus
	Handling   Handling
}

// Validate checks the canonical parcel invariants before any carrier call.
func (p *Parcel) Validate() error {
	if p.ID == "" {
		return NewError("", Validation, "parcel id is required")
	}
	if p.Package.WeightGrams <= 0 {
		return NewError("", Validation, fmt.Sprintf("parcel %s: weight must be positive", p.ID))
	}
	if !isISOCountry(p.Shipper.Address.CountryCode) {
		return NewError("", Validation, fmt.Sprintf("parcel %s: shipper country %q is not ISO 3166-1 alpha-2", p.ID, p.Shipper.Address.CountryCode))
	}
	switch p.Recipient.Method {
	case DeliveryHome:
		if p.Recipient.Address == nil || p.Recipient.PickupPoint != nil {
			return NewError("", Validation, fmt.Sprintf("parcel %s: HOME delivery requires an address and no pickup point", p.ID))
		}
		if !isISOCountry(p.Recipient.Address.CountryCode) {
			return NewError("", Validation, fmt.Sprintf("parcel %s: recipient country %q is not ISO 3166-1 alpha-2", p.ID, p.Recipient.Address.CountryCode))
		}
	case DeliveryPickupPoint:
		if p.Recipient.PickupPoint == nil || p.Recipient.Address != nil {
			return NewError("", Validation, fmt.Sprintf("parcel %s: PICKUP_POINT delivery requires a pickup point and no address", p.ID))
		}
		if p.Recipient.PickupPoint.ID == "" || p.Recipient.PickupPoint.Provider == "" {
			return NewError("", Validation, fmt.Sprintf("parcel %s: pickup point id and provider are required", p.ID))
		}
	default:
		return NewError("", Validation, fmt.Sprintf("parcel %s: unknown delivery method %q", p.ID, p.Recipient.Method))
	}
	return nil
}

func isISOCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Shipment groups parcels for carriers that require a parent resource.
type Shipment struct {
	ID        string
	CarrierID string
	ParcelIDs []string
	Closed    bool
}

// CarrierResource is the outcome of one operation against a carrier.
// CarrierID is empty exactly when Status is failed.
type CarrierResource struct {
	CarrierID string
	Status    ResourceStatus
	LabelURL  string
	Raw       any
}

// CreatedResource builds a successful carrier resource.
func CreatedResource(carrierID string, raw any) CarrierResource {
	return CarrierResource{CarrierID: carrierID, Status: ResourceCreated, Raw: raw}
}

// PendingResource builds a pending carrier resource.
func PendingResource(carrierID string, raw any) CarrierResource {
	return CarrierResource{CarrierID: carrierID, Status: ResourcePending, Raw: raw}
}

// FailedResource builds a failed carrier resource. The carrier id is
// dropped unconditionally: a failed result never carries one.
func FailedResource(raw any) CarrierResource {
	return CarrierResource{Status: ResourceFailed, Raw: raw}
}

// ItemError is a per-item failure reported by a carrier inside a batch.
type ItemError struct {
	Code    string
	Message string
}

// PageRange is a 1-indexed inclusive page range inside a combined label file.
type PageRange struct {
	Start int
	End   int
}

// TrackingEvent is one normalized tracking event.
type TrackingEvent struct {
	Timestamp         time.Time
	Status            TrackingStatus
	CarrierStatusCode string
	Location          string
	Description       string
	Raw               any
}

// TrackingUpdate is the tracking state of one parcel.
type TrackingUpdate struct {
	TrackingNumber     string
	Events             []TrackingEvent
	Status             TrackingStatus
	LastUpdate         time.Time
	RawCarrierResponse any
}

// NewTrackingUpdate orders events ascending by timestamp (stable on ties,
// carriers differ in timestamp precision) and derives the overall status
// from the last event, or PENDING when there are none.
func NewTrackingUpdate(trackingNumber string, events []TrackingEvent, raw any) *TrackingUpdate {
	sorted := make([]TrackingEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	update := &TrackingUpdate{
		TrackingNumber:     trackingNumber,
		Events:             sorted,
		Status:             TrackingPending,
		RawCarrierResponse: raw,
	}
	if len(sorted) > 0 {
		last := sorted[len(sorted)-1]
		update.Status = last.Status
		update.LastUpdate = last.Timestamp
	}
	return update
}

// PickupPoint is a normalized pickup/dropoff location.
type PickupPoint struct {
	ID             string
	ProviderID     string
	Name           string
	Country        string // lower-case ISO code
	PostalCode     string
	City           string
	Street         string
	Latitude       float64
	Longitude      float64
	OpeningHours   map[string]string // weekday name -> "HH:MM - HH:MM", absent if closed
	Contact        *Contact
	PickupAllowed  bool
	DropoffAllowed bool
	IsOutdoor      bool
	PaymentOptions []string
	Metadata       map[string]string
	Raw            any
}
