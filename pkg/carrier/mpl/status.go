package mpl

import (
	"strings"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// trackingStatuses maps MPL report statuses to the canonical set. The
// bulk report already speaks mostly canonical tokens; the rest are the
// portal's own spellings. Unknown statuses map to PENDING.
var trackingStatuses = map[string]carrier.TrackingStatus{
	// canonical tokens, kept for idempotence
	"pending":          carrier.TrackingPending,
	"in_transit":       carrier.TrackingInTransit,
	"out_for_delivery": carrier.TrackingOutForDelivery,
	"delivered":        carrier.TrackingDelivered,
	"exception":        carrier.TrackingException,
	"returned":         carrier.TrackingReturned,
	"cancelled":        carrier.TrackingCancelled,

	// portal spellings
	"felvéve":               carrier.TrackingPending,
	"feldolgozás alatt":     carrier.TrackingInTransit,
	"továbbítás alatt":      carrier.TrackingInTransit,
	"érkeztetve":            carrier.TrackingInTransit,
	"kézbesítés alatt":      carrier.TrackingOutForDelivery,
	"kézbesítve":            carrier.TrackingDelivered,
	"átvéve":                carrier.TrackingDelivered,
	"sikertelen kézbesítés": carrier.TrackingException,
	"őrzésben":              carrier.TrackingException,
	"visszaküldve":          carrier.TrackingReturned,
	"visszairányítva":       carrier.TrackingReturned,
	"törölve":               carrier.TrackingCancelled,
}

// MapStatus normalizes an MPL report status to the canonical tracking
// status. Unknown statuses map to PENDING.
func MapStatus(status string) carrier.TrackingStatus {
	if s, ok := trackingStatuses[strings.ToLower(strings.TrimSpace(status))]; ok {
		return s
	}
	return carrier.TrackingPending
}
