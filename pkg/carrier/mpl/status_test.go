package mpl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/mpl"
)

func TestMapStatus_ReportTokens(t *testing.T) {
	assert.Equal(t, carrier.TrackingDelivered, mpl.MapStatus("DELIVERED"))
	assert.Equal(t, carrier.TrackingInTransit, mpl.MapStatus("IN_TRANSIT"))
	assert.Equal(t, carrier.TrackingOutForDelivery, mpl.MapStatus("out_for_delivery"))
	assert.Equal(t, carrier.TrackingReturned, mpl.MapStatus(" returned "))
}

func TestMapStatus_PortalSpellings(t *testing.T) {
	assert.Equal(t, carrier.TrackingPending, mpl.MapStatus("Felvéve"))
	assert.Equal(t, carrier.TrackingDelivered, mpl.MapStatus("Kézbesítve"))
	assert.Equal(t, carrier.TrackingOutForDelivery, mpl.MapStatus("Kézbesítés alatt"))
	assert.Equal(t, carrier.TrackingCancelled, mpl.MapStatus("Törölve"))
}

func TestMapStatus_UnknownIsPending(t *testing.T) {
	assert.Equal(t, carrier.TrackingPending, mpl.MapStatus("WAT"))
	assert.Equal(t, carrier.TrackingPending, mpl.MapStatus(""))
}
