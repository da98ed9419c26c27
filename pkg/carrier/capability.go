package carrier

// Capability is a named operation an adapter may implement.
type Capability string

const (
	CapCreateParcel      Capability = "CREATE_PARCEL"
	CapCreateParcels     Capability = "CREATE_PARCELS"
	CapCreateLabel       Capability = "CREATE_LABEL"
	CapCreateLabels      Capability = "CREATE_LABELS"
	CapCloseShipment     Capability = "CLOSE_SHIPMENT"
	CapTrack             Capability = "TRACK"
	CapFetchPickupPoints Capability = "FETCH_PICKUP_POINTS"
	CapExchangeAuthToken Capability = "EXCHANGE_AUTH_TOKEN"
	CapTestMode          Capability = "TEST_MODE_SUPPORTED"
)

// Descriptor is the static self-description of an adapter: which
// operations it supports and which capabilities must be satisfied before
// an operation may be dispatched.
type Descriptor struct {
	ID           string
	DisplayName  string
	Capabilities []Capability
	// Requires maps an operation to its prerequisite capabilities, in the
	// order they must be satisfied.
	Requires map[Capability][]Capability
}

// Has reports whether the adapter declares the capability.
func (d Descriptor) Has(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Prerequisites returns the ordered prerequisites of an operation.
func (d Descriptor) Prerequisites(op Capability) []Capability {
	return d.Requires[op]
}
