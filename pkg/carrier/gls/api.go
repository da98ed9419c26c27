package gls

import (
	"context"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// APIClient defines the GLS API operations. The abstraction allows mock
// implementations during testing and real implementations in production.
type APIClient interface {
	// CreateParcels registers a batch of parcels.
	CreateParcels(ctx context.Context, req *ParcelListRequest) (*ParcelListResponse, error)

	// PrintLabels generates labels for already-registered parcels.
	PrintLabels(ctx context.Context, req *PrintLabelsRequest) (*PrintLabelsResponse, error)

	// GetParcelStatuses fetches the status history of one parcel.
	GetParcelStatuses(ctx context.Context, req *ParcelStatusRequest) (*ParcelStatusResponse, error)

	// GetDeliveryPoints fetches the public pickup-point feed for a country.
	GetDeliveryPoints(ctx context.Context, req *DeliveryPointsRequest) (*DeliveryPointsResponse, error)
}

// ============================================================================
// API Request/Response Types (match the GLS JSON API structure)
// ============================================================================

// ParcelListRequest registers parcels. POST /ParcelService/PrepareLabels
type ParcelListRequest struct {
	Credentials carrier.Credentials `json:"-"`
	UseTest     bool                `json:"-"`
	ParcelList  []WireParcel        `json:"parcelList"`
}

// WireParcel is one parcel in GLS wire form.
type WireParcel struct {
	ClientReference string        `json:"clientReference"`
	Content         string        `json:"content,omitempty"`
	Count           int           `json:"count"`
	Weight          float64       `json:"weight"` // kg
	PickupAddress   WireAddress   `json:"pickupAddress"`
	DeliveryAddress WireAddress   `json:"deliveryAddress"`
	CODAmount       float64       `json:"codAmount,omitempty"`
	CODCurrency     string        `json:"codCurrency,omitempty"`
	ServiceList     []WireService `json:"serviceList,omitempty"`
}

// WireAddress is a GLS address block.
type WireAddress struct {
	Name           string `json:"name"`
	Street         string `json:"street"`
	HouseNumber    string `json:"houseNumber,omitempty"`
	City           string `json:"city"`
	ZipCode        string `json:"zipCode"`
	CountryIsoCode string `json:"countryIsoCode"`
	ContactName    string `json:"contactName,omitempty"`
	ContactPhone   string `json:"contactPhone,omitempty"`
	ContactEmail   string `json:"contactEmail,omitempty"`
}

// WireService is a GLS service flag. Pickup-point delivery is the PSD
// service with the point id as its parameter.
type WireService struct {
	Code         string        `json:"code"`
	PSDParameter *PSDParameter `json:"psdParameter,omitempty"`
}

// PSDParameter carries the pickup-point id for parcel-shop delivery.
type PSDParameter struct {
	StringValue string `json:"stringValue"`
}

// ParcelListResponse is the outcome of parcel registration. Successful
// parcels appear in ParcelInfoList, failed ones in ErrorList; a parcel
// appears in exactly one.
type ParcelListResponse struct {
	// encoding/json matches keys case-insensitively, which also covers
	// the PascalCase spelling some GLS endpoints emit.
	ParcelInfoList []ParcelInfo `json:"parcelInfoList"`
	ErrorList      []WireError  `json:"errorList"`
}

// ParcelInfo is one successfully registered parcel.
type ParcelInfo struct {
	ClientReference string `json:"clientReference"`
	ParcelID        int64  `json:"parcelId"`
	ParcelNumber    int64  `json:"parcelNumber,omitempty"`
}

// WireError is a GLS item-level error, referencing the affected parcels
// by client reference and/or parcel id.
type WireError struct {
	ErrorCode           int      `json:"errorCode"`
	ErrorDescription    string   `json:"errorDescription"`
	ClientReferenceList []string `json:"clientReferenceList,omitempty"`
	ParcelIDList        []int64  `json:"parcelIdList,omitempty"`
}

// PrintLabelsRequest generates labels. POST /ParcelService/GetPrintedLabels
type PrintLabelsRequest struct {
	Credentials   carrier.Credentials `json:"-"`
	UseTest       bool                `json:"-"`
	ParcelIDList  []int64             `json:"parcelIdList,omitempty"`
	ParcelList    []WireParcel        `json:"parcelList,omitempty"`
	TypeOfPrinter string              `json:"typeOfPrinter,omitempty"`
	PrintPosition int                 `json:"printPosition,omitempty"`
	SingleFile    bool                `json:"singleFile,omitempty"`
}

// PrintLabelsResponse carries either one combined PDF in Labels or, when
// the carrier decided to split, per-parcel label data inside
// PrintDataInfoList entries. Label payloads arrive as a base64 string or
// a JSON byte array; carrier.DecodeLabelData normalizes both.
type PrintLabelsResponse struct {
	Labels            any             `json:"labels,omitempty"`
	PrintDataInfoList []PrintDataInfo `json:"printDataInfoList"`
	ErrorList         []WireError     `json:"errorList"`
}

// PrintDataInfo is the per-parcel print outcome.
type PrintDataInfo struct {
	ClientReference string `json:"clientReference"`
	ParcelID        int64  `json:"parcelId"`
	ParcelNumber    int64  `json:"parcelNumber,omitempty"`
	Labels          any    `json:"labels,omitempty"` // set when split per parcel
}

// ParcelStatusRequest fetches tracking history.
// GET /ParcelService/GetParcelStatuses
type ParcelStatusRequest struct {
	Credentials     carrier.Credentials `json:"-"`
	UseTest         bool                `json:"-"`
	ParcelNumber    string
	LanguageIsoCode string
	ReturnPOD       bool
}

// ParcelStatusResponse is the tracking history of one parcel.
type ParcelStatusResponse struct {
	ParcelNumber     string              `json:"parcelNumber"`
	ParcelStatusList []ParcelStatusEntry `json:"parcelStatusList"`
	POD              any                 `json:"pod,omitempty"`
}

// ParcelStatusEntry is one raw tracking event.
type ParcelStatusEntry struct {
	StatusCode        string `json:"statusCode"`
	StatusDate        string `json:"statusDate"`
	StatusDescription string `json:"statusDescription"`
	StatusInfo        string `json:"statusInfo,omitempty"`
	DepotCity         string `json:"depotCity,omitempty"`
}

// DeliveryPointsRequest fetches the public pickup-point feed.
// GET /deliveryPoints/{country}.json
type DeliveryPointsRequest struct {
	UseTest bool
	Country string // lower-case ISO code
}

// DeliveryPointsResponse is the unwrapped feed.
type DeliveryPointsResponse struct {
	Items []DeliveryPoint `json:"items"`
}

// deliveryPointsFeed accepts both the bare feed and the wrapped form the
// CDN sometimes serves.
type deliveryPointsFeed struct {
	Items      []DeliveryPoint `json:"items"`
	Status     int             `json:"status,omitempty"`
	StatusText string          `json:"statusText,omitempty"`
	Body       *struct {
		Items []DeliveryPoint `json:"items"`
	} `json:"body,omitempty"`
}

func (f *deliveryPointsFeed) items() []DeliveryPoint {
	if f.Body != nil {
		return f.Body.Items
	}
	return f.Items
}

// DeliveryPoint is one raw feed entry.
type DeliveryPoint struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Type     string               `json:"type"` // contains "locker" for parcel lockers
	Address  DeliveryPointAddress `json:"address"`
	Contact  DeliveryPointContact `json:"contact"`
	Location []float64            `json:"location"` // [latitude, longitude]
	Features []string             `json:"features"`
	// Hours holds seven entries, Monday first. A null entry is a closed
	// day; a four-element entry includes a lunch break.
	Hours          [][]string `json:"hours"`
	PaymentOptions []string   `json:"paymentOptions,omitempty"`
}

// DeliveryPointAddress is the feed address block.
type DeliveryPointAddress struct {
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
	Street  string `json:"street"`
}

// DeliveryPointContact is the feed contact block.
type DeliveryPointContact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}
