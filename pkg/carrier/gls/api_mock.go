package gls

import (
	"context"
	"time"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateParcels     func(ctx context.Context, req *ParcelListRequest) (*ParcelListResponse, error)
	OnPrintLabels       func(ctx context.Context, req *PrintLabelsRequest) (*PrintLabelsResponse, error)
	OnGetParcelStatuses func(ctx context.Context, req *ParcelStatusRequest) (*ParcelStatusResponse, error)
	OnGetDeliveryPoints func(ctx context.Context, req *DeliveryPointsRequest) (*DeliveryPointsResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return carrier.NewError(CarrierID, carrier.Transient, "simulated API error")
	}
	return nil
}

// CreateParcels registers mock parcels, one ParcelInfo per input in
// order.
func (m *MockAPIClient) CreateParcels(ctx context.Context, req *ParcelListRequest) (*ParcelListResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateParcels != nil {
		return m.OnCreateParcels(ctx, req)
	}

	resp := &ParcelListResponse{}
	for i, p := range req.ParcelList {
		resp.ParcelInfoList = append(resp.ParcelInfoList, ParcelInfo{
			ClientReference: p.ClientReference,
			ParcelID:        int64(100000 + i),
			ParcelNumber:    int64(90000000000 + i),
		})
	}
	return resp, nil
}

// PrintLabels returns a mock combined PDF for the requested parcels.
func (m *MockAPIClient) PrintLabels(ctx context.Context, req *PrintLabelsRequest) (*PrintLabelsResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnPrintLabels != nil {
		return m.OnPrintLabels(ctx, req)
	}

	resp := &PrintLabelsResponse{
		Labels: "JVBERi0xLjQKJSBtb2NrIGxhYmVs", // tiny fake PDF, base64
	}
	for i, id := range req.ParcelIDList {
		resp.PrintDataInfoList = append(resp.PrintDataInfoList, PrintDataInfo{
			ParcelID:     id,
			ParcelNumber: int64(90000000000 + i),
		})
	}
	for i, p := range req.ParcelList {
		resp.PrintDataInfoList = append(resp.PrintDataInfoList, PrintDataInfo{
			ClientReference: p.ClientReference,
			ParcelID:        int64(100000 + i),
			ParcelNumber:    int64(91000000000 + i),
		})
	}
	return resp, nil
}

// GetParcelStatuses returns a mock two-event history ending delivered.
func (m *MockAPIClient) GetParcelStatuses(ctx context.Context, req *ParcelStatusRequest) (*ParcelStatusResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetParcelStatuses != nil {
		return m.OnGetParcelStatuses(ctx, req)
	}

	now := time.Now()
	return &ParcelStatusResponse{
		ParcelNumber: req.ParcelNumber,
		ParcelStatusList: []ParcelStatusEntry{
			{
				StatusCode:        "1",
				StatusDate:        now.Add(-48 * time.Hour).Format(time.RFC3339),
				StatusDescription: "Parcel data transmitted",
				DepotCity:         "Budapest",
			},
			{
				StatusCode:        "5",
				StatusDate:        now.Add(-2 * time.Hour).Format(time.RFC3339),
				StatusDescription: "Delivered",
				DepotCity:         "Szeged",
			},
		},
	}, nil
}

// GetDeliveryPoints returns two mock pickup points, one shop and one
// locker.
func (m *MockAPIClient) GetDeliveryPoints(ctx context.Context, req *DeliveryPointsRequest) (*DeliveryPointsResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetDeliveryPoints != nil {
		return m.OnGetDeliveryPoints(ctx, req)
	}

	return &DeliveryPointsResponse{
		Items: []DeliveryPoint{
			{
				ID:   "2351-CSOMAGPONT",
				Name: "GLS Csomagpont - OMV",
				Type: "parcelshop",
				Address: DeliveryPointAddress{
					City:    "Budapest",
					ZipCode: "1117",
					Street:  "Irinyi József utca 38.",
				},
				Contact:  DeliveryPointContact{Phone: "+36 1 555 1234"},
				Location: []float64{47.4733, 19.0567},
				Features: []string{"pickup", "dropoff"},
				Hours: [][]string{
					{"08:00", "12:00", "13:00", "18:00"},
					{"08:00", "18:00"},
					{"08:00", "18:00"},
					{"08:00", "18:00"},
					{"08:00", "18:00"},
					{"09:00", "13:00"},
					nil,
				},
				PaymentOptions: []string{"cash", "card"},
			},
			{
				ID:   "9921-LOCKER",
				Name: "GLS Automata - Allee",
				Type: "parcel-locker",
				Address: DeliveryPointAddress{
					City:    "Budapest",
					ZipCode: "1113",
					Street:  "Október huszonharmadika utca 8-10.",
				},
				Location: []float64{47.4761, 19.0472},
				Features: []string{"pickup", "dropoff"},
				Hours: [][]string{
					{"00:00", "24:00"},
					{"00:00", "24:00"},
					{"00:00", "24:00"},
					{"00:00", "24:00"},
					{"00:00", "24:00"},
					{"00:00", "24:00"},
					{"00:00", "24:00"},
				},
			},
		},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
