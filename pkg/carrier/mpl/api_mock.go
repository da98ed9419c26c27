package mpl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShipments   func(ctx context.Context, req *ShipmentsRequest) (*ShipmentsResponse, error)
	OnCloseShipment     func(ctx context.Context, req *CloseRequest) (*CloseResponse, error)
	OnGetLabels         func(ctx context.Context, req *LabelsRequest) (*LabelsResponse, error)
	OnSubmitTrackingJob func(ctx context.Context, req *TrackingJobRequest) (*TrackingJobResponse, error)
	OnPollTrackingJob   func(ctx context.Context, req *TrackingPollRequest) (*TrackingPollResponse, error)
	OnExchangeToken     func(ctx context.Context, creds carrier.Credentials) (*carrier.OAuthToken, error)
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

// CreateShipments registers mock shipments, one outcome per input.
func (m *MockAPIClient) CreateShipments(ctx context.Context, req *ShipmentsRequest) (*ShipmentsResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateShipments != nil {
		return m.OnCreateShipments(ctx, req)
	}

	resp := &ShipmentsResponse{}
	for i, s := range req.Shipments {
		resp.Result = append(resp.Result, ShipmentOutcome{
			ClientReference: s.ClientReference,
			ShipmentID:      fmt.Sprintf("mpl-ship-%d", 1000+i),
			TrackingNumber:  fmt.Sprintf("PN%010dHU", 7000000000+int64(i)),
		})
	}
	return resp, nil
}

// CloseShipment closes a mock shipment.
func (m *MockAPIClient) CloseShipment(ctx context.Context, req *CloseRequest) (*CloseResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCloseShipment != nil {
		return m.OnCloseShipment(ctx, req)
	}
	return &CloseResponse{ShipmentID: req.ShipmentID, State: "CLOSED"}, nil
}

// GetLabels returns a mock combined PDF.
func (m *MockAPIClient) GetLabels(ctx context.Context, req *LabelsRequest) (*LabelsResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetLabels != nil {
		return m.OnGetLabels(ctx, req)
	}

	resp := &LabelsResponse{}
	if req.SingleFile {
		resp.ContentType = "application/pdf"
		resp.Combined = []byte("%PDF-1.4 mock combined")
		for _, tn := range req.TrackingNumbers {
			resp.Items = append(resp.Items, LabelItem{TrackingNumber: tn})
		}
		return resp, nil
	}
	for _, tn := range req.TrackingNumbers {
		resp.Items = append(resp.Items, LabelItem{
			TrackingNumber: tn,
			Label:          "JVBERi0xLjQKbW9jaw==",
		})
	}
	return resp, nil
}

// SubmitTrackingJob returns a fresh mock GUID.
func (m *MockAPIClient) SubmitTrackingJob(ctx context.Context, req *TrackingJobRequest) (*TrackingJobResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnSubmitTrackingJob != nil {
		return m.OnSubmitTrackingJob(ctx, req)
	}
	return &TrackingJobResponse{TrackingGUID: uuid.New().String()}, nil
}

// PollTrackingJob reports a mock job as immediately READY with one row
// per requested number.
func (m *MockAPIClient) PollTrackingJob(ctx context.Context, req *TrackingPollRequest) (*TrackingPollResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnPollTrackingJob != nil {
		return m.OnPollTrackingJob(ctx, req)
	}
	return &TrackingPollResponse{
		State:        "READY",
		ReportFields: "tracking;status;date",
		Report:       "PN0000000001HU;DELIVERED;" + time.Now().Format("2006-01-02"),
	}, nil
}

// ExchangeToken returns a mock bearer token.
func (m *MockAPIClient) ExchangeToken(ctx context.Context, creds carrier.Credentials) (*carrier.OAuthToken, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnExchangeToken != nil {
		return m.OnExchangeToken(ctx, creds)
	}
	return &carrier.OAuthToken{
		AccessToken: "mock-token-" + uuid.New().String()[:8],
		TokenType:   "Bearer",
		ExpiresIn:   1799,
		IssuedAt:    time.Now(),
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
