package gls_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/gls"
)

func newTestClient(mockClient *gls.MockAPIClient) *gls.Client {
	logger := otelzap.New(zap.NewNop())
	return gls.NewWithAPIClient(gls.Config{}, mockClient, logger, nil)
}

func testParcel(id string) carrier.Parcel {
	return carrier.Parcel{
		ID: id,
		Shipper: carrier.Party{
			Contact: carrier.Contact{Name: "Webshop Kft.", Phone: "+36 1 555 0000"},
			Address: carrier.Address{
				Name:        "Webshop Kft.",
				Street:      "Váci út",
				HouseNumber: "1",
				City:        "Budapest",
				PostalCode:  "1062",
				CountryCode: "HU",
			},
		},
		Recipient: carrier.Recipient{
			Method:  carrier.DeliveryHome,
			Contact: carrier.Contact{Name: "Kiss Anna", Phone: "+36 30 555 1111"},
			Address: &carrier.Address{
				Name:        "Kiss Anna",
				Street:      "Fő utca",
				HouseNumber: "10",
				City:        "Szeged",
				PostalCode:  "6720",
				CountryCode: "HU",
			},
		},
		Package: carrier.Package{WeightGrams: 1500},
	}
}

func TestClient_CreateParcels_Success(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	client := newTestClient(mockAPI)

	req := &carrier.CreateParcelsRequest{
		Parcels:     []carrier.Parcel{testParcel("A"), testParcel("B")},
		Credentials: carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	}

	resp, err := client.CreateParcels(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, 2, resp.SuccessCount)
	assert.True(t, resp.AllSucceeded)
	assert.Equal(t, "All 2 succeeded", resp.Summary)
	assert.Equal(t, "A", resp.Results[0].InputID)
	assert.Equal(t, "B", resp.Results[1].InputID)
	assert.NotEmpty(t, resp.Results[0].Resource.CarrierID)
}

func TestClient_CreateParcels_PartialFailure(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	mockAPI.OnCreateParcels = func(ctx context.Context, req *gls.ParcelListRequest) (*gls.ParcelListResponse, error) {
		return &gls.ParcelListResponse{
			ParcelInfoList: []gls.ParcelInfo{
				{ClientReference: "A", ParcelID: 111},
				{ClientReference: "C", ParcelID: 333},
			},
			ErrorList: []gls.WireError{
				{ErrorCode: 400, ErrorDescription: "Invalid address", ClientReferenceList: []string{"B"}},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	req := &carrier.CreateParcelsRequest{
		Parcels:     []carrier.Parcel{testParcel("A"), testParcel("B"), testParcel("C")},
		Credentials: carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	}

	resp, err := client.CreateParcels(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 2, resp.SuccessCount)
	assert.Equal(t, 1, resp.FailureCount)
	assert.True(t, resp.SomeFailed)
	assert.Equal(t, "Mixed: 2 succeeded, 1 failed", resp.Summary)

	failed := resp.Results[1]
	assert.Equal(t, "B", failed.InputID)
	assert.Equal(t, carrier.ResourceFailed, failed.Resource.Status)
	assert.Empty(t, failed.Resource.CarrierID)
	require.Len(t, failed.Errors, 1)
	assert.Equal(t, "400", failed.Errors[0].Code)
	assert.Equal(t, "Invalid address", failed.Errors[0].Message)
}

func TestClient_CreateParcels_BatchLimit(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	called := false
	mockAPI.OnCreateParcels = func(ctx context.Context, req *gls.ParcelListRequest) (*gls.ParcelListResponse, error) {
		called = true
		return &gls.ParcelListResponse{}, nil
	}
	client := newTestClient(mockAPI)

	parcels := make([]carrier.Parcel, 101)
	for i := range parcels {
		parcels[i] = testParcel(fmt.Sprintf("P%d", i))
	}

	_, err := client.CreateParcels(context.Background(), &carrier.CreateParcelsRequest{
		Parcels:     parcels,
		Credentials: carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.Error(t, err)
	assert.Equal(t, carrier.Validation, carrier.CategoryOf(err))
	assert.Contains(t, err.Error(), "too many items in batch")
	assert.False(t, called, "the batch must be rejected before any API call")
}

func TestClient_CreateParcels_InvalidParcelAbortsBatch(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	client := newTestClient(mockAPI)

	bad := testParcel("B")
	bad.Package.WeightGrams = 0

	_, err := client.CreateParcels(context.Background(), &carrier.CreateParcelsRequest{
		Parcels:     []carrier.Parcel{testParcel("A"), bad},
		Credentials: carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.Error(t, err)
	assert.Equal(t, carrier.Validation, carrier.CategoryOf(err))
}

func TestClient_CreateLabels_CombinedPDF(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	mockAPI.OnPrintLabels = func(ctx context.Context, req *gls.PrintLabelsRequest) (*gls.PrintLabelsResponse, error) {
		return &gls.PrintLabelsResponse{
			Labels: "JVBERi0xLjQKY29tYmluZWQ=",
			PrintDataInfoList: []gls.PrintDataInfo{
				{ParcelID: 1, ParcelNumber: 9001},
				{ParcelID: 2, ParcelNumber: 9002},
				{ParcelID: 3, ParcelNumber: 9003},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateLabels(context.Background(), &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{"1", "2", "3"},
		Credentials:      carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.NoError(t, err)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, 3, resp.Files[0].Pages)
	assert.Equal(t, "application/pdf", resp.Files[0].ContentType)
	assert.Equal(t, "All 3 succeeded", resp.Summary)

	require.Len(t, resp.Results, 3)
	for i, want := range []carrier.PageRange{{Start: 1, End: 1}, {Start: 2, End: 2}, {Start: 3, End: 3}} {
		assert.Equal(t, resp.Files[0].ID, resp.Results[i].FileID)
		require.NotNil(t, resp.Results[i].PageRange)
		assert.Equal(t, want, *resp.Results[i].PageRange)
	}
}

func TestClient_CreateLabels_ClientReferenceIDs(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	var wireReq *gls.PrintLabelsRequest
	mockAPI.OnPrintLabels = func(ctx context.Context, req *gls.PrintLabelsRequest) (*gls.PrintLabelsResponse, error) {
		wireReq = req
		return &gls.PrintLabelsResponse{
			Labels: "JVBERi0xLjQKY29tYmluZWQ=",
			PrintDataInfoList: []gls.PrintDataInfo{
				{ClientReference: "A", ParcelNumber: 9001},
				{ClientReference: "B", ParcelNumber: 9002},
				{ClientReference: "C", ParcelNumber: 9003},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateLabels(context.Background(), &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{"A", "B", "C"},
		Credentials:      carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.NoError(t, err)
	assert.True(t, resp.AllSucceeded)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, 3, resp.Files[0].Pages)
	require.Len(t, resp.Results, 3)
	for i, want := range []carrier.PageRange{{Start: 1, End: 1}, {Start: 2, End: 2}, {Start: 3, End: 3}} {
		require.NotNil(t, resp.Results[i].PageRange)
		assert.Equal(t, want, *resp.Results[i].PageRange)
	}
	assert.Equal(t, "9002", resp.Results[1].CarrierID)

	// Non-numeric ids travel as reference-only parcel entries with
	// placeholder address blocks, never as numeric parcel ids.
	require.NotNil(t, wireReq)
	assert.Empty(t, wireReq.ParcelIDList)
	require.Len(t, wireReq.ParcelList, 3)
	assert.Equal(t, "B", wireReq.ParcelList[1].ClientReference)
	assert.Equal(t, "-", wireReq.ParcelList[1].DeliveryAddress.Name)
	assert.NotEmpty(t, wireReq.ParcelList[1].PickupAddress.ZipCode)
}

func TestClient_CreateLabels_ErrorKeyedByClientReference(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	mockAPI.OnPrintLabels = func(ctx context.Context, req *gls.PrintLabelsRequest) (*gls.PrintLabelsResponse, error) {
		return &gls.PrintLabelsResponse{
			Labels: "JVBERi0xLjQKY29tYmluZWQ=",
			PrintDataInfoList: []gls.PrintDataInfo{
				{ClientReference: "A", ParcelNumber: 9001},
				{ClientReference: "C", ParcelNumber: 9003},
			},
			ErrorList: []gls.WireError{
				{ErrorCode: 400, ErrorDescription: "Invalid address", ClientReferenceList: []string{"B"}},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateLabels(context.Background(), &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{"A", "B", "C"},
		Credentials:      carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.NoError(t, err)
	assert.True(t, resp.SomeFailed)

	failed := resp.Results[1]
	assert.Equal(t, "B", failed.InputID)
	assert.Equal(t, carrier.ResourceFailed, failed.Status)
	require.Len(t, failed.Errors, 1)
	assert.Equal(t, "400", failed.Errors[0].Code)
	assert.Equal(t, "Invalid address", failed.Errors[0].Message)
}

func TestClient_CreateLabels_FullParcelTravelsComplete(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	var wireReq *gls.PrintLabelsRequest
	mockAPI.OnPrintLabels = func(ctx context.Context, req *gls.PrintLabelsRequest) (*gls.PrintLabelsResponse, error) {
		wireReq = req
		return &gls.PrintLabelsResponse{
			Labels: "JVBERi0xLjQKY29tYmluZWQ=",
			PrintDataInfoList: []gls.PrintDataInfo{
				{ClientReference: "A", ParcelNumber: 9001},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateLabels(context.Background(), &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{"A"},
		Parcels:          []carrier.Parcel{testParcel("A")},
		Credentials:      carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.NoError(t, err)
	assert.True(t, resp.AllSucceeded)
	require.NotNil(t, wireReq)
	require.Len(t, wireReq.ParcelList, 1)
	assert.Equal(t, "Kiss Anna", wireReq.ParcelList[0].DeliveryAddress.Name)
	assert.Equal(t, "Webshop Kft.", wireReq.ParcelList[0].PickupAddress.Name)
}

func TestClient_CreateLabels_PartialFailureSkipsPages(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	mockAPI.OnPrintLabels = func(ctx context.Context, req *gls.PrintLabelsRequest) (*gls.PrintLabelsResponse, error) {
		return &gls.PrintLabelsResponse{
			Labels: "JVBERi0xLjQKY29tYmluZWQ=",
			PrintDataInfoList: []gls.PrintDataInfo{
				{ParcelID: 1, ParcelNumber: 9001},
				{ParcelID: 3, ParcelNumber: 9003},
			},
			ErrorList: []gls.WireError{
				{ErrorCode: 400, ErrorDescription: "Invalid address", ParcelIDList: []int64{2}},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateLabels(context.Background(), &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{"1", "2", "3"},
		Credentials:      carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Mixed: 2 succeeded, 1 failed", resp.Summary)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, 2, resp.Files[0].Pages)

	// Page numbering skips the failed item but stays contiguous.
	require.NotNil(t, resp.Results[0].PageRange)
	assert.Equal(t, carrier.PageRange{Start: 1, End: 1}, *resp.Results[0].PageRange)
	assert.Nil(t, resp.Results[1].PageRange)
	assert.Equal(t, carrier.ResourceFailed, resp.Results[1].Status)
	assert.Empty(t, resp.Results[1].CarrierID)
	require.NotNil(t, resp.Results[2].PageRange)
	assert.Equal(t, carrier.PageRange{Start: 2, End: 2}, *resp.Results[2].PageRange)
}

func TestClient_CreateLabels_PerParcelFiles(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	mockAPI.OnPrintLabels = func(ctx context.Context, req *gls.PrintLabelsRequest) (*gls.PrintLabelsResponse, error) {
		return &gls.PrintLabelsResponse{
			PrintDataInfoList: []gls.PrintDataInfo{
				{ParcelID: 1, ParcelNumber: 9001, Labels: "JVBERi0xLjQKb25l"},
				{ParcelID: 2, ParcelNumber: 9002, Labels: "JVBERi0xLjQKdHdv"},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateLabels(context.Background(), &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{"1", "2"},
		Credentials:      carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.NoError(t, err)
	require.Len(t, resp.Files, 2)
	assert.NotEqual(t, resp.Files[0].ID, resp.Files[1].ID)
	assert.Equal(t, resp.Files[0].ID, resp.Results[0].FileID)
	assert.Equal(t, resp.Files[1].ID, resp.Results[1].FileID)
	assert.Equal(t, carrier.PageRange{Start: 1, End: 1}, *resp.Results[0].PageRange)
}

func TestClient_CreateLabels_MetadataOnly(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	mockAPI.OnPrintLabels = func(ctx context.Context, req *gls.PrintLabelsRequest) (*gls.PrintLabelsResponse, error) {
		return &gls.PrintLabelsResponse{
			PrintDataInfoList: []gls.PrintDataInfo{
				{ParcelID: 1, ParcelNumber: 9001},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateLabels(context.Background(), &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: []string{"1"},
		Credentials:      carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.NoError(t, err)
	assert.Empty(t, resp.Files)
	assert.Equal(t, "Metadata only for 1", resp.Summary)
}

func TestClient_Track_NormalizesHistory(t *testing.T) {
	mockAPI := gls.NewMockAPIClient()
	mockAPI.OnGetParcelStatuses = func(ctx context.Context, req *gls.ParcelStatusRequest) (*gls.ParcelStatusResponse, error) {
		return &gls.ParcelStatusResponse{
			ParcelNumber: req.ParcelNumber,
			ParcelStatusList: []gls.ParcelStatusEntry{
				// Out of order on purpose; the update must sort ascending.
				{StatusCode: "5", StatusDate: "2024-01-15T14:30:00Z", StatusDescription: "Delivered", DepotCity: "Szeged"},
				{StatusCode: "1", StatusDate: "2024-01-14T08:00:00Z", StatusDescription: "Parcel data transmitted", DepotCity: "Budapest"},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	update, err := client.Track(context.Background(), &carrier.TrackRequest{
		TrackingNumber: "90000000001",
		Credentials:    carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.NoError(t, err)
	require.Len(t, update.Events, 2)
	assert.Equal(t, carrier.TrackingPending, update.Events[0].Status)
	assert.Equal(t, carrier.TrackingDelivered, update.Events[1].Status)
	assert.Equal(t, "1", update.Events[0].CarrierStatusCode)
	assert.Equal(t, carrier.TrackingDelivered, update.Status)
	assert.Equal(t, time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC), update.LastUpdate)
}

func TestClient_Track_MissingNumber(t *testing.T) {
	client := newTestClient(gls.NewMockAPIClient())

	_, err := client.Track(context.Background(), &carrier.TrackRequest{
		Credentials: carrier.Credentials{Kind: carrier.CredentialAPIKey, APIKey: "key"},
	})

	require.Error(t, err)
	assert.Equal(t, carrier.Validation, carrier.CategoryOf(err))
}

func TestClient_FetchPickupPoints_UnsupportedCountry(t *testing.T) {
	client := newTestClient(gls.NewMockAPIClient())

	_, err := client.FetchPickupPoints(context.Background(), &carrier.PickupPointsRequest{Country: "FR"})

	require.Error(t, err)
	assert.Equal(t, carrier.Validation, carrier.CategoryOf(err))
	assert.Contains(t, err.Error(), "country not found")
}

func TestClient_FetchPickupPoints_Translates(t *testing.T) {
	client := newTestClient(gls.NewMockAPIClient())

	resp, err := client.FetchPickupPoints(context.Background(), &carrier.PickupPointsRequest{Country: "hu"})

	require.NoError(t, err)
	require.Equal(t, 2, resp.TotalCount)

	shop := resp.Points[0]
	assert.Equal(t, "hu", shop.Country)
	assert.Equal(t, "gls", shop.ProviderID)
	assert.True(t, shop.PickupAllowed)
	assert.True(t, shop.DropoffAllowed)
	assert.False(t, shop.IsOutdoor)
	assert.Equal(t, "08:00 - 18:00", shop.OpeningHours["monday"])
	_, sundayOpen := shop.OpeningHours["sunday"]
	assert.False(t, sundayOpen)

	locker := resp.Points[1]
	assert.True(t, locker.IsOutdoor)
	assert.Equal(t, 47.4761, locker.Latitude)
}

func TestClient_FetchPickupPoints_OrderBy(t *testing.T) {
	client := newTestClient(gls.NewMockAPIClient())

	// Feed order puts the parcelshop first; name order flips the pair.
	resp, err := client.FetchPickupPoints(context.Background(), &carrier.PickupPointsRequest{
		Country: "hu",
		Options: carrier.Options{OrderBy: "name"},
	})

	require.NoError(t, err)
	require.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, "GLS Automata - Allee", resp.Points[0].Name)
	assert.Equal(t, "GLS Csomagpont - OMV", resp.Points[1].Name)
}

func TestClient_Descriptor(t *testing.T) {
	client := newTestClient(gls.NewMockAPIClient())

	d := client.Descriptor()
	assert.Equal(t, "gls", d.ID)
	assert.True(t, d.Has(carrier.CapCreateParcels))
	assert.True(t, d.Has(carrier.CapTestMode))
	assert.False(t, d.Has(carrier.CapCloseShipment))
	assert.Equal(t, []carrier.Capability{carrier.CapCreateParcels}, d.Prerequisites(carrier.CapCreateLabels))
}
