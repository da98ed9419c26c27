package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/internal/server"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/memstore"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier/mock"
)

func newTestHandler(adapters ...carrier.Adapter) http.Handler {
	registry := carrier.NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}
	srv := server.New(server.Config{Port: 0}, registry, memstore.New(), otelzap.New(zap.NewNop()))
	return srv.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := doJSON(t, newTestHandler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Carriers(t *testing.T) {
	a := mock.New("gls")
	a.Requires = map[carrier.Capability][]carrier.Capability{
		carrier.CapCreateLabels: {carrier.CapCreateParcels},
	}
	rec := doJSON(t, newTestHandler(a), http.MethodGet, "/carriers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Carriers []struct {
			ID           string              `json:"id"`
			Capabilities []string            `json:"capabilities"`
			Requires     map[string][]string `json:"requires"`
		} `json:"carriers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Carriers, 1)
	assert.Equal(t, "gls", body.Carriers[0].ID)
	assert.Contains(t, body.Carriers[0].Capabilities, "CREATE_PARCELS")
	assert.Equal(t, []string{"CREATE_PARCELS"}, body.Carriers[0].Requires["CREATE_LABELS"])
}

func TestServer_CreateParcels(t *testing.T) {
	rec := doJSON(t, newTestHandler(mock.New("gls")), http.MethodPost, "/carriers/gls/parcels", map[string]any{
		"parcels": []map[string]any{
			{
				"id": "p-1",
				"shipper": map[string]any{
					"address": map[string]any{"city": "Budapest", "countryCode": "HU"},
				},
				"recipient": map[string]any{
					"method":  "HOME",
					"address": map[string]any{"city": "Szeged", "countryCode": "HU"},
				},
				"package": map[string]any{"weightGrams": 1000},
			},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp carrier.CreateParcelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.AllSucceeded)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "gls-parcel-p-1", resp.Results[0].Resource.CarrierID)
}

func TestServer_UnknownCarrierIs404(t *testing.T) {
	rec := doJSON(t, newTestHandler(), http.MethodPost, "/carriers/ghost/track", map[string]any{
		"trackingNumber": "X",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CapabilityGapIs501(t *testing.T) {
	a := mock.New("limited")
	a.Capabilities = []carrier.Capability{carrier.CapCreateParcels}
	rec := doJSON(t, newTestHandler(a), http.MethodPost, "/carriers/limited/track", map[string]any{
		"trackingNumber": "X",
	})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	var body struct {
		Code     string `json:"code"`
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_IMPLEMENTED", body.Code)
}

func TestServer_ErrorCategoryMapping(t *testing.T) {
	a := mock.New("gls")
	a.OnTrack = func(ctx context.Context, req *carrier.TrackRequest) (*carrier.TrackingUpdate, error) {
		return nil, carrier.NewError("gls", carrier.Validation, "tracking number is required")
	}
	rec := doJSON(t, newTestHandler(a), http.MethodPost, "/carriers/gls/track", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	a.OnTrack = func(ctx context.Context, req *carrier.TrackRequest) (*carrier.TrackingUpdate, error) {
		return nil, carrier.NewError("gls", carrier.RateLimit, "throttled")
	}
	rec = doJSON(t, newTestHandler(a), http.MethodPost, "/carriers/gls/track", map[string]any{})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Permanent failures stay 422; only an unregistered carrier is 404.
	a.OnTrack = func(ctx context.Context, req *carrier.TrackRequest) (*carrier.TrackingUpdate, error) {
		return nil, carrier.NewError("gls", carrier.Permanent, "parcel purged")
	}
	rec = doJSON(t, newTestHandler(a), http.MethodPost, "/carriers/gls/track", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_InvalidJSONIs400(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/carriers/gls/track", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	newTestHandler(mock.New("gls")).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Track(t *testing.T) {
	rec := doJSON(t, newTestHandler(mock.New("gls")), http.MethodPost, "/carriers/gls/track", map[string]any{
		"trackingNumber": "900001",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var update carrier.TrackingUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &update))
	assert.Equal(t, "900001", update.TrackingNumber)
	assert.Equal(t, carrier.TrackingInTransit, update.Status)
}

func TestServer_AggregatedPickupPoints(t *testing.T) {
	ok := mock.New("gls")
	broken := mock.New("broken")
	broken.OnFetchPickupPoints = func(ctx context.Context, req *carrier.PickupPointsRequest) (*carrier.PickupPointsResponse, error) {
		return nil, carrier.NewError("broken", carrier.Transient, "feed down")
	}
	rec := doJSON(t, newTestHandler(ok, broken), http.MethodGet, "/pickup-points?country=HU", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Points   []carrier.PickupPoint `json:"points"`
		Failures []string              `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Points, 1)
	assert.Equal(t, "gls", body.Points[0].ProviderID)
	require.Len(t, body.Failures, 1)
	assert.Contains(t, body.Failures[0], "broken")
}

func TestServer_CloseShipment(t *testing.T) {
	rec := doJSON(t, newTestHandler(mock.New("mpl")), http.MethodPost, "/carriers/mpl/shipments/s-1/close", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	var res carrier.CarrierResource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "s-1", res.CarrierID)
}

func TestServer_Metrics(t *testing.T) {
	rec := doJSON(t, newTestHandler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
