// Package server exposes the carrier integration layer over HTTP: carrier
// discovery, parcel and label operations, tracking, and the aggregated
// pickup point feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/internal/telemetry"
	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// Server is the HTTP server for the integration service.
type Server struct {
	port       int
	registry   *carrier.Registry
	dispatcher *carrier.Dispatcher
	logger     *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance. The dispatcher is built over the
// given registry and store with a fresh metrics set.
func New(cfg Config, registry *carrier.Registry, store carrier.Store, logger *otelzap.Logger) *Server {
	metrics := telemetry.NewMetrics()
	dispatcher := carrier.NewDispatcher(registry, store, logger, metrics)

	return &Server{
		port:       cfg.Port,
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /carriers", s.handleCarriers)
	mux.HandleFunc("POST /carriers/{carrier}/parcels", s.handleCreateParcels)
	mux.HandleFunc("POST /carriers/{carrier}/shipments/{shipment}/close", s.handleCloseShipment)
	mux.HandleFunc("POST /carriers/{carrier}/labels", s.handleCreateLabels)
	mux.HandleFunc("POST /carriers/{carrier}/track", s.handleTrack)
	mux.HandleFunc("POST /carriers/{carrier}/token", s.handleExchangeToken)
	mux.HandleFunc("GET /carriers/{carrier}/pickup-points", s.handleCarrierPickupPoints)
	mux.HandleFunc("GET /pickup-points", s.handleAllPickupPoints)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// carrierInfo is the discovery view of one adapter.
type carrierInfo struct {
	ID           string              `json:"id"`
	DisplayName  string              `json:"displayName"`
	Capabilities []string            `json:"capabilities"`
	Requires     map[string][]string `json:"requires,omitempty"`
}

func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	adapters := s.registry.All()
	infos := make([]carrierInfo, 0, len(adapters))
	for _, a := range adapters {
		desc := a.Descriptor()
		info := carrierInfo{
			ID:           desc.ID,
			DisplayName:  desc.DisplayName,
			Capabilities: make([]string, 0, len(desc.Capabilities)),
		}
		for _, c := range desc.Capabilities {
			info.Capabilities = append(info.Capabilities, string(c))
		}
		if len(desc.Requires) > 0 {
			info.Requires = make(map[string][]string, len(desc.Requires))
			for op, prereqs := range desc.Requires {
				deps := make([]string, 0, len(prereqs))
				for _, p := range prereqs {
					deps = append(deps, string(p))
				}
				info.Requires[string(op)] = deps
			}
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"carriers": infos})
}

// credentialsInput is the wire form of carrier credentials.
type credentialsInput struct {
	Kind        string `json:"kind"`
	APIKey      string `json:"apiKey,omitempty"`
	APISecret   string `json:"apiSecret,omitempty"`
	BearerToken string `json:"bearerToken,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

func (c credentialsInput) toModel() carrier.Credentials {
	return carrier.Credentials{
		Kind:        carrier.CredentialKind(c.Kind),
		APIKey:      c.APIKey,
		APISecret:   c.APISecret,
		BearerToken: c.BearerToken,
		Username:    c.Username,
		Password:    c.Password,
	}
}

// optionsInput is the wire form of per-request options.
type optionsInput struct {
	UseTestAPI      bool   `json:"useTestApi,omitempty"`
	AccountingCode  string `json:"accountingCode,omitempty"`
	LanguageISOCode string `json:"languageIsoCode,omitempty"`
	ReturnPOD       bool   `json:"returnPod,omitempty"`
	LabelType       string `json:"labelType,omitempty"`
	LabelFormat     string `json:"labelFormat,omitempty"`
	SingleFile      bool   `json:"singleFile,omitempty"`
}

func (o optionsInput) toModel() carrier.Options {
	return carrier.Options{
		UseTestAPI:      o.UseTestAPI,
		AccountingCode:  o.AccountingCode,
		LanguageISOCode: o.LanguageISOCode,
		ReturnPOD:       o.ReturnPOD,
		LabelType:       o.LabelType,
		LabelFormat:     o.LabelFormat,
		SingleFile:      o.SingleFile,
	}
}

type createParcelsInput struct {
	Parcels     []carrier.Parcel `json:"parcels"`
	Credentials credentialsInput `json:"credentials"`
	Options     optionsInput     `json:"options"`
}

func (s *Server) handleCreateParcels(w http.ResponseWriter, r *http.Request) {
	var input createParcelsInput
	if !decodeBody(w, r, &input) {
		return
	}
	resp, err := s.dispatcher.CreateParcels(r.Context(), r.PathValue("carrier"), &carrier.CreateParcelsRequest{
		Parcels:     input.Parcels,
		Credentials: input.Credentials.toModel(),
		Options:     input.Options.toModel(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type closeShipmentInput struct {
	Credentials credentialsInput `json:"credentials"`
	Options     optionsInput     `json:"options"`
}

func (s *Server) handleCloseShipment(w http.ResponseWriter, r *http.Request) {
	var input closeShipmentInput
	if !decodeBody(w, r, &input) {
		return
	}
	res, err := s.dispatcher.CloseShipment(r.Context(), r.PathValue("carrier"), &carrier.CloseShipmentRequest{
		ShipmentID:  r.PathValue("shipment"),
		Credentials: input.Credentials.toModel(),
		Options:     input.Options.toModel(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createLabelsInput struct {
	ParcelCarrierIDs []string         `json:"parcelCarrierIds"`
	Parcels          []carrier.Parcel `json:"parcels"`
	Credentials      credentialsInput `json:"credentials"`
	Options          optionsInput     `json:"options"`
}

func (s *Server) handleCreateLabels(w http.ResponseWriter, r *http.Request) {
	var input createLabelsInput
	if !decodeBody(w, r, &input) {
		return
	}
	resp, err := s.dispatcher.ExecuteCreateLabels(r.Context(), r.PathValue("carrier"), &carrier.CreateLabelsRequest{
		ParcelCarrierIDs: input.ParcelCarrierIDs,
		Parcels:          input.Parcels,
		Credentials:      input.Credentials.toModel(),
		Options:          input.Options.toModel(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type trackInput struct {
	TrackingNumber string           `json:"trackingNumber"`
	Credentials    credentialsInput `json:"credentials"`
	Options        optionsInput     `json:"options"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var input trackInput
	if !decodeBody(w, r, &input) {
		return
	}
	update, err := s.dispatcher.Track(r.Context(), r.PathValue("carrier"), &carrier.TrackRequest{
		TrackingNumber: input.TrackingNumber,
		Credentials:    input.Credentials.toModel(),
		Options:        input.Options.toModel(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

type exchangeTokenInput struct {
	Credentials credentialsInput `json:"credentials"`
	Options     optionsInput     `json:"options"`
}

func (s *Server) handleExchangeToken(w http.ResponseWriter, r *http.Request) {
	var input exchangeTokenInput
	if !decodeBody(w, r, &input) {
		return
	}
	tok, err := s.dispatcher.ExchangeAuthToken(r.Context(), r.PathValue("carrier"), &carrier.ExchangeAuthTokenRequest{
		Credentials: input.Credentials.toModel(),
		Options:     input.Options.toModel(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *Server) handleCarrierPickupPoints(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	resp, err := s.dispatcher.FetchPickupPoints(r.Context(), r.PathValue("carrier"), &carrier.PickupPointsRequest{
		Country: country,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAllPickupPoints(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	points, errs := s.registry.FetchAllPickupPoints(r.Context(), &carrier.PickupPointsRequest{
		Country: country,
	})
	failures := make([]string, 0, len(errs))
	for _, err := range errs {
		s.logger.Warn("Pickup point fetch failed", zap.Error(err))
		failures = append(failures, err.Error())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"points":   points,
		"failures": failures,
	})
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
	Carrier  string `json:"carrier,omitempty"`
	Code     string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	body := errorResponse{Error: err.Error()}

	var cErr *carrier.Error
	if errors.As(err, &cErr) {
		body.Category = string(cErr.Category)
		body.Carrier = cErr.Carrier
		body.Code = cErr.CarrierCode
		switch cErr.Category {
		case carrier.Validation:
			status = http.StatusBadRequest
		case carrier.Auth:
			status = http.StatusUnauthorized
		case carrier.RateLimit:
			status = http.StatusTooManyRequests
		case carrier.Transient:
			status = http.StatusServiceUnavailable
		case carrier.Permanent:
			status = http.StatusUnprocessableEntity
		}
		if cErr.CarrierCode == "NOT_IMPLEMENTED" {
			status = http.StatusNotImplemented
		}
	}
	// Unknown carrier is routing, not a carrier outcome. The sentinel
	// only matches its own wrap chain, never other Permanent errors.
	if errors.Is(err, carrier.ErrCarrierNotFound) {
		status = http.StatusNotFound
	}

	writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
