package carrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// MetricsRecorder receives dispatch outcomes. internal/telemetry.Metrics
// satisfies it; a nil recorder disables metrics.
type MetricsRecorder interface {
	RecordRequest(operation, carrier, status string, duration float64)
	RecordError(carrier, errorType string)
}

// Dispatcher routes operations to adapters. It enforces capability
// declarations and prerequisite ordering, persists confirmed carrier
// outcomes, and appends lifecycle events.
type Dispatcher struct {
	registry *Registry
	store    Store
	logger   *otelzap.Logger
	metrics  MetricsRecorder
}

// NewDispatcher creates a dispatcher. store and metrics may be nil; a nil
// store disables persistence and prerequisite lookups fall back to
// invoking the prerequisite operation.
func NewDispatcher(registry *Registry, store Store, logger *otelzap.Logger, metrics MetricsRecorder) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		logger:   logger,
		metrics:  metrics,
	}
}

// gate rejects operations the adapter does not declare.
func (d *Dispatcher) gate(a Adapter, op Capability) error {
	desc := a.Descriptor()
	if !desc.Has(op) {
		return NewError(desc.ID, Permanent,
			fmt.Sprintf("operation %s is not implemented by %s", op, desc.ID)).
			WithCode("NOT_IMPLEMENTED")
	}
	return nil
}

func (d *Dispatcher) observe(op Capability, carrierID string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if d.metrics != nil {
			d.metrics.RecordError(carrierID, string(CategoryOf(err)))
		}
	}
	if d.metrics != nil {
		d.metrics.RecordRequest(string(op), carrierID, status, time.Since(start).Seconds())
	}
}

// CreateParcel creates one parcel and persists the confirmed outcome.
func (d *Dispatcher) CreateParcel(ctx context.Context, carrierID string, req *CreateParcelRequest) (*CarrierResource, error) {
	a, err := d.registry.Get(carrierID)
	if err != nil {
		return nil, err
	}
	if err := d.gate(a, CapCreateParcel); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := a.CreateParcel(ctx, req)
	d.observe(CapCreateParcel, carrierID, start, err)
	if err != nil {
		return nil, err
	}
	if err := d.persistParcelOutcome(ctx, &req.Parcel, *res); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateParcels creates a batch of parcels and persists each confirmed
// item. Per-item failures are part of the response, never an error.
func (d *Dispatcher) CreateParcels(ctx context.Context, carrierID string, req *CreateParcelsRequest) (*CreateParcelsResponse, error) {
	a, err := d.registry.Get(carrierID)
	if err != nil {
		return nil, err
	}
	if err := d.gate(a, CapCreateParcels); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := a.CreateParcels(ctx, req)
	d.observe(CapCreateParcels, carrierID, start, err)
	if err != nil {
		return nil, err
	}
	for i := range resp.Results {
		r := resp.Results[i]
		if r.Resource.Status == ResourceFailed {
			continue
		}
		parcel := findParcel(req.Parcels, r.InputID)
		if parcel == nil {
			continue
		}
		if err := d.persistParcelOutcome(ctx, parcel, r.Resource); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// CloseShipment closes a shipment and records the transition.
func (d *Dispatcher) CloseShipment(ctx context.Context, carrierID string, req *CloseShipmentRequest) (*CarrierResource, error) {
	a, err := d.registry.Get(carrierID)
	if err != nil {
		return nil, err
	}
	if err := d.gate(a, CapCloseShipment); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := a.CloseShipment(ctx, req)
	d.observe(CapCloseShipment, carrierID, start, err)
	if err != nil {
		return nil, err
	}
	if d.store != nil {
		shipment, getErr := d.store.GetShipment(ctx, req.ShipmentID)
		if getErr != nil && !errors.Is(getErr, ErrNotFound) {
			return nil, NewError(carrierID, Transient, "loading shipment").WithCause(getErr)
		}
		if shipment == nil {
			shipment = &Shipment{ID: req.ShipmentID, CarrierID: carrierID}
		}
		shipment.Closed = true
		if err := d.store.SaveShipment(ctx, shipment); err != nil {
			return nil, NewError(carrierID, Transient, "saving shipment").WithCause(err)
		}
		if err := d.store.SaveCarrierResource(ctx, req.ShipmentID, ResourceTypeShipment, *res); err != nil {
			return nil, NewError(carrierID, Transient, "saving shipment resource").WithCause(err)
		}
	}
	return res, nil
}

// ExecuteCreateLabels is the high-level label flow: satisfy the
// prerequisites the adapter declares (creating parcels, closing the
// shipment), then generate labels, persist the files and move parcels to
// label_generated.
func (d *Dispatcher) ExecuteCreateLabels(ctx context.Context, carrierID string, req *CreateLabelsRequest) (*CreateLabelsResponse, error) {
	a, err := d.registry.Get(carrierID)
	if err != nil {
		return nil, err
	}
	if err := d.gate(a, CapCreateLabels); err != nil {
		return nil, err
	}

	for _, prereq := range a.Descriptor().Prerequisites(CapCreateLabels) {
		if err := d.satisfyLabelPrerequisite(ctx, a, prereq, req); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := a.CreateLabels(ctx, req)
	d.observe(CapCreateLabels, carrierID, start, err)
	if err != nil {
		return nil, err
	}

	if d.store != nil {
		// A file owned by exactly one result indexes under that result's
		// tracking number; a shared combined file has no single number.
		numberByFile := make(map[string]string, len(resp.Files))
		for _, r := range resp.Results {
			if r.Status == ResourceFailed || r.FileID == "" {
				continue
			}
			if _, shared := numberByFile[r.FileID]; shared {
				numberByFile[r.FileID] = ""
			} else {
				numberByFile[r.FileID] = r.CarrierID
			}
		}
		for _, f := range resp.Files {
			if err := d.store.SaveLabel(ctx, f, numberByFile[f.ID]); err != nil {
				return nil, NewError(carrierID, Transient, "saving label").WithCause(err)
			}
		}
		for i := range resp.Results {
			r := resp.Results[i]
			if r.Status == ResourceFailed {
				continue
			}
			// Results preserve input order; adapters key them by carrier
			// id, so index position names the parcel, not InputID.
			eventID := r.InputID
			if i < len(req.Parcels) {
				parcel := &req.Parcels[i]
				parcel.Status = ParcelLabelGenerated
				if err := d.store.SaveParcel(ctx, parcel); err != nil {
					return nil, NewError(carrierID, Transient, "saving parcel").WithCause(err)
				}
				eventID = parcel.ID
			}
			event := TrackingEvent{
				Timestamp:   time.Now(),
				Status:      TrackingPending,
				Description: "label generated",
			}
			if err := d.store.AppendEvent(ctx, eventID, event); err != nil {
				return nil, NewError(carrierID, Transient, "appending event").WithCause(err)
			}
		}
	}
	return resp, nil
}

// satisfyLabelPrerequisite ensures one declared prerequisite of the label
// operation holds, invoking the prerequisite operation for resources that
// lack a persisted outcome.
func (d *Dispatcher) satisfyLabelPrerequisite(ctx context.Context, a Adapter, prereq Capability, req *CreateLabelsRequest) error {
	carrierID := a.Descriptor().ID
	switch prereq {
	case CapCreateParcel, CapCreateParcels:
		missing := make([]Parcel, 0, len(req.Parcels))
		for _, p := range req.Parcels {
			if d.store != nil {
				res, err := d.store.GetCarrierResource(ctx, p.ID, ResourceTypeParcel)
				if err != nil && !errors.Is(err, ErrNotFound) {
					return NewError(carrierID, Transient, "loading parcel resource").WithCause(err)
				}
				if res != nil && res.Status != ResourceFailed {
					continue
				}
			}
			missing = append(missing, p)
		}
		if len(missing) == 0 {
			break
		}
		createReq := &CreateParcelsRequest{
			Parcels:     missing,
			Credentials: req.Credentials,
			Options:     req.Options,
		}
		resp, err := d.CreateParcels(ctx, carrierID, createReq)
		if err != nil {
			return err
		}
		if !resp.AllSucceeded {
			return NewError(carrierID, Permanent,
				fmt.Sprintf("prerequisite %s failed for %d of %d parcels", prereq, resp.FailureCount, resp.TotalCount))
		}
		// Fill in carrier ids for label generation, preserving order.
		if len(req.ParcelCarrierIDs) == 0 {
			req.ParcelCarrierIDs = make([]string, len(req.Parcels))
		}
		for i, p := range req.Parcels {
			if req.ParcelCarrierIDs[i] != "" {
				continue
			}
			for _, r := range resp.Results {
				if r.InputID == p.ID {
					req.ParcelCarrierIDs[i] = r.Resource.CarrierID
					break
				}
			}
		}

	case CapCloseShipment:
		shipmentID := shipmentIDOf(req.Parcels)
		if shipmentID == "" {
			return NewError(carrierID, Validation, "close shipment prerequisite requires parcels with a shipment id")
		}
		if d.store != nil {
			shipment, err := d.store.GetShipment(ctx, shipmentID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return NewError(carrierID, Transient, "loading shipment").WithCause(err)
			}
			if shipment != nil && shipment.Closed {
				break
			}
		}
		closeReq := &CloseShipmentRequest{
			ShipmentID:  shipmentID,
			Credentials: req.Credentials,
			Options:     req.Options,
		}
		if _, err := d.CloseShipment(ctx, carrierID, closeReq); err != nil {
			return err
		}

	default:
		return NewError(carrierID, Permanent,
			fmt.Sprintf("unsupported prerequisite %s for %s", prereq, CapCreateLabels))
	}
	return nil
}

// Track fetches tracking state and appends any events to the store.
func (d *Dispatcher) Track(ctx context.Context, carrierID string, req *TrackRequest) (*TrackingUpdate, error) {
	a, err := d.registry.Get(carrierID)
	if err != nil {
		return nil, err
	}
	if err := d.gate(a, CapTrack); err != nil {
		return nil, err
	}
	start := time.Now()
	update, err := a.Track(ctx, req)
	d.observe(CapTrack, carrierID, start, err)
	if err != nil {
		return nil, err
	}
	if d.store != nil {
		known, err := d.store.GetEvents(ctx, update.TrackingNumber)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, NewError(carrierID, Transient, "loading events").WithCause(err)
		}
		if len(known) < len(update.Events) {
			for _, ev := range update.Events[len(known):] {
				if err := d.store.AppendEvent(ctx, update.TrackingNumber, ev); err != nil {
					return nil, NewError(carrierID, Transient, "appending event").WithCause(err)
				}
			}
		}
	}
	return update, nil
}

// ExchangeAuthToken proactively exchanges credentials for a bearer token.
func (d *Dispatcher) ExchangeAuthToken(ctx context.Context, carrierID string, req *ExchangeAuthTokenRequest) (*OAuthToken, error) {
	a, err := d.registry.Get(carrierID)
	if err != nil {
		return nil, err
	}
	if err := d.gate(a, CapExchangeAuthToken); err != nil {
		return nil, err
	}
	start := time.Now()
	tok, err := a.ExchangeAuthToken(ctx, req)
	d.observe(CapExchangeAuthToken, carrierID, start, err)
	return tok, err
}

// FetchPickupPoints fetches and normalizes the carrier's pickup points.
func (d *Dispatcher) FetchPickupPoints(ctx context.Context, carrierID string, req *PickupPointsRequest) (*PickupPointsResponse, error) {
	a, err := d.registry.Get(carrierID)
	if err != nil {
		return nil, err
	}
	if err := d.gate(a, CapFetchPickupPoints); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := a.FetchPickupPoints(ctx, req)
	d.observe(CapFetchPickupPoints, carrierID, start, err)
	return resp, err
}

// persistParcelOutcome records one confirmed parcel creation: the carrier
// resource, the status transition, and a lifecycle event.
func (d *Dispatcher) persistParcelOutcome(ctx context.Context, parcel *Parcel, res CarrierResource) error {
	if d.store == nil {
		return nil
	}
	parcel.Status = ParcelCreated
	if err := d.store.SaveParcel(ctx, parcel); err != nil {
		return NewError("", Transient, "saving parcel").WithCause(err)
	}
	if err := d.store.SaveCarrierResource(ctx, parcel.ID, ResourceTypeParcel, res); err != nil {
		return NewError("", Transient, "saving carrier resource").WithCause(err)
	}
	event := TrackingEvent{
		Timestamp:   time.Now(),
		Status:      TrackingPending,
		Description: "parcel registered with carrier",
	}
	if err := d.store.AppendEvent(ctx, parcel.ID, event); err != nil {
		return NewError("", Transient, "appending event").WithCause(err)
	}
	if d.logger != nil {
		d.logger.Info("Parcel registered",
			zap.String("parcel_id", parcel.ID),
			zap.String("carrier_id", res.CarrierID),
		)
	}
	return nil
}

func findParcel(parcels []Parcel, id string) *Parcel {
	for i := range parcels {
		if parcels[i].ID == id {
			return &parcels[i]
		}
	}
	return nil
}

func shipmentIDOf(parcels []Parcel) string {
	for _, p := range parcels {
		if p.ShipmentID != "" {
			return p.ShipmentID
		}
	}
	return ""
}
