package carrier

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrCarrierNotFound indicates the requested carrier is not registered.
var ErrCarrierNotFound = NewError("", Permanent, "carrier not registered")

// Registry manages registered carrier adapters.
type Registry struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates a new adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter to the registry, replacing any previous
// adapter with the same id.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Descriptor().ID] = a
}

// Get returns an adapter by id.
func (r *Registry) Get(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, id)
}

// All returns all registered adapters.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		result = append(result, a)
	}
	return result
}

// Names returns the ids of all registered adapters.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered adapters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// WithCapability returns the adapters declaring the capability.
func (r *Registry) WithCapability(c Capability) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		if a.Descriptor().Has(c) {
			result = append(result, a)
		}
	}
	return result
}

// FetchAllPickupPoints queries every adapter with the pickup-point
// capability in parallel. Errors from individual carriers are collected
// and don't fail the entire request.
func (r *Registry) FetchAllPickupPoints(ctx context.Context, req *PickupPointsRequest) ([]PickupPoint, []error) {
	adapters := r.WithCapability(CapFetchPickupPoints)
	if len(adapters) == 0 {
		return nil, []error{ErrCarrierNotFound}
	}

	points := make([]PickupPoint, 0)
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, a := range adapters {
		a := a
		g.Go(func() error {
			resp, err := a.FetchPickupPoints(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", a.Descriptor().ID, err))
				return nil // continue with other carriers
			}
			points = append(points, resp.Points...)
			return nil
		})
	}

	g.Wait()
	return points, errs
}
