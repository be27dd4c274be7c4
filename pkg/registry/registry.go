/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package registry keeps the sorted directory of visible endpoints, evicts
// the ones that stop advertising and fans registry events out to listeners.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
)

var (
	ErrAlreadyStarted    = errors.New("registry sweeper already started")
	ErrDuplicateEndpoint = errors.New("endpoint already registered")
)

const (
	outcomeAdded   = "added"
	outcomeUpdated = "updated"
	outcomeIgnored = "ignored"
)

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock used for sweeps and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry is the directory of currently visible endpoints, kept sorted by
// ID. Directory and listener mutations share one lock; events are delivered
// asynchronously in the order they were produced.
type Registry struct {
	factory  Factory
	cfg      models.RegistryConfig
	now      func() time.Time
	logger   logger.Logger
	dispatch *dispatcher

	mu        sync.RWMutex
	endpoints []*endpoint.Endpoint
	listeners []Listener
	done      chan struct{}
}

// New creates an empty registry. Close releases its dispatch goroutine.
func New(factory Factory, cfg models.RegistryConfig, log logger.Logger, opts ...Option) *Registry {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = models.Duration(models.DefaultSweepInterval)
	}

	if cfg.InactivityMultiple <= 0 {
		cfg.InactivityMultiple = models.DefaultInactivityMultiple
	}

	r := &Registry{
		factory: factory,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.Component(log, "registry"),
	}

	for _, o := range opts {
		o(r)
	}

	r.dispatch = newDispatcher(r.deliver)

	return r
}

func compareID(ep *endpoint.Endpoint, id string) int {
	return strings.Compare(ep.ID(), id)
}

// Observe processes one scan observation. A known endpoint is updated in
// place; an unknown one is created through the factory and inserted in
// order, unless the factory does not recognize it. In both cases the
// endpoint's scan hook runs afterwards, outside the registry lock.
func (r *Registry) Observe(obs models.Observation) {
	if obs.ID == "" {
		return
	}

	if obs.Timestamp.IsZero() {
		obs.Timestamp = r.now()
	}

	r.mu.Lock()

	i, found := slices.BinarySearchFunc(r.endpoints, obs.ID, compareID)

	var ep *endpoint.Endpoint

	if found {
		ep = r.endpoints[i]
		ep.Merge(obs)
		r.emitLocked(models.EventUpdated, ep, "")
		recordObservation(outcomeUpdated)
	} else {
		created, err := r.factory.Create(obs, r)
		if err != nil {
			r.mu.Unlock()

			r.logger.Debug().Err(err).Str("endpoint_id", obs.ID).Str("name", obs.Name).Msg("Ignoring observation")
			recordObservation(outcomeIgnored)

			return
		}

		ep = created
		r.endpoints = slices.Insert(r.endpoints, i, ep)
		r.emitLocked(models.EventAdded, ep, "")
		recordObservation(outcomeAdded)
		recordEndpointCount(len(r.endpoints))

		r.logger.Info().Str("endpoint_id", ep.ID()).Str("type", ep.TypeName()).Msg("Endpoint added")
	}

	r.mu.Unlock()

	ep.OnScan()
}

// Sweep removes every non-synthetic endpoint whose last observation is older
// than the inactivity limit and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	limit := r.cfg.InactivityLimit()

	r.mu.Lock()

	var removed []*endpoint.Endpoint

	kept := make([]*endpoint.Endpoint, 0, len(r.endpoints))

	for _, ep := range r.endpoints {
		if !ep.Synthetic() && now.Sub(ep.LastSeen()) > limit {
			removed = append(removed, ep)
			r.emitLocked(models.EventRemoved, ep, "inactive")

			continue
		}

		kept = append(kept, ep)
	}

	r.endpoints = kept
	recordEndpointCount(len(kept))
	r.mu.Unlock()

	for _, ep := range removed {
		r.logger.Info().Str("endpoint_id", ep.ID()).Msg("Endpoint evicted after inactivity")
		ep.OnScanStop()
	}

	recordEvictions(len(removed))

	return len(removed)
}

// AddSynthetic inserts a caller-built endpoint that is exempt from sweeping.
func (r *Registry) AddSynthetic(ep *endpoint.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := slices.BinarySearchFunc(r.endpoints, ep.ID(), compareID)
	if found {
		return fmt.Errorf("%w: %s", ErrDuplicateEndpoint, ep.ID())
	}

	r.endpoints = slices.Insert(r.endpoints, i, ep)
	r.emitLocked(models.EventAdded, ep, "")
	recordEndpointCount(len(r.endpoints))

	return nil
}

// RemoveSynthetic removes a synthetic endpoint. It reports whether one was
// registered under id.
func (r *Registry) RemoveSynthetic(id string) bool {
	r.mu.Lock()

	i, found := slices.BinarySearchFunc(r.endpoints, id, compareID)
	if !found || !r.endpoints[i].Synthetic() {
		r.mu.Unlock()
		return false
	}

	ep := r.endpoints[i]
	r.endpoints = slices.Delete(r.endpoints, i, i+1)
	r.emitLocked(models.EventRemoved, ep, "")
	recordEndpointCount(len(r.endpoints))
	r.mu.Unlock()

	ep.OnScanStop()

	return true
}

// Start runs the periodic sweep until ctx is cancelled or Stop is called.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}

	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	interval := time.Duration(r.cfg.SweepInterval)

	r.logger.Info().
		Dur("interval", interval).
		Dur("inactivity_limit", r.cfg.InactivityLimit()).
		Msg("Starting endpoint sweeper")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			if r.done == done {
				r.done = nil
			}
			r.mu.Unlock()

			r.logger.Info().Msg("Context canceled, stopping sweeper")

			return ctx.Err()
		case <-done:
			r.logger.Info().Msg("Received done signal, stopping sweeper")

			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug().Int("removed", n).Msg("Sweep completed")
			}
		}
	}
}

// Stop halts the sweeper and removes every non-synthetic endpoint, as when
// the radio goes offline.
func (r *Registry) Stop() {
	r.mu.Lock()

	if r.done != nil {
		close(r.done)
		r.done = nil
	}

	var removed []*endpoint.Endpoint

	kept := make([]*endpoint.Endpoint, 0, len(r.endpoints))

	for _, ep := range r.endpoints {
		if ep.Synthetic() {
			kept = append(kept, ep)
			continue
		}

		removed = append(removed, ep)
		r.emitLocked(models.EventRemoved, ep, "scan stopped")
	}

	r.endpoints = kept
	recordEndpointCount(len(kept))
	r.mu.Unlock()

	for _, ep := range removed {
		ep.OnScanStop()
	}
}

// Close stops the registry and waits for pending events to be delivered.
func (r *Registry) Close() {
	r.Stop()
	r.dispatch.close()
}

// AddListener registers l. Registering a listener again replaces the
// previous registration.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = slices.DeleteFunc(r.listeners, func(x Listener) bool { return x == l })
	r.listeners = append(r.listeners, l)
	recordListenerCount(len(r.listeners))
}

func (r *Registry) RemoveListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = slices.DeleteFunc(r.listeners, func(x Listener) bool { return x == l })
	recordListenerCount(len(r.listeners))
}

// Endpoints returns the endpoints ordered by ID.
func (r *Registry) Endpoints() []*endpoint.Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.endpoints)
}

// At returns the endpoint at position i in ID order.
func (r *Registry) At(i int) (*endpoint.Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= len(r.endpoints) {
		return nil, false
	}

	return r.endpoints[i], true
}

func (r *Registry) Get(id string) (*endpoint.Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getLocked(id)
}

func (r *Registry) getLocked(id string) (*endpoint.Endpoint, bool) {
	i, found := slices.BinarySearchFunc(r.endpoints, id, compareID)
	if !found {
		return nil, false
	}

	return r.endpoints[i], true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.endpoints)
}

// Notify forwards an endpoint or session notification to the listeners.
func (r *Registry) Notify(event models.EndpointEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}

	r.mu.RLock()
	ep, _ := r.getLocked(event.EndpointID)
	r.dispatch.enqueue(Event{EndpointEvent: event, Endpoint: ep})
	r.mu.RUnlock()
}

func (r *Registry) emitLocked(eventType models.EventType, ep *endpoint.Endpoint, message string) {
	r.dispatch.enqueue(Event{
		EndpointEvent: models.EndpointEvent{
			EndpointID: ep.ID(),
			Type:       eventType,
			Message:    message,
			Timestamp:  r.now(),
		},
		Endpoint: ep,
	})
}

func (r *Registry) deliver(e Event) {
	r.mu.RLock()
	listeners := slices.Clone(r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		l.OnEvent(e)
	}
}
