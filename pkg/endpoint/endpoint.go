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

// Package endpoint models a tracked endpoint: its observed state, the
// connection session it owns and the polling/tracking machine layered on it.
package endpoint

import (
	"encoding/hex"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
)

const batteryUnknown = -1

// Endpoint is a discovered or synthetic endpoint. Endpoints compare by ID.
type Endpoint struct {
	id        string
	typeName  string
	title     string
	synthetic bool
	behavior  Behavior
	session   *session.Session
	machine   *Machine
	notifier  session.Notifier
	now       func() time.Time
	logger    logger.Logger

	mu       sync.RWMutex
	payload  []byte
	rssi     int
	lastSeen time.Time
	battery  int
	serial   string
	sink     Sink
	readings map[string]any
}

// NewSynthetic creates an endpoint that is not backed by a radio link, such
// as the positioning endpoint. Synthetic endpoints are never swept.
func NewSynthetic(id, typeName, title string, notifier session.Notifier, log logger.Logger, now func() time.Time) *Endpoint {
	if now == nil {
		now = time.Now
	}

	return &Endpoint{
		id:        id,
		typeName:  typeName,
		title:     title,
		synthetic: true,
		notifier:  notifier,
		now:       now,
		logger:    endpointLogger(log, id),
		lastSeen:  now(),
		battery:   batteryUnknown,
		readings:  make(map[string]any),
	}
}

func endpointLogger(log logger.Logger, id string) logger.Logger {
	return logger.New(log.With().Str("component", "endpoint").Str("endpoint_id", id).Logger())
}

func (e *Endpoint) ID() string       { return e.id }
func (e *Endpoint) TypeName() string { return e.typeName }
func (e *Endpoint) Synthetic() bool  { return e.synthetic }

// Session returns the connection session, or nil for synthetic endpoints.
func (e *Endpoint) Session() *session.Session { return e.session }

// Machine returns the polling/tracking machine, or nil for synthetic endpoints.
func (e *Endpoint) Machine() *Machine { return e.machine }

func (e *Endpoint) LastSeen() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.lastSeen
}

// Merge replaces the observed state with a newer observation.
func (e *Endpoint) Merge(obs models.Observation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.payload = append(e.payload[:0], obs.Payload...)
	e.rssi = obs.RSSI
	e.lastSeen = obs.Timestamp
}

// OnScan is called after every observation of the endpoint. It decodes the
// advertisement and drives the machine.
func (e *Endpoint) OnScan() {
	if e.behavior != nil {
		e.mu.RLock()
		payload := append([]byte(nil), e.payload...)
		ts := e.lastSeen
		e.mu.RUnlock()

		adv, err := e.behavior.Advertisement(payload, ts)
		if err != nil {
			e.logger.Debug().Err(err).Msg("Ignoring undecodable advertisement")
		} else {
			if adv.Serial != "" {
				e.mu.Lock()
				e.serial = adv.Serial
				e.mu.Unlock()
			}

			e.Record(adv.Samples...)
		}
	}

	if e.machine != nil {
		e.machine.OnScan()
	}
}

// OnScanStop is called once the endpoint leaves the registry.
func (e *Endpoint) OnScanStop() {
	if e.machine != nil {
		e.machine.OnScanStop()
	}
}

// StartTracking binds sink to the endpoint's future samples and switches the
// machine to tracking.
func (e *Endpoint) StartTracking(sink Sink) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()

	if e.machine != nil {
		e.machine.StartTracking()
	}
}

// StopTracking unbinds the sink and returns the machine to polling.
func (e *Endpoint) StopTracking() {
	e.mu.Lock()
	e.sink = nil
	e.mu.Unlock()

	if e.machine != nil {
		e.machine.StopTracking()
	}
}

// Tracking reports whether a sink is bound.
func (e *Endpoint) Tracking() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.sink != nil
}

// Record stores samples as the latest readings, forwards them to the bound
// sink and emits UPDATED. A negative battery level means unknown and is
// dropped.
func (e *Endpoint) Record(samples ...models.Sample) {
	if len(samples) == 0 {
		return
	}

	kept := make([]models.Sample, 0, len(samples))

	e.mu.Lock()
	for _, s := range samples {
		if s.Key == models.KeyBattery {
			level, ok := batteryLevel(s.Value)
			if !ok || level < 0 {
				continue
			}

			e.battery = level
		}

		e.readings[s.Key] = s.Value
		kept = append(kept, s)
	}
	sink := e.sink
	e.mu.Unlock()

	if len(kept) == 0 {
		return
	}

	if sink != nil {
		for _, s := range kept {
			if _, err := sink.Add(s); err != nil {
				e.logger.Warn().Err(err).Str("key", s.Key).Msg("Failed to record sample")
			}
		}
	}

	e.notify(models.EventUpdated, describe(kept))
}

func batteryLevel(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func describe(samples []models.Sample) string {
	parts := make([]string, 0, len(samples))

	for _, s := range samples {
		switch v := s.Value.(type) {
		case float64:
			parts = append(parts, fmt.Sprintf("%s=%.2f", s.Key, v))
		case models.Location:
			parts = append(parts, fmt.Sprintf("%s=%.6f,%.6f", s.Key, v.Lat, v.Lng))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", s.Key, v))
		}
	}

	return strings.Join(parts, "; ")
}

func (e *Endpoint) notify(eventType models.EventType, message string) {
	if e.notifier == nil {
		return
	}

	e.notifier.Notify(models.EndpointEvent{
		EndpointID: e.id,
		Type:       eventType,
		Message:    message,
		Timestamp:  e.now(),
	})
}

// Snapshot returns a read-only view for presentation.
func (e *Endpoint) Snapshot() models.EndpointSnapshot {
	e.mu.RLock()
	snap := models.EndpointSnapshot{
		ID:         e.id,
		Type:       e.typeName,
		Title:      e.title,
		Synthetic:  e.synthetic,
		RSSI:       e.rssi,
		LastSeen:   e.lastSeen,
		Elapsed:    models.Duration(e.now().Sub(e.lastSeen)),
		PayloadHex: hex.EncodeToString(e.payload),
		Battery:    e.battery,
		Serial:     e.serial,
		Progress:   models.ProgressNone,
		Readings:   maps.Clone(e.readings),
		Tracking:   e.sink != nil,
	}
	e.mu.RUnlock()

	if snap.Title == "" {
		snap.Title = e.id
	}

	if e.session != nil {
		snap.Connection = e.session.State()
		snap.Progress = e.session.Progress()
	}

	if e.machine != nil {
		snap.Machine = e.machine.State()
	}

	return snap
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("%s[%s]", e.typeName, e.id)
}
