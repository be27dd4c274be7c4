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

// Package simulator provides an in-process radio: a scanner that advertises
// configured endpoints and a connector whose links answer attribute reads
// and push notifications like the real devices do.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint/behaviors"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
)

var (
	ErrUnknownDevice = errors.New("no simulated device with that id")
	ErrLinkClosed    = errors.New("link closed")

	errNotNotifiable = errors.New("attribute does not support notifications")
)

const (
	defaultScanInterval   = 2 * time.Second
	defaultNotifyInterval = time.Second
	defaultDrift          = 0.05

	minRSSI   = -95
	rssiRange = 55

	// Starting fix of the positioning endpoint.
	baseLat = 52.3731
	baseLng = 4.8922
	baseAcc = 8.0
)

// TypeResolver maps an advertised name to an endpoint type.
type TypeResolver interface {
	Resolve(advertised string) (string, bool)
}

// ResolverFunc adapts a function to TypeResolver.
type ResolverFunc func(advertised string) (string, bool)

func (f ResolverFunc) Resolve(advertised string) (string, bool) { return f(advertised) }

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock overrides the clock used for observation timestamps and device
// lifetimes.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		s.now = now
	}
}

// WithSeed makes readings and signal strengths reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithDrift sets the standard deviation of the per-read random walk applied
// to temperature and humidity. Zero keeps readings constant.
func WithDrift(d float64) Option {
	return func(s *Simulator) {
		s.drift = d
	}
}

// WithNotifyInterval sets how often subscribed attributes push a value.
func WithNotifyInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.notifyInterval = d
		}
	}
}

// device is the mutable state of one simulated endpoint.
type device struct {
	cfg      models.SimulatedEndpoint
	typeName string
	resolved bool
	started  time.Time

	temperature float64
	humidity    float64
	battery     int
	records     uint16
}

// Simulator drives simulated endpoints. It implements session.Connector.
type Simulator struct {
	cfg            models.SimulatorConfig
	resolver       TypeResolver
	logger         logger.Logger
	now            func() time.Time
	drift          float64
	notifyInterval time.Duration

	mu       sync.Mutex
	rng      *rand.Rand
	devices  map[string]*device
	order    []string
	location models.Location
}

// New creates a simulator for the configured endpoints. Advertised names are
// resolved to endpoint types on first use, so resolver may be backed by a
// factory built after the simulator. Endpoints whose name does not resolve
// are still advertised but refuse connections.
func New(cfg models.SimulatorConfig, resolver TypeResolver, log logger.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:            cfg,
		resolver:       resolver,
		logger:         logger.Component(log, "simulator"),
		now:            time.Now,
		drift:          defaultDrift,
		notifyInterval: defaultNotifyInterval,
		rng:            rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		devices:        make(map[string]*device),
		location:       models.Location{Lat: baseLat, Lng: baseLng, Acc: baseAcc},
	}

	for _, o := range opts {
		o(s)
	}

	started := s.now()

	for _, ep := range cfg.Endpoints {
		s.devices[ep.ID] = &device{
			cfg:         ep,
			started:     started,
			temperature: ep.Temperature,
			humidity:    ep.Humidity,
			battery:     ep.Battery,
		}
		s.order = append(s.order, ep.ID)
	}

	return s
}

// Connect opens a simulated link. The CONNECTED event is delivered on the
// link's event goroutine and may arrive before Connect returns.
func (s *Simulator) Connect(ctx context.Context, endpointID string, handler session.Handler) (session.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	dev, ok := s.devices[endpointID]
	known := ok && s.typeLocked(dev) != ""
	s.mu.Unlock()

	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, endpointID)
	}

	l := newLink(s, dev, handler)
	l.post(func() { handler.OnConnectionStateChanged(models.StatusSuccess, models.StateConnected) })

	return l, nil
}

// typeLocked returns the endpoint type of dev, or "" when its name is not
// recognized. Must be called with mu held.
func (s *Simulator) typeLocked(dev *device) string {
	if dev.resolved {
		return dev.typeName
	}

	dev.resolved = true

	if typeName, ok := s.resolver.Resolve(dev.cfg.Name); ok {
		dev.typeName = typeName
	} else {
		s.logger.Warn().Str("endpoint_id", dev.cfg.ID).Str("name", dev.cfg.Name).Msg("Simulated endpoint has no known type")
	}

	return dev.typeName
}

// advertising reports whether dev is still within its lifetime.
func (s *Simulator) advertising(dev *device, now time.Time) bool {
	return dev.cfg.Lifetime <= 0 || now.Sub(dev.started) < time.Duration(dev.cfg.Lifetime)
}

// stepLocked advances the random walk of dev. Must be called with mu held.
func (s *Simulator) stepLocked(dev *device) {
	if s.drift > 0 {
		dev.temperature += s.rng.NormFloat64() * s.drift
		dev.humidity = math.Min(100, math.Max(0, dev.humidity+s.rng.NormFloat64()*s.drift))
	}

	dev.records++
}

// value renders the current content of attr, or false if the device type
// has no such attribute.
func (s *Simulator) value(dev *device, attr string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch dev.typeName {
	case behaviors.ThermoHygrometerType:
		switch attr {
		case behaviors.ThermoReadingAttr, behaviors.ThermoNotifyAttr:
			s.stepLocked(dev)
			return behaviors.EncodeThermo(dev.temperature, dev.humidity), true
		}
	case behaviors.HumitureLoggerType:
		switch attr {
		case behaviors.HumitureSerialAttr:
			return []byte(dev.cfg.Serial), true
		case behaviors.HumitureRecordsAttr:
			return []byte{byte(dev.records), byte(dev.records >> 8)}, true
		case behaviors.HumitureBatteryAttr:
			return []byte{byte(dev.battery)}, true
		case behaviors.HumitureLiveAttr:
			s.stepLocked(dev)
			return behaviors.EncodeHumiture(dev.temperature, dev.humidity), true
		}
	}

	return nil, false
}

func notifiable(typeName, attr string) bool {
	switch typeName {
	case behaviors.ThermoHygrometerType:
		return attr == behaviors.ThermoNotifyAttr
	case behaviors.HumitureLoggerType:
		return attr == behaviors.HumitureLiveAttr
	default:
		return false
	}
}

func services(typeName string) []models.Service {
	switch typeName {
	case behaviors.ThermoHygrometerType:
		return []models.Service{{
			ID:         behaviors.ThermoService,
			Attributes: []string{behaviors.ThermoReadingAttr, behaviors.ThermoNotifyAttr},
		}}
	case behaviors.HumitureLoggerType:
		return []models.Service{{
			ID: behaviors.HumitureService,
			Attributes: []string{
				behaviors.HumitureSerialAttr,
				behaviors.HumitureRecordsAttr,
				behaviors.HumitureBatteryAttr,
				behaviors.HumitureLiveAttr,
			},
		}}
	default:
		return nil
	}
}

var _ session.Connector = (*Simulator)(nil)
