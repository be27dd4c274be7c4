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

package endpoint

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
	"golang.org/x/time/rate"
)

// Constructor builds the behavior of a newly observed endpoint.
type Constructor func(obs models.Observation) (Behavior, error)

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithScheduler overrides the scheduler used for reconnects.
func WithScheduler(s Scheduler) FactoryOption {
	return func(f *Factory) {
		f.scheduler = s
	}
}

// WithClock overrides the clock of created endpoints and sessions.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		f.now = now
	}
}

// WithAliases maps advertised type names to registered ones.
func WithAliases(aliases map[string]string) FactoryOption {
	return func(f *Factory) {
		for from, to := range aliases {
			f.aliases[TypeName(from)] = to
		}
	}
}

// Factory creates endpoints from observations using an explicit registration
// table of endpoint types.
type Factory struct {
	connector session.Connector
	scheduler Scheduler
	cfg       models.EndpointConfig
	now       func() time.Time
	logger    logger.Logger

	mu           sync.RWMutex
	constructors map[string]registration
	aliases      map[string]string
}

type registration struct {
	title       string
	constructor Constructor
}

// NewFactory creates a factory whose endpoints connect through connector.
func NewFactory(connector session.Connector, cfg models.EndpointConfig, log logger.Logger, opts ...FactoryOption) *Factory {
	f := &Factory{
		connector:    connector,
		scheduler:    WallScheduler(),
		cfg:          cfg,
		now:          time.Now,
		logger:       log,
		constructors: make(map[string]registration),
		aliases:      make(map[string]string),
	}

	for _, o := range opts {
		o(f)
	}

	return f
}

// Register installs the constructor for an endpoint type.
func (f *Factory) Register(name, title string, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.constructors[TypeName(name)] = registration{title: title, constructor: c}
}

// Types returns the registered type names.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		out = append(out, name)
	}

	return out
}

// Resolve maps an advertised name to a registered type name.
func (f *Factory) Resolve(advertised string) (string, bool) {
	name := TypeName(advertised)

	f.mu.RLock()
	defer f.mu.RUnlock()

	if alias, ok := f.aliases[name]; ok {
		name = TypeName(alias)
	}

	_, ok := f.constructors[name]

	return name, ok
}

// Create builds the endpoint for a first observation. The notifier receives
// the endpoint's and its session's events.
func (f *Factory) Create(obs models.Observation, notifier session.Notifier) (*Endpoint, error) {
	name, ok := f.Resolve(obs.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, obs.Name)
	}

	f.mu.RLock()
	reg := f.constructors[name]
	f.mu.RUnlock()

	behavior, err := reg.constructor(obs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMisconfiguredType, name, err)
	}

	title := behavior.Title()
	if title == "" {
		title = reg.title
	}

	ep := &Endpoint{
		id:       obs.ID,
		typeName: name,
		title:    title,
		behavior: behavior,
		notifier: notifier,
		now:      f.now,
		logger:   endpointLogger(f.logger, obs.ID),
		payload:  append([]byte(nil), obs.Payload...),
		rssi:     obs.RSSI,
		lastSeen: obs.Timestamp,
		battery:  batteryUnknown,
		readings: make(map[string]any),
	}

	ep.session = session.New(obs.ID, f.connector, notifier, f.logger,
		session.WithReadTimeout(time.Duration(f.cfg.ReadTimeout)),
		session.WithClock(f.now))
	ep.machine = newMachine(ep, f.scheduler, f.pollInterval(), f.limiter())
	ep.session.AddListener(ep.machine)

	return ep, nil
}

func (f *Factory) pollInterval() time.Duration {
	if f.cfg.PollInterval > 0 {
		return time.Duration(f.cfg.PollInterval)
	}

	return models.DefaultPollInterval
}

func (f *Factory) limiter() *rate.Limiter {
	if f.cfg.MinConnectSpacing <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Every(time.Duration(f.cfg.MinConnectSpacing)), max(f.cfg.ConnectBurst, 1))
}

// TypeName normalizes an advertised name: lower case, with every character
// other than a letter or digit replaced by '_'.
func TypeName(advertised string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}

		return '_'
	}, strings.TrimSpace(advertised))
}
