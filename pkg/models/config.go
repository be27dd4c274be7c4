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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
)

// Duration is a time.Duration that unmarshals from either a Go duration
// string ("10s") or a number of nanoseconds.
type Duration time.Duration

var (
	errInvalidDuration          = errors.New("invalid duration")
	errSweepIntervalRequired    = errors.New("registry sweep_interval must be positive")
	errInactivityMultiple       = errors.New("registry inactivity_multiple must be positive")
	errPollIntervalRequired     = errors.New("endpoint poll_interval must be positive")
	errReadTimeoutRequired      = errors.New("endpoint read_timeout must be positive")
	errStorageBackend           = errors.New("unsupported storage backend")
	errStoragePathRequired      = errors.New("storage path is required for the file backend")
	errStorageDSNRequired       = errors.New("storage dsn is required for the cnpg backend")
	errNATSRequiredForKVStorage = errors.New("nats configuration is required for the kv backend")
	errNATSRequiredForEvents    = errors.New("nats configuration is required when events are enabled")
	errCompactorKeyRequired     = errors.New("compactor key is required")
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

const (
	DefaultSweepInterval      = 10 * time.Second
	DefaultInactivityMultiple = 18
	DefaultPollInterval       = 10 * time.Second
	DefaultReadTimeout        = 10 * time.Second
	DefaultCompactionLag      = 5 * time.Minute

	StorageFile = "file"
	StorageKV   = "kv"
	StorageCNPG = "cnpg"
)

// RegistryConfig controls visibility tracking and stale endpoint eviction.
type RegistryConfig struct {
	SweepInterval      Duration `json:"sweep_interval"`
	InactivityMultiple int      `json:"inactivity_multiple"`
}

// InactivityLimit is the observation age after which an endpoint is evicted.
func (c RegistryConfig) InactivityLimit() time.Duration {
	return time.Duration(c.SweepInterval) * time.Duration(c.InactivityMultiple)
}

// EndpointConfig controls the per-endpoint session and state machine.
type EndpointConfig struct {
	PollInterval Duration `json:"poll_interval"`
	ReadTimeout  Duration `json:"read_timeout"`
	// MinConnectSpacing throttles connection attempts per endpoint; zero disables it.
	MinConnectSpacing Duration `json:"min_connect_spacing,omitempty"`
	ConnectBurst      int      `json:"connect_burst,omitempty"`
}

// CompactorConfig selects a compaction policy for a sample key.
type CompactorConfig struct {
	Key     string   `json:"key"`
	Kind    string   `json:"kind"`
	Policy  string   `json:"policy"`
	Epsilon float64  `json:"epsilon,omitempty"`
	MaxLag  Duration `json:"max_lag,omitempty"`
}

// StorageConfig selects the persistence backend for recordings.
type StorageConfig struct {
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"`
	Bucket  string `json:"bucket,omitempty"`
	DSN     string `json:"dsn,omitempty" sensitive:"true"`
}

// APIConfig configures the HTTP query/control surface.
type APIConfig struct {
	ListenAddr     string   `json:"listen_addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	// APIKey, when set, is required in the X-API-Key header of every
	// request except the health check.
	APIKey string `json:"api_key,omitempty" sensitive:"true"`
}

// SimulatorConfig describes simulated endpoints used when no radio stack is present.
type SimulatorConfig struct {
	Enabled      bool                `json:"enabled"`
	ScanInterval Duration            `json:"scan_interval"`
	Endpoints    []SimulatedEndpoint `json:"endpoints"`
	Positioning  bool                `json:"positioning"`
}

// SimulatedEndpoint is a single simulated device.
type SimulatedEndpoint struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Battery     int     `json:"battery"`
	Serial      string  `json:"serial,omitempty"`
	// Lifetime stops the endpoint from advertising after the given duration; zero means forever.
	Lifetime Duration `json:"lifetime,omitempty"`
}

// DefaultSimulatorConfig returns a small mixed fleet with positioning, used
// when simulation is requested without an explicit simulator section.
func DefaultSimulatorConfig() *SimulatorConfig {
	return &SimulatorConfig{
		Enabled:      true,
		ScanInterval: Duration(2 * time.Second),
		Positioning:  true,
		Endpoints: []SimulatedEndpoint{
			{ID: "A4:C1:38:5E:10:01", Name: "TH-Gauge", Temperature: 21.4, Humidity: 45.2, Battery: 88},
			{ID: "A4:C1:38:5E:10:02", Name: "SenseBio", Temperature: 4.1, Humidity: 81.0, Battery: 63},
			{ID: "C4:7C:8D:6A:20:01", Name: "RT-T", Temperature: -18.5, Humidity: 30.0, Battery: 97, Serial: "RT0001"},
		},
	}
}

// TrackerConfig is the configuration of the beacon tracker service.
type TrackerConfig struct {
	ServiceName   string            `json:"service_name"`
	Registry      RegistryConfig    `json:"registry"`
	Endpoint      EndpointConfig    `json:"endpoint"`
	EndpointTypes map[string]string `json:"endpoint_types,omitempty"`
	Compactors    []CompactorConfig `json:"compactors,omitempty"`
	Storage       StorageConfig     `json:"storage"`
	NATS          *NATSConfig       `json:"nats,omitempty"`
	Events        EventsConfig      `json:"events"`
	API           APIConfig         `json:"api"`
	Simulator     *SimulatorConfig  `json:"simulator,omitempty"`
	Logging       *logger.Config    `json:"logging,omitempty"`
}

// ApplyDefaults fills unset values with the service defaults.
func (c *TrackerConfig) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "beacon-tracker"
	}

	if c.Registry.SweepInterval == 0 {
		c.Registry.SweepInterval = Duration(DefaultSweepInterval)
	}

	if c.Registry.InactivityMultiple == 0 {
		c.Registry.InactivityMultiple = DefaultInactivityMultiple
	}

	if c.Endpoint.PollInterval == 0 {
		c.Endpoint.PollInterval = Duration(DefaultPollInterval)
	}

	if c.Endpoint.ReadTimeout == 0 {
		c.Endpoint.ReadTimeout = Duration(DefaultReadTimeout)
	}

	if c.Compactors == nil {
		c.Compactors = DefaultCompactors()
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFile
	}

	if c.Storage.Backend == StorageKV && c.Storage.Bucket == "" {
		c.Storage.Bucket = "beaconradar-recordings"
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8090"
	}
}

// DefaultCompactors returns the built-in compaction policies.
func DefaultCompactors() []CompactorConfig {
	return []CompactorConfig{
		{Key: KeyTemperature, Kind: "number", Policy: "threshold", Epsilon: 0.015, MaxLag: Duration(DefaultCompactionLag)},
		{Key: KeyHumidity, Kind: "number", Policy: "threshold", Epsilon: 0.015, MaxLag: Duration(DefaultCompactionLag)},
		{Key: KeyLocation, Kind: "location", Policy: "geo", Epsilon: 0.0001, MaxLag: Duration(DefaultCompactionLag)},
		{Key: KeyBattery, Kind: "integer", Policy: "equality"},
	}
}

// Validate checks the configuration after defaults have been applied.
func (c *TrackerConfig) Validate() error {
	if c.Registry.SweepInterval <= 0 {
		return errSweepIntervalRequired
	}

	if c.Registry.InactivityMultiple <= 0 {
		return errInactivityMultiple
	}

	if c.Endpoint.PollInterval <= 0 {
		return errPollIntervalRequired
	}

	if c.Endpoint.ReadTimeout <= 0 {
		return errReadTimeoutRequired
	}

	for _, cc := range c.Compactors {
		if cc.Key == "" {
			return errCompactorKeyRequired
		}
	}

	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.Path == "" {
			return errStoragePathRequired
		}
	case StorageKV:
		if c.NATS == nil {
			return errNATSRequiredForKVStorage
		}
	case StorageCNPG:
		if c.Storage.DSN == "" {
			return errStorageDSNRequired
		}
	default:
		return fmt.Errorf("%w: %q", errStorageBackend, c.Storage.Backend)
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	} else if c.Events.Enabled {
		return errNATSRequiredForEvents
	}

	return c.Events.Validate()
}
