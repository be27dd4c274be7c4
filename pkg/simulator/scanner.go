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

package simulator

import (
	"context"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint/behaviors"
	"github.com/carverauto/beaconradar/pkg/models"
)

// degrees per metre, close enough for a walk of a few hundred metres
const metreDegrees = 1.0 / 111_320

// Observer receives scan observations. *registry.Registry satisfies it.
type Observer interface {
	Observe(obs models.Observation)
}

// LocationReporter receives host location fixes.
type LocationReporter interface {
	Report(loc models.Location, ts time.Time)
}

// Run scans until ctx is done: every scan interval each advertising device
// is reported to obs and, when positioning is enabled and pos is not nil, a
// location fix is reported to pos.
func (s *Simulator) Run(ctx context.Context, obs Observer, pos LocationReporter) error {
	interval := time.Duration(s.cfg.ScanInterval)
	if interval <= 0 {
		interval = defaultScanInterval
	}

	s.logger.Info().
		Dur("interval", interval).
		Int("endpoints", len(s.order)).
		Bool("positioning", s.cfg.Positioning && pos != nil).
		Msg("Starting simulated scan")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.Scan(obs, pos)

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Context canceled, stopping simulated scan")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Scan performs a single scan pass.
func (s *Simulator) Scan(obs Observer, pos LocationReporter) {
	now := s.now()

	for _, o := range s.observations(now) {
		obs.Observe(o)
	}

	if s.cfg.Positioning && pos != nil {
		pos.Report(s.nextFix(), now)
	}
}

func (s *Simulator) observations(now time.Time) []models.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Observation, 0, len(s.order))

	for _, id := range s.order {
		dev := s.devices[id]
		if !s.advertising(dev, now) {
			continue
		}

		out = append(out, models.Observation{
			ID:        dev.cfg.ID,
			Name:      dev.cfg.Name,
			Payload:   s.advertisementLocked(dev),
			RSSI:      minRSSI + s.rng.IntN(rssiRange),
			Timestamp: now,
		})
	}

	return out
}

// advertisementLocked builds the broadcast payload. Only the humiture logger
// carries readings in its advertisement.
func (s *Simulator) advertisementLocked(dev *device) []byte {
	if s.typeLocked(dev) != behaviors.HumitureLoggerType {
		return nil
	}

	s.stepLocked(dev)

	payload := make([]byte, 0, 5+len(dev.cfg.Serial))
	payload = append(payload, byte(dev.battery))
	payload = append(payload, behaviors.EncodeHumiture(dev.temperature, dev.humidity)...)

	return append(payload, dev.cfg.Serial...)
}

func (s *Simulator) nextFix() models.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.location.Lat += s.rng.NormFloat64() * 5 * metreDegrees
	s.location.Lng += s.rng.NormFloat64() * 5 * metreDegrees
	s.location.Acc = baseAcc + s.rng.Float64()*4

	return s.location
}
