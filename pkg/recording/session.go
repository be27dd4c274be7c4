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

package recording

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/registry"
	"github.com/carverauto/beaconradar/pkg/timeline"
)

// Session is one recording: the trackings of every endpoint seen between
// begin and end. A session is active until closed, stops binding endpoints
// once closed and is immutable after sealing.
type Session struct {
	begin    time.Time
	policies *timeline.Policies

	mu        sync.RWMutex
	closed    bool
	end       time.Time
	trackings map[string]*Tracking
	order     []string
}

func newSession(begin time.Time, policies *timeline.Policies) *Session {
	return &Session{
		begin:     begin,
		policies:  policies,
		trackings: make(map[string]*Tracking),
	}
}

func (s *Session) Begin() time.Time { return s.begin }

// End returns the end time; it is zero while the session is active.
func (s *Session) End() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.end
}

func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return !s.closed
}

// Tracking returns the tracking of endpointID, creating it while the session
// is active. It returns nil for an unknown endpoint of a closed session.
func (s *Session) Tracking(endpointID string) *Tracking {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.trackingLocked(endpointID)
}

func (s *Session) trackingLocked(endpointID string) *Tracking {
	if t, ok := s.trackings[endpointID]; ok {
		return t
	}

	if s.closed {
		return nil
	}

	t := newTracking(endpointID, s.policies)
	s.trackings[endpointID] = t
	s.order = append(s.order, endpointID)

	return t
}

// bind starts tracking ep into this session. The lock is held across the
// bind so close cannot slip in between the check and StartTracking.
func (s *Session) bind(ep *endpoint.Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		ep.StartTracking(s.trackingLocked(ep.ID()))
	}
}

// close stops the session from binding endpoints. Once it returns no
// StartTracking into this session is in flight.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// EndpointIDs returns the tracked endpoints in the order they joined.
func (s *Session) EndpointIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.order)
}

// Readings is the number of samples kept across all trackings.
func (s *Session) Readings() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.trackings {
		n += t.Readings()
	}

	return n
}

func (s *Session) Header() models.RecordingHeader {
	return models.RecordingHeader{
		Begin:    s.begin,
		End:      s.End(),
		Readings: s.Readings(),
	}
}

// OnEvent follows registry membership while the session is active: added
// endpoints start tracking into this session, removed ones stop. Timelines
// of removed endpoints stay in the session.
func (s *Session) OnEvent(e registry.Event) {
	if e.Endpoint == nil {
		return
	}

	switch e.Type {
	case models.EventAdded:
		s.bind(e.Endpoint)
	case models.EventRemoved:
		if s.Active() {
			e.Endpoint.StopTracking()
		}
	case models.EventUpdated, models.EventConnected, models.EventDisconnected, models.EventProgress, models.EventError:
	}
}

func (s *Session) seal(end time.Time) {
	s.mu.Lock()
	s.closed = true
	s.end = end
	trackings := make([]*Tracking, 0, len(s.trackings))
	for _, t := range s.trackings {
		trackings = append(trackings, t)
	}
	s.mu.Unlock()

	for _, t := range trackings {
		t.seal()
	}
}

// Recording renders the session in its persisted form.
func (s *Session) Recording() (models.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := models.Recording{
		Begin:     s.begin,
		End:       s.end,
		Trackings: make(map[string]map[string]models.TimelineData, len(s.trackings)),
	}

	for id, t := range s.trackings {
		data, err := t.encode()
		if err != nil {
			return models.Recording{}, fmt.Errorf("encode tracking %s: %w", id, err)
		}

		rec.Trackings[id] = data
	}

	return rec, nil
}

// FromRecording rebuilds a sealed session from its persisted form.
func FromRecording(rec models.Recording, policies *timeline.Policies) (*Session, error) {
	s := newSession(rec.Begin, policies)
	s.closed = true
	s.end = rec.End

	ids := make([]string, 0, len(rec.Trackings))
	for id := range rec.Trackings {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	for _, id := range ids {
		t := newTracking(id, policies)
		t.sealed = true

		keys := make([]string, 0, len(rec.Trackings[id]))
		for key := range rec.Trackings[id] {
			keys = append(keys, key)
		}

		slices.Sort(keys)

		for _, key := range keys {
			series, err := timeline.Decode(key, rec.Trackings[id][key], policies)
			if err != nil {
				return nil, fmt.Errorf("tracking %s: %w", id, err)
			}

			t.series[key] = series
			t.keys = append(t.keys, key)
		}

		s.trackings[id] = t
		s.order = append(s.order, id)
	}

	return s, nil
}
