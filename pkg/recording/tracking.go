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

	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/timeline"
)

// Tracking holds the timelines of one endpoint within a recording, one per
// sample key. Each tracking has its own lock so endpoints record in
// parallel.
type Tracking struct {
	endpointID string
	policies   *timeline.Policies

	mu     sync.Mutex
	series map[string]timeline.Series
	keys   []string
	sealed bool
}

func newTracking(endpointID string, policies *timeline.Policies) *Tracking {
	return &Tracking{
		endpointID: endpointID,
		policies:   policies,
		series:     make(map[string]timeline.Series),
	}
}

func (t *Tracking) EndpointID() string { return t.endpointID }

// Add inserts a sample into the timeline of its key, creating the timeline
// on first use. It reports whether the sample was kept.
func (t *Tracking) Add(sample models.Sample) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return false, errSessionSealed
	}

	s, ok := t.series[sample.Key]
	if !ok {
		created, err := timeline.NewSeries(sample.Key, sample.Value, t.policies)
		if err != nil {
			return false, fmt.Errorf("%s/%s: %w", t.endpointID, sample.Key, err)
		}

		s = created
		t.series[sample.Key] = s
		t.keys = append(t.keys, sample.Key)
	}

	return timeline.Add(s, sample)
}

// Keys returns the sample keys in the order they were first recorded.
func (t *Tracking) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.keys)
}

// Timeline returns a snapshot of the timeline for key.
func (t *Tracking) Timeline(key string) (models.TimelineData, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.series[key]
	if !ok {
		return models.TimelineData{}, false, nil
	}

	data, err := s.Encode()

	return data, true, err
}

// Readings is the number of samples kept across all keys.
func (t *Tracking) Readings() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, s := range t.series {
		n += s.Len()
	}

	return n
}

func (t *Tracking) seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

func (t *Tracking) encode() (map[string]models.TimelineData, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]models.TimelineData, len(t.series))

	for key, s := range t.series {
		data, err := s.Encode()
		if err != nil {
			return nil, err
		}

		out[key] = data
	}

	return out, nil
}
