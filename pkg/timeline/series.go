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

package timeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
)

// Series is the type-erased view of a Timeline used for heterogeneous storage.
type Series interface {
	Key() string
	Kind() Kind
	Len() int
	Encode() (models.TimelineData, error)
}

// NewSeries creates an empty timeline whose kind matches value, wired to the
// compactor configured for key.
func NewSeries(key string, value any, p *Policies) (Series, error) {
	switch value.(type) {
	case float64:
		return New(key, Lookup[float64](p, key)), nil
	case int64, int:
		return New(key, Lookup[int64](p, key)), nil
	case models.Location:
		return New(key, Lookup[models.Location](p, key)), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, value)
	}
}

// Add inserts a sample into s, checking that the value type matches.
func Add(s Series, sample models.Sample) (bool, error) {
	switch v := sample.Value.(type) {
	case float64:
		return insert(s, sample.Timestamp, v)
	case int64:
		return insert(s, sample.Timestamp, v)
	case int:
		return insert(s, sample.Timestamp, int64(v))
	case models.Location:
		return insert(s, sample.Timestamp, v)
	default:
		return false, fmt.Errorf("%w: %T", ErrUnknownKind, sample.Value)
	}
}

func insert[T any](s Series, ts time.Time, v T) (bool, error) {
	tl, ok := s.(*Timeline[T])
	if !ok {
		return false, fmt.Errorf("%w: %s holds %s", ErrKindMismatch, s.Key(), s.Kind())
	}

	return tl.Insert(ts, v), nil
}

// Encode renders the timeline in its persisted form.
func (t *Timeline[T]) Encode() (models.TimelineData, error) {
	stamps := make([]int64, len(t.times))
	for i, ts := range t.times {
		stamps[i] = ts.UnixMilli()
	}

	values := t.values
	if values == nil {
		values = []T{}
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return models.TimelineData{}, fmt.Errorf("encode %s: %w", t.key, err)
	}

	return models.TimelineData{Kind: string(t.Kind()), Timestamps: stamps, Values: raw}, nil
}

// Decode rebuilds a series from its persisted form. Stored samples are
// restored as-is; the compactor only applies to later inserts.
func Decode(key string, data models.TimelineData, p *Policies) (Series, error) {
	switch Kind(data.Kind) {
	case KindNumber:
		return decode(key, data, Lookup[float64](p, key))
	case KindInteger:
		return decode(key, data, Lookup[int64](p, key))
	case KindLocation:
		return decode(key, data, Lookup[models.Location](p, key))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, data.Kind)
	}
}

func decode[T any](key string, data models.TimelineData, c Compactor[T]) (Series, error) {
	var values []T
	if err := json.Unmarshal(data.Values, &values); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSeries, key, err)
	}

	if len(values) != len(data.Timestamps) {
		return nil, fmt.Errorf("%w: %s has %d timestamps and %d values",
			ErrMalformedSeries, key, len(data.Timestamps), len(values))
	}

	tl := New(key, c)
	tl.times = make([]time.Time, len(values))
	tl.values = values

	for i, ms := range data.Timestamps {
		tl.times[i] = time.UnixMilli(ms).UTC()
		if i > 0 && !tl.times[i].After(tl.times[i-1]) {
			return nil, fmt.Errorf("%w: %s timestamps not increasing at %d", ErrMalformedSeries, key, i)
		}
	}

	return tl, nil
}
