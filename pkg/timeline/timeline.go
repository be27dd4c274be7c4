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

// Package timeline stores ordered, compacted sample series.
package timeline

import (
	"sort"
	"time"
)

// Point is a single timestamped value.
type Point[T any] struct {
	Time  time.Time
	Value T
}

// Timeline is an ordered series of samples for one key. Timestamps are kept
// at millisecond precision and are strictly increasing. It is not safe for
// concurrent use; callers serialize access.
type Timeline[T any] struct {
	key       string
	compactor Compactor[T]
	times     []time.Time
	values    []T
}

// New returns an empty timeline. A nil compactor keeps every sample.
func New[T any](key string, compactor Compactor[T]) *Timeline[T] {
	return &Timeline[T]{key: key, compactor: compactor}
}

func (t *Timeline[T]) Key() string { return t.key }

func (t *Timeline[T]) Kind() Kind { return KindOf[T]() }

func (t *Timeline[T]) Len() int { return len(t.times) }

// Insert adds v at ts and reports whether it was kept. A sample earlier than
// every stored one is always kept. Otherwise it is kept only when there is no
// compactor, the value moved out of the compactor's threshold relative to the
// preceding sample, or the compactor's time lag has expired. Samples whose
// timestamp is already present are rejected.
func (t *Timeline[T]) Insert(ts time.Time, v T) bool {
	ts = normalize(ts)

	i := sort.Search(len(t.times), func(i int) bool { return !t.times[i].Before(ts) })
	if i < len(t.times) && t.times[i].Equal(ts) {
		return false
	}

	if i > 0 && t.compactor != nil {
		prevTime, prev := t.times[i-1], t.values[i-1]
		if t.compactor.InThreshold(v, prev) && !t.compactor.Expired(prevTime, ts) {
			return false
		}
	}

	t.times = append(t.times, time.Time{})
	copy(t.times[i+1:], t.times[i:])
	t.times[i] = ts

	var zero T

	t.values = append(t.values, zero)
	copy(t.values[i+1:], t.values[i:])
	t.values[i] = v

	return true
}

// At returns the i-th sample.
func (t *Timeline[T]) At(i int) (time.Time, T) {
	return t.times[i], t.values[i]
}

// Last returns the most recent sample, if any.
func (t *Timeline[T]) Last() (Point[T], bool) {
	if len(t.times) == 0 {
		return Point[T]{}, false
	}

	n := len(t.times) - 1

	return Point[T]{Time: t.times[n], Value: t.values[n]}, true
}

// Points returns a copy of the series.
func (t *Timeline[T]) Points() []Point[T] {
	out := make([]Point[T], len(t.times))
	for i := range t.times {
		out[i] = Point[T]{Time: t.times[i], Value: t.values[i]}
	}

	return out
}

func normalize(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Millisecond)
}
