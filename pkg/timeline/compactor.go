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
	"math"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
)

// Compactor decides whether a new sample is redundant. Implementations are
// pure and stateless.
type Compactor[T any] interface {
	// InThreshold reports whether current is close enough to previous to be
	// dropped.
	InThreshold(current, previous T) bool
	// Expired reports whether enough time passed since previous that a sample
	// must be kept regardless of its value.
	Expired(previous, current time.Time) bool
}

// lag implements Expired for a maximum time lag; zero never expires.
type lag time.Duration

func (l lag) Expired(previous, current time.Time) bool {
	return l > 0 && current.Sub(previous) > time.Duration(l)
}

// NumericThreshold drops numbers within Epsilon of the previous value.
type NumericThreshold struct {
	Epsilon float64
	MaxLag  time.Duration
}

func (c NumericThreshold) InThreshold(current, previous float64) bool {
	return math.Abs(current-previous) < c.Epsilon
}

func (c NumericThreshold) Expired(previous, current time.Time) bool {
	return lag(c.MaxLag).Expired(previous, current)
}

// GeoThreshold drops positions whose latitude and longitude both moved less
// than Tolerance degrees. Accuracy is ignored.
type GeoThreshold struct {
	Tolerance float64
	MaxLag    time.Duration
}

func (c GeoThreshold) InThreshold(current, previous models.Location) bool {
	return math.Abs(current.Lat-previous.Lat) < c.Tolerance &&
		math.Abs(current.Lng-previous.Lng) < c.Tolerance
}

func (c GeoThreshold) Expired(previous, current time.Time) bool {
	return lag(c.MaxLag).Expired(previous, current)
}

// Equality drops values identical to the previous one.
type Equality[T comparable] struct {
	MaxLag time.Duration
}

func (c Equality[T]) InThreshold(current, previous T) bool {
	return current == previous
}

func (c Equality[T]) Expired(previous, current time.Time) bool {
	return lag(c.MaxLag).Expired(previous, current)
}

// Never keeps every sample.
type Never[T any] struct{}

func (Never[T]) InThreshold(_, _ T) bool { return false }

func (Never[T]) Expired(_, _ time.Time) bool { return true }
