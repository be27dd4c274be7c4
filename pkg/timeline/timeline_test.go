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
	"math/rand"
	"testing"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNumericThresholdCompaction(t *testing.T) {
	tl := New[float64](models.KeyTemperature, NumericThreshold{Epsilon: 0.015, MaxLag: 5 * time.Minute})

	require.True(t, tl.Insert(t0, 20.0))
	assert.False(t, tl.Insert(t0.Add(time.Second), 20.01), "within threshold and within lag")
	assert.True(t, tl.Insert(t0.Add(6*time.Minute), 20.01), "lag exceeded")
	assert.True(t, tl.Insert(t0.Add(6*time.Minute+time.Second), 20.5), "value moved")
	assert.Equal(t, 3, tl.Len())
}

func TestInsertRejectsDuplicateTimestamp(t *testing.T) {
	tl := New[float64]("k", nil)

	require.True(t, tl.Insert(t0, 1))
	assert.False(t, tl.Insert(t0, 2))

	_, v := tl.At(0)
	assert.InDelta(t, 1.0, v, 0)
}

func TestInsertBeforeFirstIsUnconditional(t *testing.T) {
	tl := New[int64]("battery", Equality[int64]{})

	require.True(t, tl.Insert(t0, 80))
	assert.True(t, tl.Insert(t0.Add(-time.Minute), 80))
	assert.False(t, tl.Insert(t0.Add(time.Minute), 80))

	ts, _ := tl.At(0)
	assert.Equal(t, t0.Add(-time.Minute), ts)
}

func TestInsertOutOfOrderKeepsOrdering(t *testing.T) {
	tl := New[float64]("k", nil)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		tl.Insert(t0.Add(time.Duration(rng.Intn(10_000))*time.Millisecond), rng.Float64())
	}

	points := tl.Points()
	for i := 1; i < len(points); i++ {
		require.True(t, points[i].Time.After(points[i-1].Time), "index %d", i)
	}
}

func TestInsertTruncatesToMilliseconds(t *testing.T) {
	tl := New[float64]("k", nil)

	require.True(t, tl.Insert(t0.Add(100*time.Microsecond), 1))
	assert.False(t, tl.Insert(t0.Add(900*time.Microsecond), 2))
}

func TestGeoThresholdUsesIndependentAxes(t *testing.T) {
	c := GeoThreshold{Tolerance: 0.0001, MaxLag: 5 * time.Minute}
	base := models.Location{Lat: -33.8688, Lng: 151.2093}

	assert.True(t, c.InThreshold(models.Location{Lat: base.Lat + 0.00005, Lng: base.Lng - 0.00005, Acc: 50}, base))
	assert.False(t, c.InThreshold(models.Location{Lat: base.Lat + 0.0002, Lng: base.Lng}, base))
	assert.False(t, c.InThreshold(models.Location{Lat: base.Lat, Lng: base.Lng + 0.0002}, base))
}

func TestNeverKeepsEverything(t *testing.T) {
	tl := New[float64]("k", Never[float64]{})

	for i := 0; i < 5; i++ {
		require.True(t, tl.Insert(t0.Add(time.Duration(i)*time.Second), 1))
	}
}

func TestEqualityWithoutLagNeverExpires(t *testing.T) {
	c := Equality[int64]{}

	assert.False(t, c.Expired(t0, t0.Add(24*time.Hour)))
	assert.True(t, Equality[int64]{MaxLag: time.Minute}.Expired(t0, t0.Add(2*time.Minute)))
}

func TestLast(t *testing.T) {
	tl := New[float64]("k", nil)

	_, ok := tl.Last()
	assert.False(t, ok)

	tl.Insert(t0, 1)
	tl.Insert(t0.Add(time.Second), 2)

	p, ok := tl.Last()
	require.True(t, ok)
	assert.InDelta(t, 2.0, p.Value, 0)
}
