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
	"testing"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoliciesFromConfigDefaults(t *testing.T) {
	p, err := PoliciesFromConfig(models.DefaultCompactors())
	require.NoError(t, err)

	num := Lookup[float64](p, models.KeyTemperature)
	require.NotNil(t, num)
	assert.Equal(t, NumericThreshold{Epsilon: 0.015, MaxLag: 5 * time.Minute}, num)

	geo := Lookup[models.Location](p, models.KeyLocation)
	assert.Equal(t, GeoThreshold{Tolerance: 0.0001, MaxLag: 5 * time.Minute}, geo)

	assert.NotNil(t, Lookup[int64](p, models.KeyBattery))
	assert.Nil(t, Lookup[float64](p, models.KeyBattery), "policy is keyed by kind")
	assert.Nil(t, Lookup[float64](p, "pressure"))
	assert.Nil(t, Lookup[float64](nil, models.KeyTemperature))
}

func TestPoliciesFromConfigRejectsUnknown(t *testing.T) {
	_, err := PoliciesFromConfig([]models.CompactorConfig{{Key: "x", Kind: "number", Policy: "geo"}})
	require.ErrorIs(t, err, ErrUnknownPolicy)

	_, err = PoliciesFromConfig([]models.CompactorConfig{{Key: "x", Kind: "colour", Policy: "never"}})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestAddChecksKind(t *testing.T) {
	s, err := NewSeries("battery", int64(90), nil)
	require.NoError(t, err)

	ok, err := Add(s, models.IntegerSample("battery", 90, t0))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Add(s, models.NumberSample("battery", 0.9, t0.Add(time.Second)))
	require.ErrorIs(t, err, ErrKindMismatch)

	_, err = NewSeries("x", "text", nil)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p, err := PoliciesFromConfig(models.DefaultCompactors())
	require.NoError(t, err)

	loc := New[models.Location](models.KeyLocation, nil)
	loc.Insert(t0, models.Location{Lat: 1.5, Lng: 2.5, Acc: 10})
	loc.Insert(t0.Add(1500*time.Millisecond), models.Location{Lat: 1.6, Lng: 2.4, Acc: 8})

	data, err := loc.Encode()
	require.NoError(t, err)
	assert.Equal(t, "location", data.Kind)
	assert.Equal(t, []int64{t0.UnixMilli(), t0.Add(1500 * time.Millisecond).UnixMilli()}, data.Timestamps)

	decoded, err := Decode(models.KeyLocation, data, p)
	require.NoError(t, err)

	tl, ok := decoded.(*Timeline[models.Location])
	require.True(t, ok)
	assert.Equal(t, loc.Points(), tl.Points())
	assert.NotNil(t, tl.compactor)
}

func TestEncodeEmpty(t *testing.T) {
	data, err := New[float64]("k", nil).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data.Values))
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode("k", models.TimelineData{Kind: "number", Timestamps: []int64{1, 2}, Values: []byte(`[1]`)}, nil)
	require.ErrorIs(t, err, ErrMalformedSeries)

	_, err = Decode("k", models.TimelineData{Kind: "number", Timestamps: []int64{2, 1}, Values: []byte(`[1,2]`)}, nil)
	require.ErrorIs(t, err, ErrMalformedSeries)

	_, err = Decode("k", models.TimelineData{Kind: "number", Timestamps: []int64{1}, Values: []byte(`{`)}, nil)
	require.ErrorIs(t, err, ErrMalformedSeries)

	_, err = Decode("k", models.TimelineData{Kind: "blob"}, nil)
	require.ErrorIs(t, err, ErrUnknownKind)
}
