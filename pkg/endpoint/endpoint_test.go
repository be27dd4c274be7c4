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

package endpoint_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type notifications struct {
	mu     sync.Mutex
	events []models.EndpointEvent
}

func (n *notifications) Notify(e models.EndpointEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, e)
}

func (n *notifications) all() []models.EndpointEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]models.EndpointEvent(nil), n.events...)
}

func newTestFactory(t *testing.T, opts ...endpoint.FactoryOption) *endpoint.Factory {
	t.Helper()

	ctrl := gomock.NewController(t)
	opts = append([]endpoint.FactoryOption{endpoint.WithClock(func() time.Time { return epoch.Add(3 * time.Second) })}, opts...)

	f := endpoint.NewFactory(session.NewMockConnector(ctrl), models.EndpointConfig{}, logger.NewTestLogger(), opts...)
	f.Register("gauge", "Gauge", func(models.Observation) (endpoint.Behavior, error) { return &gauge{}, nil })

	return f
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SenseBio", "sensebio"},
		{"RT-T", "rt_t"},
		{"TZ.BT04", "tz_bt04"},
		{"  Gauge 2 ", "gauge_2"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, endpoint.TypeName(tt.in))
		})
	}
}

func TestFactoryCreate(t *testing.T) {
	f := newTestFactory(t, endpoint.WithAliases(map[string]string{"TH-Gauge": "gauge"}))

	ep, err := f.Create(models.Observation{ID: gaugeID, Name: "TH-Gauge", Payload: []byte{0x5a}, RSSI: -71, Timestamp: epoch}, nil)
	require.NoError(t, err)

	assert.Equal(t, gaugeID, ep.ID())
	assert.Equal(t, "gauge", ep.TypeName())
	assert.False(t, ep.Synthetic())
	require.NotNil(t, ep.Session())
	require.NotNil(t, ep.Machine())

	snap := ep.Snapshot()
	assert.Equal(t, "Gauge", snap.Title)
	assert.Equal(t, "5a", snap.PayloadHex)
	assert.Equal(t, -71, snap.RSSI)
	assert.Equal(t, models.Duration(3*time.Second), snap.Elapsed)
	assert.Equal(t, -1, snap.Battery)
	assert.Equal(t, models.StateDisconnected, snap.Connection)
	assert.Equal(t, models.MachineInit, snap.Machine)
	assert.Equal(t, models.ProgressNone, snap.Progress)
}

func TestFactoryRejectsUnknownAndMisconfiguredTypes(t *testing.T) {
	f := newTestFactory(t)
	f.Register("broken", "Broken", func(models.Observation) (endpoint.Behavior, error) {
		return nil, errors.New("missing calibration")
	})

	_, err := f.Create(models.Observation{ID: "A", Name: "Unheard-Of"}, nil)
	require.ErrorIs(t, err, endpoint.ErrUnknownType)

	_, err = f.Create(models.Observation{ID: "B"}, nil)
	require.ErrorIs(t, err, endpoint.ErrUnknownType)

	_, err = f.Create(models.Observation{ID: "C", Name: "Broken"}, nil)
	require.ErrorIs(t, err, endpoint.ErrMisconfiguredType)

	name, ok := f.Resolve("GAUGE")
	assert.True(t, ok)
	assert.Equal(t, "gauge", name)
	assert.ElementsMatch(t, []string{"gauge", "broken"}, f.Types())
}

func TestMergeReplacesObservedState(t *testing.T) {
	f := newTestFactory(t)

	ep, err := f.Create(models.Observation{ID: gaugeID, Name: "Gauge", Payload: []byte{1, 2}, RSSI: -80, Timestamp: epoch}, nil)
	require.NoError(t, err)

	later := epoch.Add(time.Second)
	ep.Merge(models.Observation{ID: gaugeID, Name: "Gauge", Payload: []byte{3}, RSSI: -50, Timestamp: later})

	snap := ep.Snapshot()
	assert.Equal(t, "03", snap.PayloadHex)
	assert.Equal(t, -50, snap.RSSI)
	assert.Equal(t, later, ep.LastSeen())
}

func TestOnScanDecodesAdvertisement(t *testing.T) {
	f := newTestFactory(t, endpoint.WithScheduler(newIdleScheduler()))
	events := &notifications{}

	ep, err := f.Create(models.Observation{ID: gaugeID, Name: "Gauge", Payload: []byte{87}, Timestamp: epoch}, events)
	require.NoError(t, err)

	ep.OnScan()

	snap := ep.Snapshot()
	assert.Equal(t, 87, snap.Battery)
	assert.Equal(t, "SN-1", snap.Serial)
	assert.Equal(t, int64(87), snap.Readings[models.KeyBattery])

	got := events.all()
	require.Len(t, got, 1)
	assert.Equal(t, models.EventUpdated, got[0].Type)
	assert.Equal(t, "battery=87", got[0].Message)
}

func TestRecordForwardsToSinkAndDropsUnknownBattery(t *testing.T) {
	events := &notifications{}
	ep := endpoint.NewSynthetic("positioning", "positioning", "", events, logger.NewTestLogger(), func() time.Time { return epoch })
	s := &sink{}

	ep.Record(models.IntegerSample(models.KeyBattery, -1, epoch))
	assert.Empty(t, events.all(), "nothing kept, nothing reported")

	ep.StartTracking(s)
	assert.True(t, ep.Tracking())

	ep.Record(
		models.NumberSample(models.KeyTemperature, 19.25, epoch),
		models.IntegerSample(models.KeyBattery, -1, epoch),
		models.LocationSample(models.KeyLocation, models.Location{Lat: -33.86, Lng: 151.21}, epoch),
	)

	assert.Equal(t, 2, s.len())

	ep.StopTracking()
	ep.Record(models.NumberSample(models.KeyTemperature, 19.5, epoch.Add(time.Second)))
	assert.Equal(t, 2, s.len())

	snap := ep.Snapshot()
	assert.True(t, snap.Synthetic)
	assert.Equal(t, "positioning", snap.Title, "falls back to the id")
	assert.Equal(t, -1, snap.Battery)
	assert.Equal(t, 19.5, snap.Readings[models.KeyTemperature])
	assert.Len(t, events.all(), 2)
}

type idleScheduler struct{}

func newIdleScheduler() idleScheduler { return idleScheduler{} }

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

func (idleScheduler) AfterFunc(time.Duration, func()) endpoint.Timer { return idleTimer{} }
