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
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/endpoint/endpointtest"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	gaugeID      = "D0:4E:11:07:A9:30"
	gaugeService = "gauge-service"
	readingAttr  = "reading"
	pollInterval = 10 * time.Second
)

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// gauge is a minimal behavior: polling reads one attribute whose first byte
// is the temperature; tracking subscribes to the same attribute. With readAll
// the poll goes through the read-all protocol instead of a single read.
type gauge struct {
	readAll      bool
	polls        atomic.Int32
	subscribes   atomic.Int32
	unsubscribes atomic.Int32
}

func (*gauge) Title() string { return "Gauge" }

func (*gauge) Advertisement(payload []byte, ts time.Time) (endpoint.Advertisement, error) {
	if len(payload) == 0 {
		return endpoint.Advertisement{}, nil
	}

	return endpoint.Advertisement{
		Serial:  "SN-1",
		Samples: []models.Sample{models.IntegerSample(models.KeyBattery, int64(payload[0]), ts)},
	}, nil
}

func (p *gauge) Poll(ctx context.Context, io endpoint.AttributeIO) (*session.ReadOperation, error) {
	p.polls.Add(1)

	if p.readAll {
		return io.ReadAllAttributes(ctx, gaugeService, readingAttr)
	}

	return nil, io.ReadAttribute(readingAttr)
}

func (p *gauge) Subscribe(_ context.Context, io endpoint.AttributeIO) error {
	p.subscribes.Add(1)
	return io.SetNotify(readingAttr, true)
}

func (p *gauge) Unsubscribe(_ context.Context, io endpoint.AttributeIO) error {
	p.unsubscribes.Add(1)
	return io.SetNotify(readingAttr, false)
}

func (*gauge) Decode(attr string, value []byte, pushed bool, ts time.Time) ([]models.Sample, bool, error) {
	if attr != readingAttr || len(value) == 0 {
		return nil, false, nil
	}

	return []models.Sample{models.NumberSample(models.KeyTemperature, float64(value[0]), ts)}, !pushed, nil
}

type sink struct {
	mu      sync.Mutex
	samples []models.Sample
}

func (s *sink) Add(sample models.Sample) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, sample)

	return true, nil
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.samples)
}

type harness struct {
	sched    *endpointtest.Scheduler
	behavior *gauge
	link     *session.MockLink
	ep       *endpoint.Endpoint
	connects atomic.Int32
	closes   atomic.Int32

	mu      sync.Mutex
	handler session.Handler
}

type harnessConfig struct {
	readAll     bool
	readTimeout time.Duration
	clock       func() time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	return newHarnessWith(t, harnessConfig{})
}

func newHarnessWith(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()

	if cfg.readTimeout == 0 {
		cfg.readTimeout = time.Second
	}

	if cfg.clock == nil {
		cfg.clock = func() time.Time { return epoch }
	}

	ctrl := gomock.NewController(t)
	connector := session.NewMockConnector(ctrl)

	h := &harness{
		sched:    endpointtest.New(),
		behavior: &gauge{readAll: cfg.readAll},
		link:     session.NewMockLink(ctrl),
	}

	connector.EXPECT().Connect(gomock.Any(), gaugeID, gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, _ string, handler session.Handler) (session.Link, error) {
			h.connects.Add(1)
			h.mu.Lock()
			h.handler = handler
			h.mu.Unlock()

			return h.link, nil
		})

	h.link.EXPECT().DiscoverServices().AnyTimes().Return(nil)
	h.link.EXPECT().Services().AnyTimes().
		Return([]models.Service{{ID: gaugeService, Attributes: []string{readingAttr}}})
	h.link.EXPECT().ReadAttribute(readingAttr).AnyTimes().Return(nil)
	h.link.EXPECT().SetNotify(readingAttr, gomock.Any()).AnyTimes().Return(nil)
	h.link.EXPECT().Close().AnyTimes().DoAndReturn(func() error {
		h.closes.Add(1)
		return nil
	})

	factory := endpoint.NewFactory(connector,
		models.EndpointConfig{PollInterval: models.Duration(pollInterval), ReadTimeout: models.Duration(cfg.readTimeout)},
		logger.NewTestLogger(),
		endpoint.WithScheduler(h.sched),
		endpoint.WithClock(cfg.clock))
	factory.Register("gauge", "Gauge", func(models.Observation) (endpoint.Behavior, error) { return h.behavior, nil })

	ep, err := factory.Create(models.Observation{ID: gaugeID, Name: "Gauge", RSSI: -60, Timestamp: epoch}, nil)
	require.NoError(t, err)

	h.ep = ep

	return h
}

func (h *harness) transport() session.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.handler
}

// connect advances virtual time until the scheduled connect runs and
// completes the link up to the CONNECTED transition.
func (h *harness) connect(t *testing.T, after time.Duration) {
	t.Helper()

	before := h.connects.Load()
	require.Equal(t, 1, h.sched.Advance(after))
	require.Equal(t, before+1, h.connects.Load())

	h.transport().OnConnectionStateChanged(models.StatusSuccess, models.StateConnected)
	require.Equal(t, models.StateConnected, h.ep.Session().State())
}

func (h *harness) discovered() {
	h.transport().OnServicesDiscovered(models.StatusSuccess)
}

func (h *harness) readCompletes(v byte) {
	h.transport().OnAttributeRead(readingAttr, []byte{v}, models.StatusSuccess)
}

func (h *harness) readFails() {
	h.transport().OnAttributeRead(readingAttr, nil, models.StatusFailure)
}

func (h *harness) state() models.MachineState {
	return h.ep.Machine().State()
}

func TestPollingCycleRepeatsWhileObserved(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, models.MachineInit, h.state())

	h.ep.OnScan()
	assert.Equal(t, models.MachinePolling, h.state())
	assert.Equal(t, []time.Duration{0}, h.sched.Pending())

	wait := time.Duration(0)

	for cycle := 1; cycle <= 3; cycle++ {
		h.connect(t, wait)
		h.discovered()
		assert.Equal(t, int32(cycle), h.behavior.polls.Load())

		h.readCompletes(byte(20 + cycle))
		assert.Equal(t, models.StateDisconnected, h.ep.Session().State())
		assert.Equal(t, int32(cycle), h.closes.Load())
		assert.Equal(t, models.MachinePolling, h.state())
		require.Equal(t, []time.Duration{pollInterval}, h.sched.Pending())

		assert.Zero(t, h.sched.Advance(pollInterval-time.Millisecond), "no reconnect before the poll interval")

		wait = time.Millisecond
	}

	assert.Equal(t, 23.0, h.ep.Snapshot().Readings[models.KeyTemperature])
	assert.Zero(t, h.behavior.subscribes.Load())
}

func TestFailedPollReadEndsThePoll(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	require.Equal(t, int32(1), h.behavior.polls.Load())

	h.readFails()

	assert.Equal(t, models.StateDisconnected, h.ep.Session().State())
	assert.Equal(t, models.MachinePolling, h.state())
	assert.Equal(t, int32(1), h.closes.Load())
	require.Equal(t, []time.Duration{pollInterval}, h.sched.Pending())

	h.connect(t, pollInterval)
	h.discovered()
	assert.Equal(t, int32(2), h.behavior.polls.Load())
}

func TestReadAllTimeoutEndsThePoll(t *testing.T) {
	start := time.Now()
	h := newHarnessWith(t, harnessConfig{
		readAll:     true,
		readTimeout: 20 * time.Millisecond,
		clock:       func() time.Time { return epoch.Add(time.Since(start)) },
	})

	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	require.Equal(t, int32(1), h.behavior.polls.Load())

	// The read is issued but never answered.
	require.Eventually(t, func() bool {
		return slices.Equal(h.sched.Pending(), []time.Duration{pollInterval})
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, models.StateDisconnected, h.ep.Session().State())
	assert.Equal(t, models.MachinePolling, h.state())
	assert.Equal(t, int32(1), h.closes.Load())
	assert.Equal(t, models.ProgressNone, h.ep.Session().Progress())
}

func TestCompletedReadAllEndsThePollOnce(t *testing.T) {
	h := newHarnessWith(t, harnessConfig{readAll: true})

	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()

	require.Eventually(t, func() bool {
		return h.ep.Session().Progress() == 0
	}, time.Second, time.Millisecond)

	h.readCompletes(24)

	assert.Equal(t, models.StateDisconnected, h.ep.Session().State())
	assert.Equal(t, []time.Duration{pollInterval}, h.sched.Pending())
	assert.Equal(t, int32(1), h.closes.Load())
	assert.Equal(t, 24.0, h.ep.Snapshot().Readings[models.KeyTemperature])
}

func TestFailedReadWhilePendingStartsTracking(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	h.ep.StartTracking(&sink{})
	require.Equal(t, models.MachineTrackingPending, h.state())

	h.readFails()

	assert.Equal(t, models.StateDisconnected, h.ep.Session().State())
	assert.Equal(t, models.MachineTracking, h.state())
	assert.Equal(t, int32(1), h.closes.Load())
	require.Equal(t, []time.Duration{0}, h.sched.Pending())

	h.connect(t, 0)
	h.discovered()
	assert.Equal(t, int32(1), h.behavior.subscribes.Load())
}

func TestTransportErrorWhilePendingStartsTracking(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	h.ep.StartTracking(&sink{})
	require.Equal(t, models.MachineTrackingPending, h.state())

	h.transport().OnConnectionStateChanged(models.StatusLinkError, models.StateDisconnected)

	assert.Equal(t, models.StateDisconnected, h.ep.Session().State())
	assert.Equal(t, models.MachineTracking, h.state())
	assert.Equal(t, []time.Duration{0}, h.sched.Pending())
}

func TestFailedReadWhileTrackingKeepsLink(t *testing.T) {
	h := newHarness(t)

	h.ep.StartTracking(&sink{})
	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	require.Equal(t, models.MachineTracking, h.state())

	h.readFails()

	assert.Equal(t, models.StateConnected, h.ep.Session().State())
	assert.Equal(t, models.MachineTracking, h.state())
	assert.Zero(t, h.closes.Load())
	assert.Empty(t, h.sched.Pending())
}

func TestRepeatedScansDoNotStackConnects(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.ep.OnScan()
	h.ep.OnScan()

	assert.Len(t, h.sched.Pending(), 1)
}

func TestTrackingRequestDuringPollReadSubscribesOnce(t *testing.T) {
	h := newHarness(t)
	s := &sink{}

	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	require.Equal(t, int32(1), h.behavior.polls.Load())

	h.ep.StartTracking(s)
	assert.Equal(t, models.MachineTrackingPending, h.state())

	h.readCompletes(21)
	assert.Equal(t, models.MachineTracking, h.state())
	assert.Equal(t, int32(1), h.behavior.subscribes.Load())
	assert.Equal(t, int32(1), h.behavior.polls.Load(), "no second one-shot read")
	assert.Zero(t, h.closes.Load(), "link stays open while tracking")

	// A late discovery event must not subscribe again.
	h.discovered()
	assert.Equal(t, int32(1), h.behavior.subscribes.Load())

	h.transport().OnAttributeChanged(readingAttr, []byte{22})
	h.transport().OnAttributeChanged(readingAttr, []byte{23})
	assert.Equal(t, 3, s.len())
}

func TestTrackingRequestBeforeDiscovery(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.ep.StartTracking(&sink{})
	assert.Equal(t, models.MachineTrackingPending, h.state())

	h.connect(t, 0)
	h.discovered()

	assert.Equal(t, models.MachineTracking, h.state())
	assert.Equal(t, int32(1), h.behavior.subscribes.Load())
	assert.Zero(t, h.behavior.polls.Load())
}

func TestDisconnectWhilePendingReconnectsImmediately(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.connect(t, 0)
	h.ep.StartTracking(&sink{})

	h.transport().OnConnectionStateChanged(models.StatusLinkError, models.StateDisconnected)

	assert.Equal(t, models.MachineTracking, h.state())
	assert.Equal(t, []time.Duration{0}, h.sched.Pending())

	h.connect(t, 0)
	h.discovered()
	assert.Equal(t, int32(1), h.behavior.subscribes.Load())
	assert.Zero(t, h.behavior.polls.Load())
}

func TestUnexpectedDisconnectWhileTrackingFallsBackToPolling(t *testing.T) {
	h := newHarness(t)

	h.ep.StartTracking(&sink{})
	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	require.Equal(t, models.MachineTracking, h.state())

	h.transport().OnConnectionStateChanged(models.StatusLinkError, models.StateDisconnected)

	assert.Equal(t, models.MachinePolling, h.state())
	assert.Equal(t, []time.Duration{pollInterval}, h.sched.Pending())
}

func TestStopTrackingUnsubscribesAndDisconnects(t *testing.T) {
	h := newHarness(t)

	h.ep.StartTracking(&sink{})
	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	require.Equal(t, models.MachineTracking, h.state())

	h.ep.StopTracking()

	assert.Equal(t, models.MachinePolling, h.state())
	assert.Equal(t, int32(1), h.behavior.unsubscribes.Load())
	assert.Equal(t, int32(1), h.closes.Load())
	assert.Equal(t, []time.Duration{pollInterval}, h.sched.Pending())
	assert.False(t, h.ep.Tracking())
}

func TestStopTrackingWhilePendingReturnsToPolling(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.ep.StartTracking(&sink{})
	h.ep.StopTracking()

	assert.Equal(t, models.MachinePolling, h.state())
	assert.Zero(t, h.behavior.unsubscribes.Load())
}

func TestStartTrackingBringsScheduledPollForward(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	h.readCompletes(20)
	require.Equal(t, []time.Duration{pollInterval}, h.sched.Pending())

	h.ep.StartTracking(&sink{})

	assert.Equal(t, []time.Duration{0}, h.sched.Pending())

	h.connect(t, 0)
	h.discovered()
	assert.Equal(t, models.MachineTracking, h.state())
}

func TestScanStopFinishesAndCancelsReconnect(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.connect(t, 0)
	h.discovered()
	h.readCompletes(20)
	require.Len(t, h.sched.Pending(), 1)

	h.ep.OnScanStop()

	assert.Equal(t, models.MachineFinished, h.state())
	assert.Empty(t, h.sched.Pending())

	connects := h.connects.Load()
	h.sched.Advance(time.Hour)
	h.ep.OnScan()
	h.ep.StartTracking(&sink{})

	assert.Equal(t, connects, h.connects.Load())
	assert.Equal(t, models.MachineFinished, h.state())
}

func TestScanStopWhileConnectedDisconnects(t *testing.T) {
	h := newHarness(t)

	h.ep.OnScan()
	h.connect(t, 0)

	h.ep.OnScanStop()

	assert.Equal(t, int32(1), h.closes.Load())
	assert.Equal(t, models.StateDisconnected, h.ep.Session().State())
	assert.Empty(t, h.sched.Pending())
}
