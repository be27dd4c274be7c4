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
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/registry"
	"github.com/carverauto/beaconradar/pkg/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var start = time.Date(2026, 8, 20, 6, 15, 0, 0, time.UTC)

type eventRecorder struct {
	mu     sync.Mutex
	events []models.RecordingEvent
}

func (r *eventRecorder) OnRecordingEvent(e models.RecordingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []models.RecordingEventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.RecordingEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}

	return out
}

type fixture struct {
	store    *MockStore
	registry *registry.Registry
	manager  *Manager
	events   *eventRecorder
	now      time.Time
	mu       sync.Mutex
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		store:  NewMockStore(ctrl),
		events: &eventRecorder{},
		now:    start,
	}

	policies, err := timeline.PoliciesFromConfig(models.DefaultCompactors())
	require.NoError(t, err)

	f.registry = registry.New(nil, models.RegistryConfig{}, logger.NewTestLogger(), registry.WithClock(f.clock))
	t.Cleanup(f.registry.Close)

	f.manager = NewManager(f.registry, f.store, policies, logger.NewTestLogger(), WithClock(f.clock))
	f.manager.AddListener(f.events)

	return f
}

func (f *fixture) addEndpoint(t *testing.T, id string) *endpoint.Endpoint {
	t.Helper()

	added := &addedWaiter{id: id, seen: make(chan struct{})}
	f.registry.AddListener(added)
	defer f.registry.RemoveListener(added)

	ep := endpoint.NewSynthetic(id, "gauge", "", f.registry, logger.NewTestLogger(), f.clock)
	require.NoError(t, f.registry.AddSynthetic(ep))

	select {
	case <-added.seen:
	case <-time.After(2 * time.Second):
		t.Fatalf("ADDED for %s was not delivered", id)
	}

	return ep
}

// addedWaiter lets tests wait until the ADDED event of one endpoint has been
// dispatched, so it cannot race with a later recording.
type addedWaiter struct {
	id   string
	once sync.Once
	seen chan struct{}
}

func (w *addedWaiter) OnEvent(e registry.Event) {
	if e.Type == models.EventAdded && e.EndpointID == w.id {
		w.once.Do(func() { close(w.seen) })
	}
}

func temperature(v float64, ts time.Time) models.Sample {
	return models.NumberSample(models.KeyTemperature, v, ts)
}

func TestStartTrackingIsExclusive(t *testing.T) {
	f := newFixture(t)
	ep := f.addEndpoint(t, "A")

	require.True(t, f.manager.StartTracking())
	assert.False(t, f.manager.StartTracking())
	assert.True(t, f.manager.IsRecording())
	assert.True(t, ep.Tracking())

	active := f.manager.Active()
	require.NotNil(t, active)
	assert.Equal(t, start, active.Begin())
	assert.True(t, active.Active())
}

func TestStopWithoutReadingsDiscards(t *testing.T) {
	f := newFixture(t)
	ep := f.addEndpoint(t, "A")

	ok, err := f.manager.StopTracking(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "nothing to stop")

	require.True(t, f.manager.StartTracking())

	ok, err = f.manager.StopTracking(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.False(t, f.manager.IsRecording())
	assert.False(t, ep.Tracking())
	assert.Zero(t, f.manager.HeaderCount())
	assert.Equal(t, []models.RecordingEventType{models.RecordingStarted, models.RecordingDiscarded}, f.events.types())
}

func TestStopPersistsRecordingAndAppendsHeader(t *testing.T) {
	f := newFixture(t)
	a := f.addEndpoint(t, "A")
	b := f.addEndpoint(t, "B")

	require.True(t, f.manager.StartTracking())

	a.Record(temperature(20.0, start), temperature(21.0, start.Add(time.Second)))
	b.Record(models.IntegerSample(models.KeyBattery, 80, start))

	f.advance(time.Minute)

	var saved models.Recording

	f.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec models.Recording) error {
		saved = rec
		return nil
	})
	f.store.EXPECT().SaveHeaders(gomock.Any(), []models.RecordingHeader{
		{Begin: start, End: start.Add(time.Minute), Readings: 3},
	}).Return(nil)

	ok, err := f.manager.StopTracking(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, start, saved.Begin)
	assert.Equal(t, start.Add(time.Minute), saved.End)
	require.Contains(t, saved.Trackings, "A")
	assert.Equal(t, []int64{start.UnixMilli(), start.Add(time.Second).UnixMilli()}, saved.Trackings["A"][models.KeyTemperature].Timestamps)
	assert.JSONEq(t, `[20,21]`, string(saved.Trackings["A"][models.KeyTemperature].Values))

	require.Equal(t, 1, f.manager.HeaderCount())
	h, ok := f.manager.Header(0)
	require.True(t, ok)
	assert.Equal(t, 3, h.Readings)

	_, ok = f.manager.Header(1)
	assert.False(t, ok)

	assert.False(t, a.Tracking())
	assert.Equal(t, []models.RecordingEventType{models.RecordingStarted, models.RecordingPersisted}, f.events.types())

	// Samples after the stop do not reach the sealed session.
	a.Record(temperature(30, start.Add(2*time.Minute)))

	sess, err := f.manager.Get(context.Background(), start)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.Readings())
	assert.False(t, sess.Active())
}

func TestFailedSaveLeavesIndexUntouched(t *testing.T) {
	f := newFixture(t)
	a := f.addEndpoint(t, "A")

	require.True(t, f.manager.StartTracking())
	a.Record(temperature(20, start))

	f.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	ok, err := f.manager.StopTracking(context.Background())
	require.Error(t, err)
	assert.True(t, ok)
	assert.Zero(t, f.manager.HeaderCount())
	assert.False(t, f.manager.IsRecording())
	assert.Equal(t, []models.RecordingEventType{models.RecordingStarted, models.RecordingFailed}, f.events.types())
}

func TestFailedIndexWriteIsRolledBack(t *testing.T) {
	f := newFixture(t)
	a := f.addEndpoint(t, "A")

	f.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.store.EXPECT().SaveHeaders(gomock.Any(), gomock.Len(1)).Return(nil)

	require.True(t, f.manager.StartTracking())
	a.Record(temperature(20, start))
	f.advance(time.Minute)
	_, err := f.manager.StopTracking(context.Background())
	require.NoError(t, err)

	f.store.EXPECT().SaveHeaders(gomock.Any(), gomock.Len(2)).Return(errors.New("index locked"))

	f.advance(time.Minute)
	require.True(t, f.manager.StartTracking())
	a.Record(temperature(25, f.clock()))
	_, err = f.manager.StopTracking(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, f.manager.HeaderCount())
}

func TestCancelDiscardsWithoutPersisting(t *testing.T) {
	f := newFixture(t)
	a := f.addEndpoint(t, "A")

	assert.False(t, f.manager.CancelTracking())

	require.True(t, f.manager.StartTracking())
	a.Record(temperature(20, start))

	assert.True(t, f.manager.CancelTracking())
	assert.False(t, f.manager.IsRecording())
	assert.False(t, a.Tracking())
	assert.Zero(t, f.manager.HeaderCount())
	assert.Equal(t, []models.RecordingEventType{models.RecordingStarted, models.RecordingCancelled}, f.events.types())
}

func TestRegistryMembershipDrivesTracking(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.manager.StartTracking())

	b := f.addEndpoint(t, "B")
	require.Eventually(t, b.Tracking, 2*time.Second, 5*time.Millisecond)

	b.Record(temperature(18, start), temperature(19, start.Add(time.Second)))

	require.True(t, f.registry.RemoveSynthetic("B"))
	require.Eventually(t, func() bool { return !b.Tracking() }, 2*time.Second, 5*time.Millisecond)

	active := f.manager.Active()
	assert.Equal(t, []string{"B"}, active.EndpointIDs())
	assert.Equal(t, 2, active.Readings(), "timelines of removed endpoints remain")
}

func TestClosedSessionIgnoresLateAdded(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.manager.StartTracking())
	sess := f.manager.Active()
	sess.close()

	late := endpoint.NewSynthetic("late", "gauge", "", nil, logger.NewTestLogger(), f.clock)
	sess.OnEvent(registry.Event{
		EndpointEvent: models.EndpointEvent{EndpointID: "late", Type: models.EventAdded},
		Endpoint:      late,
	})

	assert.False(t, late.Tracking())
	assert.Empty(t, sess.EndpointIDs())
	assert.Nil(t, sess.Tracking("late"))
}

func TestStopLeavesNoEndpointTrackingUnderConcurrentAdded(t *testing.T) {
	f := newFixture(t)

	eps := make([]*endpoint.Endpoint, 0, 8)
	for _, id := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		eps = append(eps, f.addEndpoint(t, id))
	}

	for round := 0; round < 20; round++ {
		require.True(t, f.manager.StartTracking())
		sess := f.manager.Active()

		var wg sync.WaitGroup
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 50; i++ {
				for _, ep := range eps {
					sess.OnEvent(registry.Event{
						EndpointEvent: models.EndpointEvent{EndpointID: ep.ID(), Type: models.EventAdded},
						Endpoint:      ep,
					})
				}
			}
		}()

		assert.True(t, f.manager.CancelTracking())
		wg.Wait()

		for _, ep := range eps {
			assert.False(t, ep.Tracking(), "round %d: %s still tracking", round, ep.ID())
		}
	}
}

func TestCompactionAppliesToRecordedSamples(t *testing.T) {
	f := newFixture(t)
	a := f.addEndpoint(t, "A")

	require.True(t, f.manager.StartTracking())

	a.Record(temperature(20.0, start))
	a.Record(temperature(20.01, start.Add(time.Second)))
	a.Record(temperature(20.01, start.Add(6*time.Minute)))
	a.Record(models.IntegerSample(models.KeyBattery, 90, start))
	a.Record(models.IntegerSample(models.KeyBattery, 90, start.Add(time.Minute)))

	tracking := f.manager.Active().Tracking("A")
	assert.Equal(t, []string{models.KeyTemperature, models.KeyBattery}, tracking.Keys())

	data, ok, err := tracking.Timeline(models.KeyTemperature)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, data.Timestamps, 2)

	data, ok, err = tracking.Timeline(models.KeyBattery)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, data.Timestamps, 1)

	_, ok, _ = tracking.Timeline(models.KeyHumidity)
	assert.False(t, ok)
}

func TestInitLoadsSortedHeaders(t *testing.T) {
	f := newFixture(t)

	later := models.RecordingHeader{Begin: start.Add(time.Hour), End: start.Add(2 * time.Hour), Readings: 4}
	earlier := models.RecordingHeader{Begin: start, End: start.Add(time.Minute), Readings: 9}

	f.store.EXPECT().LoadHeaders(gomock.Any()).Return([]models.RecordingHeader{later, earlier}, nil)

	require.NoError(t, f.manager.Init(context.Background()))
	assert.Equal(t, []models.RecordingHeader{earlier, later}, f.manager.Headers())
}

func TestInitFailureLeavesEmptyIndex(t *testing.T) {
	f := newFixture(t)

	f.store.EXPECT().LoadHeaders(gomock.Any()).Return(nil, errors.New("corrupt index"))

	require.Error(t, f.manager.Init(context.Background()))
	assert.Zero(t, f.manager.HeaderCount())
}

func TestGetLoadsOnceAndCaches(t *testing.T) {
	f := newFixture(t)

	header := models.RecordingHeader{Begin: start, End: start.Add(time.Minute), Readings: 2}
	rec := models.Recording{
		Begin: start,
		End:   start.Add(time.Minute),
		Trackings: map[string]map[string]models.TimelineData{
			"A": {
				models.KeyTemperature: {
					Kind:       string(timeline.KindNumber),
					Timestamps: []int64{start.UnixMilli(), start.Add(time.Second).UnixMilli()},
					Values:     json.RawMessage(`[20.5,21.5]`),
				},
			},
		},
	}

	f.store.EXPECT().LoadHeaders(gomock.Any()).Return([]models.RecordingHeader{header}, nil)
	f.store.EXPECT().Load(gomock.Any(), start).Return(rec, nil).Times(1)

	require.NoError(t, f.manager.Init(context.Background()))

	for i := 0; i < 2; i++ {
		sess, err := f.manager.Get(context.Background(), start)
		require.NoError(t, err)
		assert.Equal(t, 2, sess.Readings())
		assert.Equal(t, start.Add(time.Minute), sess.End())
	}

	_, err := f.manager.Get(context.Background(), start.Add(time.Hour))
	require.ErrorIs(t, err, ErrUnknownRecording)
}

func TestGetSurfacesMalformedRecording(t *testing.T) {
	f := newFixture(t)

	f.store.EXPECT().LoadHeaders(gomock.Any()).Return([]models.RecordingHeader{{Begin: start, End: start, Readings: 1}}, nil)
	f.store.EXPECT().Load(gomock.Any(), start).Return(models.Recording{
		Begin: start,
		Trackings: map[string]map[string]models.TimelineData{
			"A": {models.KeyTemperature: {Kind: "number", Timestamps: []int64{1, 2}, Values: json.RawMessage(`[1]`)}},
		},
	}, nil)

	require.NoError(t, f.manager.Init(context.Background()))

	_, err := f.manager.Get(context.Background(), start)
	require.ErrorIs(t, err, timeline.ErrMalformedSeries)
}

func TestGetReturnsActiveSession(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.manager.StartTracking())

	sess, err := f.manager.Get(context.Background(), start)
	require.NoError(t, err)
	assert.Same(t, f.manager.Active(), sess)
}

func TestRecordingListenersAreDeduplicated(t *testing.T) {
	f := newFixture(t)

	f.manager.AddListener(f.events)
	require.True(t, f.manager.StartTracking())
	assert.Len(t, f.events.types(), 1)

	f.manager.RemoveListener(f.events)
	assert.True(t, f.manager.CancelTracking())
	assert.Len(t, f.events.types(), 1)
}
