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

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testEndpoint = "C4:7C:8D:6A:11:02"

type eventLog struct {
	mu     sync.Mutex
	events []models.EndpointEvent
}

func (l *eventLog) Notify(e models.EndpointEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t models.EventType) []models.EndpointEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.EndpointEvent

	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}

	return out
}

func (l *eventLog) progress() []int {
	var out []int

	for _, e := range l.ofType(models.EventProgress) {
		out = append(out, *e.Progress)
	}

	return out
}

type fixture struct {
	ctrl      *gomock.Controller
	connector *MockConnector
	events    *eventLog
	session   *Session
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		ctrl:      ctrl,
		connector: NewMockConnector(ctrl),
		events:    &eventLog{},
	}
	f.session = New(testEndpoint, f.connector, f.events, logger.NewTestLogger(), opts...)

	return f
}

// open connects the session and returns the link with the handler the
// session registered for it.
func (f *fixture) open(t *testing.T) (*MockLink, Handler) {
	t.Helper()

	link := NewMockLink(f.ctrl)

	var handler Handler

	f.connector.EXPECT().
		Connect(gomock.Any(), testEndpoint, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, h Handler) (Link, error) {
			handler = h
			return link, nil
		})

	require.NoError(t, f.session.Connect(context.Background()))
	require.NotNil(t, handler)

	return link, handler
}

// connect opens a link and drives it to CONNECTED, waiting for discovery.
func (f *fixture) connect(t *testing.T) (*MockLink, Handler) {
	t.Helper()

	link, handler := f.open(t)

	discovered := make(chan struct{})
	link.EXPECT().DiscoverServices().DoAndReturn(func() error {
		close(discovered)
		return nil
	})

	handler.OnConnectionStateChanged(models.StatusSuccess, models.StateConnected)

	select {
	case <-discovered:
	case <-time.After(time.Second):
		t.Fatal("service discovery was not triggered")
	}

	require.Equal(t, models.StateConnected, f.session.State())

	return link, handler
}

func TestConnectTriggersDiscoveryAndNotifies(t *testing.T) {
	f := newFixture(t)

	f.connect(t)

	assert.Len(t, f.events.ofType(models.EventConnected), 1)
}

func TestConnectedDeliveredBeforeConnectReturns(t *testing.T) {
	f := newFixture(t)
	link := NewMockLink(f.ctrl)

	discovered := make(chan struct{})
	link.EXPECT().DiscoverServices().DoAndReturn(func() error {
		close(discovered)
		return nil
	})

	f.connector.EXPECT().
		Connect(gomock.Any(), testEndpoint, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, h Handler) (Link, error) {
			h.OnConnectionStateChanged(models.StatusSuccess, models.StateConnected)
			return link, nil
		})

	require.NoError(t, f.session.Connect(context.Background()))

	select {
	case <-discovered:
	case <-time.After(time.Second):
		t.Fatal("service discovery was not triggered")
	}
}

func TestConnectIgnoredUnlessDisconnected(t *testing.T) {
	f := newFixture(t)

	f.open(t)
	assert.Equal(t, models.StateConnecting, f.session.State())

	// No second Connect expectation: the connector must not be called again.
	require.NoError(t, f.session.Connect(context.Background()))
}

func TestConnectFailureIsReportedAsDisconnect(t *testing.T) {
	f := newFixture(t)

	listener := NewMockHandler(f.ctrl)
	listener.EXPECT().OnConnectionStateChanged(models.StatusFailure, models.StateDisconnected)
	f.session.AddListener(listener)

	f.connector.EXPECT().
		Connect(gomock.Any(), testEndpoint, gomock.Any()).
		Return(nil, errors.New("radio off"))

	err := f.session.Connect(context.Background())
	require.Error(t, err)

	assert.Equal(t, models.StateDisconnected, f.session.State())

	disconnects := f.events.ofType(models.EventDisconnected)
	require.Len(t, disconnects, 1)
	assert.Equal(t, "Operation failed", disconnects[0].Message)
}

func TestErrorLatchSuppressesRepeatedDisconnect(t *testing.T) {
	f := newFixture(t)

	listener := NewMockHandler(f.ctrl)
	listener.EXPECT().OnConnectionStateChanged(models.StatusLinkError, models.StateDisconnected).Times(2)
	listener.EXPECT().OnConnectionStateChanged(models.StatusInsufficientAuthentication, models.StateDisconnected)
	f.session.AddListener(listener)

	link, handler := f.open(t)
	link.EXPECT().Close().Return(nil)
	handler.OnConnectionStateChanged(models.StatusLinkError, models.StateDisconnected)

	require.Len(t, f.events.ofType(models.EventDisconnected), 1)
	assert.Equal(t, "Link error", f.events.ofType(models.EventDisconnected)[0].Message)
	assert.Equal(t, models.StateDisconnected, f.session.State())

	// Same error on the next attempt: link still closed, no second notification.
	link, handler = f.open(t)
	link.EXPECT().Close().Return(nil)
	handler.OnConnectionStateChanged(models.StatusLinkError, models.StateDisconnected)

	assert.Len(t, f.events.ofType(models.EventDisconnected), 1)

	// A different error is reported again.
	link, handler = f.open(t)
	link.EXPECT().Close().Return(nil)
	handler.OnConnectionStateChanged(models.StatusInsufficientAuthentication, models.StateDisconnected)

	assert.Len(t, f.events.ofType(models.EventDisconnected), 2)
}

func TestLatchClearedBySuccessfulEvent(t *testing.T) {
	f := newFixture(t)

	link, handler := f.open(t)
	link.EXPECT().Close().Return(nil)
	handler.OnConnectionStateChanged(models.StatusLinkError, models.StateDisconnected)

	link, _ = f.connect(t)
	link.EXPECT().Close().Return(nil)
	f.session.Disconnect()

	link, handler = f.open(t)
	link.EXPECT().Close().Return(nil)
	handler.OnConnectionStateChanged(models.StatusLinkError, models.StateDisconnected)

	errs := 0

	for _, e := range f.events.ofType(models.EventDisconnected) {
		if e.Message == "Link error" {
			errs++
		}
	}

	assert.Equal(t, 2, errs)
}

func TestDisconnectFansOutAndDropsStaleEvents(t *testing.T) {
	f := newFixture(t)

	listener := NewMockHandler(f.ctrl)
	f.session.AddListener(listener)
	f.session.AddListener(listener)

	listener.EXPECT().OnConnectionStateChanged(models.StatusSuccess, models.StateConnected)
	link, handler := f.connect(t)

	link.EXPECT().Close().Return(nil)
	listener.EXPECT().OnConnectionStateChanged(models.StatusSuccess, models.StateDisconnected)

	f.session.Disconnect()
	assert.Equal(t, models.StateDisconnected, f.session.State())
	assert.Len(t, f.events.ofType(models.EventDisconnected), 1)

	// Late events from the closed link never reach listeners.
	handler.OnAttributeChanged("th", []byte{1, 2, 3, 4})
	handler.OnConnectionStateChanged(models.StatusSuccess, models.StateDisconnected)

	// Disconnecting twice is a no-op.
	f.session.Disconnect()
	assert.Len(t, f.events.ofType(models.EventDisconnected), 1)
}

func TestDisconnectWhileConnectingClosesLateLink(t *testing.T) {
	f := newFixture(t)
	link := NewMockLink(f.ctrl)

	f.connector.EXPECT().
		Connect(gomock.Any(), testEndpoint, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ Handler) (Link, error) {
			f.session.Disconnect()
			return link, nil
		})
	link.EXPECT().Close().Return(nil)

	require.NoError(t, f.session.Connect(context.Background()))
	assert.Equal(t, models.StateDisconnected, f.session.State())
}

func TestRemoveListener(t *testing.T) {
	f := newFixture(t)

	listener := NewMockHandler(f.ctrl)
	f.session.AddListener(listener)
	f.session.RemoveListener(listener)

	f.connect(t)
}

func TestErrorStatusesRaiseErrorEvents(t *testing.T) {
	f := newFixture(t)

	listener := NewMockHandler(f.ctrl)
	listener.EXPECT().OnConnectionStateChanged(gomock.Any(), gomock.Any()).AnyTimes()
	listener.EXPECT().OnServicesDiscovered(models.StatusFailure)
	listener.EXPECT().OnAttributeWrite("cfg", models.StatusWriteNotPermitted)
	listener.EXPECT().OnAttributeRead("th", nil, models.StatusReadNotPermitted)
	f.session.AddListener(listener)

	_, handler := f.connect(t)

	handler.OnServicesDiscovered(models.StatusFailure)
	handler.OnAttributeWrite("cfg", models.StatusWriteNotPermitted)
	handler.OnAttributeRead("th", nil, models.StatusReadNotPermitted)

	errs := f.events.ofType(models.EventError)
	require.Len(t, errs, 3)
	assert.Equal(t, "Operation failed", errs[0].Message)
	assert.Equal(t, "Write not permitted", errs[1].Message)
	assert.Equal(t, "Read not permitted", errs[2].Message)
}

func TestSingleOperationsRequireConnection(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.session.ReadAttribute("th"), ErrNotConnected)
	require.ErrorIs(t, f.session.WriteAttribute("th", []byte{1}), ErrNotConnected)
	require.ErrorIs(t, f.session.SetNotify("th", true), ErrNotConnected)

	link, _ := f.connect(t)
	link.EXPECT().SetNotify("th", true).Return(nil)
	link.EXPECT().ReadAttribute("th").Return(nil)
	link.EXPECT().WriteAttribute("th", []byte{1}).Return(nil)

	require.NoError(t, f.session.SetNotify("th", true))
	require.NoError(t, f.session.ReadAttribute("th"))
	require.NoError(t, f.session.WriteAttribute("th", []byte{1}))
}
