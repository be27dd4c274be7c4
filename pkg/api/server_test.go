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

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint/behaviors"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/recording"
	"github.com/carverauto/beaconradar/pkg/recordstore"
	"github.com/carverauto/beaconradar/pkg/registry"
	"github.com/carverauto/beaconradar/pkg/timeline"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	registry *registry.Registry
	manager  *recording.Manager
	position *behaviors.Positioning
	server   *Server
	http     *httptest.Server
}

func newFixture(t *testing.T, cfg models.APIConfig) *fixture {
	t.Helper()

	log := logger.NewTestLogger()

	reg := registry.New(nil, models.RegistryConfig{}, log)
	t.Cleanup(reg.Close)

	pos := behaviors.NewPositioning(reg, log, nil)
	require.NoError(t, reg.AddSynthetic(pos.Endpoint))

	store, err := recordstore.NewFileStore(t.TempDir(), log)
	require.NoError(t, err)

	policies, err := timeline.PoliciesFromConfig(models.DefaultCompactors())
	require.NoError(t, err)

	mgr := recording.NewManager(reg, store, policies, log)
	require.NoError(t, mgr.Init(context.Background()))

	srv := NewServer(cfg, log,
		WithEndpoints(reg),
		WithRecorder(mgr),
		WithServiceName("beacon-tracker-test"),
		WithConfig([]byte(`{"storage":{"backend":"file","dsn":"[redacted]"}}`)))

	reg.AddListener(srv.Hub())
	mgr.AddListener(srv.Hub())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})

	return &fixture{registry: reg, manager: mgr, position: pos, server: srv, http: ts}
}

func (f *fixture) do(t *testing.T, method, path string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, f.http.URL+path, http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

func TestListEndpoints(t *testing.T) {
	f := newFixture(t, models.APIConfig{})

	resp := f.do(t, http.MethodGet, "/api/endpoints")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snaps := decode[[]models.EndpointSnapshot](t, resp)
	require.Len(t, snaps, 1)
	assert.Equal(t, behaviors.PositioningID, snaps[0].ID)
	assert.True(t, snaps[0].Synthetic)

	resp = f.do(t, http.MethodGet, "/api/endpoints/"+behaviors.PositioningID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Positioning", decode[models.EndpointSnapshot](t, resp).Title)

	resp = f.do(t, http.MethodGet, "/api/endpoints/AA:BB:CC:DD:EE:FF")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, decode[ErrorResponse](t, resp).Status)
}

func TestRecordingLifecycle(t *testing.T) {
	f := newFixture(t, models.APIConfig{})

	resp := f.do(t, http.MethodPost, "/api/recordings/start")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	begin := decode[models.RecordingHeader](t, resp).Begin
	require.False(t, begin.IsZero())

	resp = f.do(t, http.MethodPost, "/api/recordings/start")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	f.position.Report(models.Location{Lat: 52.1, Lng: 4.3, Acc: 5}, time.Now())

	resp = f.do(t, http.MethodGet, "/api/recordings")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[RecordingsResponse](t, resp)
	require.NotNil(t, list.Active)
	assert.Equal(t, 1, list.Active.Readings)
	assert.Empty(t, list.Recordings)

	resp = f.do(t, http.MethodPost, "/api/recordings/stop")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/recordings/stop")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/recordings/cancel")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	list = decode[RecordingsResponse](t, f.do(t, http.MethodGet, "/api/recordings"))
	assert.Nil(t, list.Active)
	require.Len(t, list.Recordings, 1)
	assert.True(t, begin.Equal(list.Recordings[0].Begin))

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/recordings/%d", begin.UnixMilli()))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := decode[models.Recording](t, resp)
	require.Contains(t, rec.Trackings, behaviors.PositioningID)
	assert.Len(t, rec.Trackings[behaviors.PositioningID][models.KeyLocation].Timestamps, 1)

	resp = f.do(t, http.MethodGet, "/api/recordings/"+begin.Format(time.RFC3339Nano))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCancelRecording(t *testing.T) {
	f := newFixture(t, models.APIConfig{})

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/recordings/start").StatusCode)
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/recordings/cancel").StatusCode)

	list := decode[RecordingsResponse](t, f.do(t, http.MethodGet, "/api/recordings"))
	assert.Nil(t, list.Active)
	assert.Empty(t, list.Recordings)
}

func TestGetRecordingErrors(t *testing.T) {
	f := newFixture(t, models.APIConfig{})

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/recordings/yesterday").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/recordings/1777887000125").StatusCode)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, models.APIConfig{})

	resp := f.do(t, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decode[StatusResponse](t, resp)
	assert.Equal(t, "beacon-tracker-test", status.Service)
	assert.Equal(t, 1, status.Endpoints)
	assert.Nil(t, status.Recording)
	assert.Contains(t, string(status.Config), "[redacted]")
	assert.NotEmpty(t, status.Build.GoVersion)
}

func TestUnconfiguredComponents(t *testing.T) {
	srv := NewServer(models.APIConfig{}, logger.NewTestLogger())

	for _, path := range []string{"/api/endpoints", "/api/recordings"} {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", http.NoBody))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	f := newFixture(t, models.APIConfig{APIKey: "s3cret"})

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/endpoints").StatusCode)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health").StatusCode)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, f.http.URL+"/api/endpoints", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "s3cret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func dialEvents(t *testing.T, f *fixture, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/api/events"

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)

	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// nextMessage reads until a message of type typ arrives.
func nextMessage(t *testing.T, conn *websocket.Conn, typ string, match func(StreamMessage) bool) StreamMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	for {
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))

		if msg.Type == typ && (match == nil || match(msg)) {
			return msg
		}
	}
}

func TestEventStream(t *testing.T) {
	f := newFixture(t, models.APIConfig{})
	conn := dialEvents(t, f, nil)

	snap := nextMessage(t, conn, MessageSnapshot, nil)
	require.Len(t, snap.Endpoints, 1)
	assert.Equal(t, behaviors.PositioningID, snap.Endpoints[0].ID)
	assert.Equal(t, 1, f.server.Hub().ClientCount())

	f.position.Report(models.Location{Lat: 1, Lng: 2}, time.Now())

	msg := nextMessage(t, conn, MessageEndpoint, func(m StreamMessage) bool {
		return m.Event.Type == models.EventUpdated
	})
	require.NotNil(t, msg.Endpoint)
	assert.Equal(t, behaviors.PositioningID, msg.Event.EndpointID)
	assert.Contains(t, msg.Endpoint.Readings, models.KeyLocation)

	require.True(t, f.manager.StartTracking())

	msg = nextMessage(t, conn, MessageRecording, nil)
	assert.Equal(t, models.RecordingStarted, msg.Recording.Type)
}

func TestEventStreamRejectsForeignOrigin(t *testing.T) {
	f := newFixture(t, models.APIConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/api/events"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubDropsClientsOnClose(t *testing.T) {
	f := newFixture(t, models.APIConfig{})
	conn := dialEvents(t, f, nil)

	nextMessage(t, conn, MessageSnapshot, nil)
	f.server.Hub().Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
			break
		}
	}

	assert.Equal(t, 0, f.server.Hub().ClientCount())
}
