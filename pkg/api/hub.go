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
	"net/http"
	"sync"
	"time"

	srHttp "github.com/carverauto/beaconradar/pkg/http"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/recording"
	"github.com/carverauto/beaconradar/pkg/registry"
	"github.com/gorilla/websocket"
)

const (
	clientBuffer   = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
)

// Hub fans registry and recording events out to websocket clients. It
// implements registry.Listener and recording.Listener. A client that falls
// more than its buffer behind is disconnected.
type Hub struct {
	snapshot func() []models.EndpointSnapshot
	logger   logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	addr string
	send chan StreamMessage
}

// NewHub creates a hub. snapshot, if not nil, provides the endpoint list
// sent to each client when it connects.
func NewHub(snapshot func() []models.EndpointSnapshot, log logger.Logger) *Hub {
	return &Hub{
		snapshot: snapshot,
		logger:   log,
		clients:  make(map[*client]struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// OnEvent implements registry.Listener.
func (h *Hub) OnEvent(e registry.Event) {
	event := e.EndpointEvent
	msg := StreamMessage{Type: MessageEndpoint, Event: &event, Timestamp: e.Timestamp}

	if e.Endpoint != nil {
		snap := e.Endpoint.Snapshot()
		msg.Endpoint = &snap
	}

	h.broadcast(msg)
}

// OnRecordingEvent implements recording.Listener.
func (h *Hub) OnRecordingEvent(e models.RecordingEvent) {
	h.broadcast(StreamMessage{Type: MessageRecording, Recording: &e, Timestamp: e.Timestamp})
}

func (h *Hub) broadcast(msg StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Str("client_addr", c.addr).Msg("Stream client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.clients[c] = struct{}{}

	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for c := range h.clients {
		h.removeLocked(c)
	}
}

// ServeWS upgrades the request and streams events to it until the client
// goes away or the hub is closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, allowedOrigins []string) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || srHttp.OriginAllowed(origin, allowedOrigins)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Failed to upgrade to WebSocket")

		return
	}

	c := &client{conn: conn, addr: r.RemoteAddr, send: make(chan StreamMessage, clientBuffer)}

	if h.snapshot != nil {
		c.send <- StreamMessage{Type: MessageSnapshot, Endpoints: h.snapshot(), Timestamp: time.Now()}
	}

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()

		return
	}

	h.logger.Info().Str("client_addr", c.addr).Msg("Stream client connected")

	go h.readPump(c)

	h.writePump(c)
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("client_addr", c.addr).Msg("Stream client read failed")
			}

			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		h.unregister(c)
		_ = c.conn.Close()

		h.logger.Info().Str("client_addr", c.addr).Msg("Stream client disconnected")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))

				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug().Err(err).Str("client_addr", c.addr).Msg("Stream write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var (
	_ registry.Listener  = (*Hub)(nil)
	_ recording.Listener = (*Hub)(nil)
)
