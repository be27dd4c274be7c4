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

// Package session owns the logical link to one endpoint. It consumes raw
// transport events, keeps connection bookkeeping, fans events out to
// registered listeners and runs the sequential read-all protocol.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
)

// Option configures a Session.
type Option func(*Session)

// WithReadTimeout sets the read-all deadline and wake-up period.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the clock used for event timestamps and timeouts.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the connection session of a single endpoint. Each session has
// its own lock; sessions of different endpoints never contend.
type Session struct {
	endpointID string
	connector  Connector
	notifier   Notifier
	logger     logger.Logger
	timeout    time.Duration
	now        func() time.Time

	mu    sync.Mutex
	state models.ConnectionState
	link  Link
	// gen identifies the current link; events carrying an older generation
	// come from a link that was already closed and are dropped.
	gen         uint64
	discoverDue bool
	latched     bool
	lastErr     models.LinkStatus
	listeners   []Handler
	readOp      *ReadOperation
	progress    int
}

// New creates a disconnected session for endpointID.
func New(endpointID string, connector Connector, notifier Notifier, log logger.Logger, opts ...Option) *Session {
	s := &Session{
		endpointID: endpointID,
		connector:  connector,
		notifier:   notifier,
		logger: logger.New(log.With().
			Str("component", "session").
			Str("endpoint_id", endpointID).
			Logger()),
		timeout:  models.DefaultReadTimeout,
		now:      time.Now,
		state:    models.StateDisconnected,
		progress: models.ProgressNone,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

func (s *Session) EndpointID() string { return s.endpointID }

// State returns the current connection state.
func (s *Session) State() models.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Progress returns the last read-all progress value.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.progress
}

// Services returns the services discovered on the current link.
func (s *Session) Services() []models.Service {
	s.mu.Lock()
	link := s.link
	s.mu.Unlock()

	if link == nil {
		return nil
	}

	return link.Services()
}

// AddListener registers h for every transport event. Adding a listener that
// is already registered has no effect. Listeners may be invoked from
// different goroutines and must not block.
func (s *Session) AddListener(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.listeners {
		if l == h {
			return
		}
	}

	s.listeners = append(s.listeners, h)
}

func (s *Session) RemoveListener(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.listeners {
		if l == h {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Connect opens a link. It only acts from DISCONNECTED; in any other state it
// logs and returns nil.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != models.StateDisconnected {
		state := s.state
		s.mu.Unlock()

		s.logger.Warn().Str("state", state.String()).Msg("Ignoring connect request, session is not disconnected")

		return nil
	}

	s.state = models.StateConnecting
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	link, err := s.connector.Connect(ctx, s.endpointID, &linkHandler{s: s, gen: gen})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to open link")
		s.onStateChanged(gen, models.StatusFailure, models.StateDisconnected)

		return fmt.Errorf("connect %s: %w", s.endpointID, err)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()

		s.logger.Debug().Msg("Link opened after disconnect, closing it")
		s.closeLink(link)

		return nil
	}

	s.link = link
	discover := s.discoverDue
	s.discoverDue = false
	s.mu.Unlock()

	if discover {
		go s.discover(gen, link)
	}

	return nil
}

// Disconnect closes the link and moves to DISCONNECTED without waiting for
// the transport to acknowledge. Listeners observe a DISCONNECTED transition.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == models.StateDisconnected && s.link == nil {
		s.mu.Unlock()
		return
	}

	link := s.detachLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.closeLink(link)
	s.notify(models.EventDisconnected, "", nil)

	for _, l := range listeners {
		l.OnConnectionStateChanged(models.StatusSuccess, models.StateDisconnected)
	}
}

// ReadAttribute issues a single read on the current link.
func (s *Session) ReadAttribute(attr string) error {
	link, err := s.currentLink()
	if err != nil {
		return err
	}

	return link.ReadAttribute(attr)
}

// WriteAttribute issues a single write on the current link.
func (s *Session) WriteAttribute(attr string, value []byte) error {
	link, err := s.currentLink()
	if err != nil {
		return err
	}

	return link.WriteAttribute(attr, value)
}

// SetNotify enables or disables push notifications for attr.
func (s *Session) SetNotify(attr string, enabled bool) error {
	link, err := s.currentLink()
	if err != nil {
		return err
	}

	return link.SetNotify(attr, enabled)
}

func (s *Session) currentLink() (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.StateConnected || s.link == nil {
		return nil, ErrNotConnected
	}

	return s.link, nil
}

// detachLocked drops the current link and invalidates its generation.
func (s *Session) detachLocked() Link {
	link := s.link
	s.link = nil
	s.state = models.StateDisconnected
	s.discoverDue = false
	s.gen++

	if s.readOp != nil {
		s.readOp.cancel()
	}

	return link
}

func (s *Session) listenersLocked() []Handler {
	if len(s.listeners) == 0 {
		return nil
	}

	out := make([]Handler, len(s.listeners))
	copy(out, s.listeners)

	return out
}

func (s *Session) closeLink(link Link) {
	if link == nil {
		return
	}

	if err := link.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Error closing link")
	}
}

func (s *Session) discover(gen uint64, link Link) {
	if err := link.DiscoverServices(); err != nil {
		s.logger.Warn().Err(err).Msg("Service discovery could not start")
		s.onStateChanged(gen, models.StatusFailure, models.StateDisconnected)
	}
}

func (s *Session) notify(eventType models.EventType, message string, progress *int) {
	if s.notifier == nil {
		return
	}

	s.notifier.Notify(models.EndpointEvent{
		EndpointID: s.endpointID,
		Type:       eventType,
		Message:    message,
		Progress:   progress,
		Timestamp:  s.now(),
	})
}

// staleLocked reports whether gen no longer identifies the current link. Must be
// called with mu held.
func (s *Session) staleLocked(gen uint64, event string) bool {
	if gen == s.gen {
		return false
	}

	s.logger.Debug().Str("event", event).Msg("Dropping event from closed link")

	return true
}

func (s *Session) onStateChanged(gen uint64, status models.LinkStatus, state models.ConnectionState) {
	s.mu.Lock()
	if s.staleLocked(gen, "connection_state") {
		s.mu.Unlock()
		return
	}

	var (
		closing   Link
		notice    models.EventType
		message   string
		discover  bool
		discovery Link
	)

	switch {
	case !status.IsSuccess():
		repeated := s.latched && s.lastErr == status
		s.latched, s.lastErr = true, status
		closing = s.detachLocked()

		if repeated {
			s.logger.Debug().Int("status", int(status)).Msg("Suppressing repeated link error")
		} else {
			notice, message = models.EventDisconnected, status.Message()
		}
	case state == models.StateConnected:
		s.latched = false
		s.state = models.StateConnected
		notice = models.EventConnected

		if s.link != nil {
			discover, discovery = true, s.link
		} else {
			s.discoverDue = true
		}
	case state == models.StateDisconnected:
		s.latched = false
		closing = s.detachLocked()
		notice = models.EventDisconnected
	default:
		s.latched = false
		s.state = state
	}

	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.closeLink(closing)

	if notice != "" {
		s.notify(notice, message, nil)
	}

	if discover {
		go s.discover(gen, discovery)
	}

	for _, l := range listeners {
		l.OnConnectionStateChanged(status, state)
	}
}

func (s *Session) onServicesDiscovered(gen uint64, status models.LinkStatus) {
	s.mu.Lock()
	if s.staleLocked(gen, "services_discovered") {
		s.mu.Unlock()
		return
	}

	s.latched = s.latched && !status.IsSuccess()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	if !status.IsSuccess() {
		s.notify(models.EventError, status.Message(), nil)
	}

	for _, l := range listeners {
		l.OnServicesDiscovered(status)
	}
}

func (s *Session) onAttributeRead(gen uint64, attr string, value []byte, status models.LinkStatus) {
	s.mu.Lock()
	if s.staleLocked(gen, "attribute_read") {
		s.mu.Unlock()
		return
	}

	s.latched = s.latched && !status.IsSuccess()

	if op := s.readOp; op != nil && op.waiting == attr {
		op.waiting = ""
		select {
		case op.arrived <- status:
		default:
		}
	}

	listeners := s.listenersLocked()
	s.mu.Unlock()

	if !status.IsSuccess() {
		s.notify(models.EventError, status.Message(), nil)
	}

	for _, l := range listeners {
		l.OnAttributeRead(attr, value, status)
	}
}

func (s *Session) onAttributeWrite(gen uint64, attr string, status models.LinkStatus) {
	s.mu.Lock()
	if s.staleLocked(gen, "attribute_write") {
		s.mu.Unlock()
		return
	}

	s.latched = s.latched && !status.IsSuccess()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	if !status.IsSuccess() {
		s.notify(models.EventError, status.Message(), nil)
	}

	for _, l := range listeners {
		l.OnAttributeWrite(attr, status)
	}
}

func (s *Session) onAttributeChanged(gen uint64, attr string, value []byte) {
	s.mu.Lock()
	if s.staleLocked(gen, "attribute_changed") {
		s.mu.Unlock()
		return
	}

	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnAttributeChanged(attr, value)
	}
}

// linkHandler binds transport callbacks to the link generation they were
// opened for.
type linkHandler struct {
	s   *Session
	gen uint64
}

func (h *linkHandler) OnConnectionStateChanged(status models.LinkStatus, state models.ConnectionState) {
	h.s.onStateChanged(h.gen, status, state)
}

func (h *linkHandler) OnServicesDiscovered(status models.LinkStatus) {
	h.s.onServicesDiscovered(h.gen, status)
}

func (h *linkHandler) OnAttributeRead(attr string, value []byte, status models.LinkStatus) {
	h.s.onAttributeRead(h.gen, attr, value, status)
}

func (h *linkHandler) OnAttributeWrite(attr string, status models.LinkStatus) {
	h.s.onAttributeWrite(h.gen, attr, status)
}

func (h *linkHandler) OnAttributeChanged(attr string, value []byte) {
	h.s.onAttributeChanged(h.gen, attr, value)
}
