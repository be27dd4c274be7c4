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

// Package recording aggregates endpoint samples into recording sessions and
// persists the sealed sessions with a header index.
package recording

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/timeline"
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used for begin and end timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager owns the active recording session, if any, and the index of
// persisted recordings.
type Manager struct {
	dir      Directory
	store    Store
	policies *timeline.Policies
	logger   logger.Logger
	now      func() time.Time

	// persistMu serializes header index updates.
	persistMu sync.Mutex

	mu        sync.Mutex
	active    *Session
	headers   []models.RecordingHeader
	cache     map[int64]*Session
	listeners []Listener
}

func NewManager(dir Directory, store Store, policies *timeline.Policies, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		dir:      dir,
		store:    store,
		policies: policies,
		logger:   logger.Component(log, "recording"),
		now:      time.Now,
		cache:    make(map[int64]*Session),
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

// Init loads the header index. On failure the index is left empty and the
// error is returned.
func (m *Manager) Init(ctx context.Context) error {
	headers, err := m.store.LoadHeaders(ctx)
	if err != nil {
		return fmt.Errorf("load recording headers: %w", err)
	}

	slices.SortFunc(headers, func(a, b models.RecordingHeader) int { return a.Begin.Compare(b.Begin) })

	m.mu.Lock()
	m.headers = headers
	m.mu.Unlock()

	m.logger.Info().Int("recordings", len(headers)).Msg("Loaded recording index")

	return nil
}

// StartTracking begins a recording. It returns false if one is already
// active.
func (m *Manager) StartTracking() bool {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return false
	}

	sess := newSession(m.now().UTC().Truncate(time.Millisecond), m.policies)
	m.active = sess
	m.mu.Unlock()

	m.dir.AddListener(sess)

	for _, ep := range m.dir.Endpoints() {
		sess.bind(ep)
	}

	m.logger.Info().Time("begin", sess.Begin()).Msg("Recording started")
	m.fire(models.RecordingStarted, sess.Header(), "")

	return true
}

// detach ends the active session: it stops binding endpoints, the registry
// stops feeding it, every endpoint leaves tracking and the session is sealed.
// Closing first keeps a concurrent ADDED from rebinding an endpoint after
// the StopTracking pass.
func (m *Manager) detach() *Session {
	m.mu.Lock()
	sess := m.active
	m.active = nil
	m.mu.Unlock()

	if sess == nil {
		return nil
	}

	sess.close()
	m.dir.RemoveListener(sess)

	for _, ep := range m.dir.Endpoints() {
		ep.StopTracking()
	}

	sess.seal(m.now().UTC().Truncate(time.Millisecond))

	return sess
}

// StopTracking ends the active recording and persists it. It returns false
// if no recording was active. A recording without readings is discarded
// without touching the store. The header is added to the index only after
// both the recording and the updated index were written.
func (m *Manager) StopTracking(ctx context.Context) (bool, error) {
	sess := m.detach()
	if sess == nil {
		return false, nil
	}

	header := sess.Header()

	if header.Readings == 0 {
		m.logger.Info().Time("begin", header.Begin).Msg("Discarding empty recording")
		m.fire(models.RecordingDiscarded, header, "no readings")

		return true, nil
	}

	if err := m.persist(ctx, sess, header); err != nil {
		m.logger.Error().Err(err).Time("begin", header.Begin).Msg("Failed to persist recording")
		m.fire(models.RecordingFailed, header, err.Error())

		return true, err
	}

	m.logger.Info().
		Time("begin", header.Begin).
		Time("end", header.End).
		Int("readings", header.Readings).
		Msg("Recording persisted")
	m.fire(models.RecordingPersisted, header, "")

	return true, nil
}

func (m *Manager) persist(ctx context.Context, sess *Session, header models.RecordingHeader) error {
	rec, err := sess.Recording()
	if err != nil {
		return err
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if err := m.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save recording: %w", err)
	}

	m.mu.Lock()
	headers := insertHeader(slices.Clone(m.headers), header)
	m.mu.Unlock()

	if err := m.store.SaveHeaders(ctx, headers); err != nil {
		return fmt.Errorf("save recording index: %w", err)
	}

	m.mu.Lock()
	m.headers = headers
	m.cache[header.Begin.UnixMilli()] = sess
	m.mu.Unlock()

	return nil
}

func insertHeader(headers []models.RecordingHeader, h models.RecordingHeader) []models.RecordingHeader {
	i, found := slices.BinarySearchFunc(headers, h.Begin, func(x models.RecordingHeader, t time.Time) int {
		return x.Begin.Compare(t)
	})
	if found {
		headers[i] = h
		return headers
	}

	return slices.Insert(headers, i, h)
}

// CancelTracking ends the active recording without persisting it. It
// returns false if no recording was active.
func (m *Manager) CancelTracking() bool {
	sess := m.detach()
	if sess == nil {
		return false
	}

	m.logger.Info().Time("begin", sess.Begin()).Msg("Recording cancelled")
	m.fire(models.RecordingCancelled, sess.Header(), "")

	return true
}

func (m *Manager) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.active != nil
}

// Active returns the active session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.active
}

func (m *Manager) HeaderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.headers)
}

// Header returns the i-th header in begin order.
func (m *Manager) Header(i int) (models.RecordingHeader, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i < 0 || i >= len(m.headers) {
		return models.RecordingHeader{}, false
	}

	return m.headers[i], true
}

func (m *Manager) Headers() []models.RecordingHeader {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.headers)
}

// Get returns the recording that began at begin: the active session, a
// cached one, or one loaded from the store.
func (m *Manager) Get(ctx context.Context, begin time.Time) (*Session, error) {
	key := begin.UnixMilli()

	m.mu.Lock()
	if m.active != nil && m.active.Begin().UnixMilli() == key {
		sess := m.active
		m.mu.Unlock()

		return sess, nil
	}

	if sess, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return sess, nil
	}

	known := slices.ContainsFunc(m.headers, func(h models.RecordingHeader) bool { return h.Begin.UnixMilli() == key })
	m.mu.Unlock()

	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecording, begin.UTC().Format(time.RFC3339Nano))
	}

	rec, err := m.store.Load(ctx, begin)
	if err != nil {
		return nil, fmt.Errorf("load recording: %w", err)
	}

	sess, err := FromRecording(rec, m.policies)
	if err != nil {
		return nil, fmt.Errorf("load recording: %w", err)
	}

	m.mu.Lock()
	m.cache[key] = sess
	m.mu.Unlock()

	return sess, nil
}

// AddListener registers l. Registering a listener again replaces the
// previous registration.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = slices.DeleteFunc(m.listeners, func(x Listener) bool { return x == l })
	m.listeners = append(m.listeners, l)
}

func (m *Manager) RemoveListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = slices.DeleteFunc(m.listeners, func(x Listener) bool { return x == l })
}

func (m *Manager) fire(eventType models.RecordingEventType, header models.RecordingHeader, message string) {
	m.mu.Lock()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	event := models.RecordingEvent{
		Type:      eventType,
		Header:    header,
		Message:   message,
		Timestamp: m.now(),
	}

	for _, l := range listeners {
		l.OnRecordingEvent(event)
	}
}
