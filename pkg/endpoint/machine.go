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

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
	"golang.org/x/time/rate"
)

// Machine is the polling/tracking state machine of one endpoint. It listens
// to the endpoint's session and decides when to connect, read, subscribe or
// disconnect.
//
// Polling repeats connect, read once, disconnect, wait PollInterval. Tracking
// keeps the link open with push notifications. TRACKING_PENDING absorbs a
// tracking request that races an in-flight connect or read: whichever of
// service discovery, read completion or disconnect arrives first moves the
// machine to TRACKING. A poll read that fails or times out ends the poll
// like a completed one: the link is closed and the next poll is scheduled.
type Machine struct {
	ep           *Endpoint
	behavior     Behavior
	session      *session.Session
	scheduler    Scheduler
	pollInterval time.Duration
	limiter      *rate.Limiter
	now          func() time.Time
	logger       logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      models.MachineState
	timer      Timer
	timerSeq   uint64
	subscribed bool
	// pollSeq identifies the current poll; a disconnect invalidates it.
	pollSeq uint64
}

func newMachine(ep *Endpoint, sched Scheduler, pollInterval time.Duration, limiter *rate.Limiter) *Machine {
	ctx, cancel := context.WithCancel(context.Background())

	return &Machine{
		ep:           ep,
		behavior:     ep.behavior,
		session:      ep.session,
		scheduler:    sched,
		pollInterval: pollInterval,
		limiter:      limiter,
		now:          ep.now,
		logger:       logger.New(ep.logger.With().Str("component", "machine").Logger()),
		ctx:          ctx,
		cancel:       cancel,
		state:        models.MachineInit,
	}
}

// State returns the current machine state.
func (m *Machine) State() models.MachineState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Scheduled reports whether a connect is pending.
func (m *Machine) Scheduled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.timer != nil
}

func (m *Machine) setStateLocked(state models.MachineState) {
	if m.state == state {
		return
	}

	m.logger.Debug().
		Str("from", string(m.state)).
		Str("to", string(state)).
		Msg("Machine transition")

	m.state = state
}

// scheduleLocked replaces any pending connect with one that runs after d.
func (m *Machine) scheduleLocked(d time.Duration, limited bool) {
	m.cancelTimerLocked()

	m.timerSeq++
	seq := m.timerSeq
	m.timer = m.scheduler.AfterFunc(d, func() { m.fire(seq, limited) })
}

func (m *Machine) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) fire(seq uint64, limited bool) {
	m.mu.Lock()
	if seq != m.timerSeq || m.state == models.MachineFinished {
		m.mu.Unlock()
		return
	}

	m.timer = nil

	if limited && m.limiter != nil {
		now := m.now()
		if delay := m.limiter.ReserveN(now, 1).DelayFrom(now); delay > 0 {
			m.logger.Debug().Dur("delay", delay).Msg("Connect throttled")
			m.scheduleLocked(delay, false)
			m.mu.Unlock()

			return
		}
	}
	m.mu.Unlock()

	if err := m.session.Connect(m.ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Connect failed")
	}
}

// OnScan drives INIT to POLLING with an immediate connect. A pending
// tracking request that has nothing scheduled also connects right away.
func (m *Machine) OnScan() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case models.MachineInit:
		m.setStateLocked(models.MachinePolling)

		if m.timer == nil {
			m.scheduleLocked(0, true)
		}
	case models.MachineTrackingPending:
		if m.timer == nil && m.session.State() == models.StateDisconnected {
			m.scheduleLocked(0, true)
		}
	case models.MachinePolling, models.MachineTracking, models.MachineFinished:
	}
}

// OnScanStop finishes the machine: pending connects are cancelled and the
// link is closed. No transition leaves FINISHED.
func (m *Machine) OnScanStop() {
	m.mu.Lock()
	m.setStateLocked(models.MachineFinished)
	m.cancelTimerLocked()
	m.timerSeq++
	m.pollSeq++
	m.subscribed = false
	m.mu.Unlock()

	m.cancel()
	m.session.Disconnect()
}

// StartTracking requests push delivery. A connect waiting for the poll
// interval is brought forward.
func (m *Machine) StartTracking() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case models.MachineInit, models.MachinePolling:
		m.setStateLocked(models.MachineTrackingPending)

		if m.timer != nil {
			m.scheduleLocked(0, true)
		}
	case models.MachineTrackingPending, models.MachineTracking, models.MachineFinished:
	}
}

// StopTracking returns to polling. An active subscription is cancelled and
// the link closed; the disconnect schedules the next poll.
func (m *Machine) StopTracking() {
	m.mu.Lock()

	switch m.state {
	case models.MachineTracking:
		m.setStateLocked(models.MachinePolling)
		subscribed := m.subscribed
		m.subscribed = false
		m.mu.Unlock()

		if subscribed {
			if err := m.behavior.Unsubscribe(m.ctx, m.session); err != nil {
				m.logger.Debug().Err(err).Msg("Unsubscribe failed")
			}
		}

		m.session.Disconnect()

		return
	case models.MachineTrackingPending:
		m.setStateLocked(models.MachinePolling)
	case models.MachineInit, models.MachinePolling, models.MachineFinished:
	}

	m.mu.Unlock()
}

func (m *Machine) OnConnectionStateChanged(status models.LinkStatus, state models.ConnectionState) {
	if status.IsSuccess() && state != models.StateDisconnected {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribed = false
	m.pollSeq++

	switch m.state {
	case models.MachineTrackingPending:
		m.setStateLocked(models.MachineTracking)
		m.scheduleLocked(0, true)
	case models.MachineTracking:
		m.setStateLocked(models.MachinePolling)
		m.scheduleLocked(m.pollInterval, true)
	case models.MachinePolling:
		m.scheduleLocked(m.pollInterval, true)
	case models.MachineInit, models.MachineFinished:
	}
}

func (m *Machine) OnServicesDiscovered(status models.LinkStatus) {
	if !status.IsSuccess() {
		return
	}

	m.mu.Lock()

	switch m.state {
	case models.MachineInit, models.MachinePolling:
		m.mu.Unlock()
		m.poll()
	case models.MachineTrackingPending, models.MachineTracking:
		m.setStateLocked(models.MachineTracking)
		subscribe := !m.subscribed
		m.subscribed = true
		m.mu.Unlock()

		if subscribe {
			m.subscribe()
		}
	case models.MachineFinished:
		m.mu.Unlock()
		m.session.Disconnect()
	default:
		m.mu.Unlock()
	}
}

func (m *Machine) OnAttributeRead(attr string, value []byte, status models.LinkStatus) {
	if !status.IsSuccess() {
		m.pollFailed(fmt.Errorf("%w: %s: %s", errPollReadFailed, attr, status.Message()))
		return
	}

	if m.decode(attr, value, false) {
		m.polled()
	}
}

func (m *Machine) OnAttributeWrite(attr string, status models.LinkStatus) {
	if !status.IsSuccess() {
		m.logger.Debug().Str("attribute", attr).Int("status", int(status)).Msg("Attribute write failed")
	}
}

func (m *Machine) OnAttributeChanged(attr string, value []byte) {
	m.decode(attr, value, true)
}

func (m *Machine) decode(attr string, value []byte, pushed bool) bool {
	samples, complete, err := m.behavior.Decode(attr, value, pushed, m.now())
	if err != nil {
		m.logger.Warn().Err(err).Str("attribute", attr).Msg("Failed to decode attribute")
	}

	m.ep.Record(samples...)

	return complete
}

// polled handles completion of the one-shot read.
func (m *Machine) polled() {
	m.mu.Lock()

	switch m.state {
	case models.MachinePolling:
		m.mu.Unlock()
		m.logger.Debug().Msg("Disconnecting after poll")
		m.session.Disconnect()
	case models.MachineTrackingPending:
		m.setStateLocked(models.MachineTracking)
		subscribe := !m.subscribed
		m.subscribed = true
		m.mu.Unlock()

		if subscribe {
			m.subscribe()
		}
	default:
		m.mu.Unlock()
	}
}

func (m *Machine) poll() {
	m.mu.Lock()
	m.pollSeq++
	seq := m.pollSeq
	m.mu.Unlock()

	op, err := m.behavior.Poll(m.ctx, m.session)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Poll failed")
		m.session.Disconnect()

		return
	}

	if op != nil {
		go m.awaitPoll(seq, op)
	}
}

// awaitPoll ends the poll when its read-all operation fails. Cancellation
// only happens on disconnect, which already ended the poll.
func (m *Machine) awaitPoll(seq uint64, op *session.ReadOperation) {
	<-op.Done()

	err := op.Err()
	if err == nil || errors.Is(err, session.ErrReadAllCancelled) {
		return
	}

	m.mu.Lock()
	stale := seq != m.pollSeq
	m.mu.Unlock()

	if stale {
		return
	}

	m.pollFailed(err)
}

// pollFailed closes the link of a poll that cannot complete. The resulting
// DISCONNECTED transition schedules the next connect.
func (m *Machine) pollFailed(err error) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch state {
	case models.MachinePolling, models.MachineTrackingPending:
		m.logger.Warn().Err(err).Msg("Poll read failed, disconnecting")
		m.session.Disconnect()
	case models.MachineInit, models.MachineTracking, models.MachineFinished:
		m.logger.Debug().Err(err).Str("state", string(state)).Msg("Ignoring failed read")
	}
}

func (m *Machine) subscribe() {
	if err := m.behavior.Subscribe(m.ctx, m.session); err != nil {
		m.logger.Warn().Err(err).Msg("Subscribe failed")

		m.mu.Lock()
		m.subscribed = false
		m.mu.Unlock()

		m.session.Disconnect()
	}
}
