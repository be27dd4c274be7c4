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

package models

import (
	"errors"
	"fmt"
	"time"
)

// Observation is a single scan report delivered by the radio scanner.
type Observation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Payload   []byte    `json:"payload,omitempty"`
	RSSI      int       `json:"rssi"`
	Timestamp time.Time `json:"timestamp"`
}

var errUnknownConnectionState = errors.New("unknown connection state")

// EventType identifies a registry change event.
type EventType string

const (
	EventAdded        EventType = "ADDED"
	EventUpdated      EventType = "UPDATED"
	EventRemoved      EventType = "REMOVED"
	EventConnected    EventType = "CONNECTED"
	EventDisconnected EventType = "DISCONNECTED"
	EventProgress     EventType = "PROGRESS"
	EventError        EventType = "ERROR"
)

const (
	// ProgressNone is reported when a read-all operation is cancelled or fails.
	ProgressNone = -1
	// ProgressComplete is reported once when a read-all operation finishes.
	ProgressComplete = 100
)

// EndpointEvent is emitted for every change affecting a tracked endpoint.
type EndpointEvent struct {
	EndpointID string    `json:"endpoint_id"`
	Type       EventType `json:"type"`
	Message    string    `json:"message,omitempty"`
	Progress   *int      `json:"progress,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConnectionState is the logical link state of a connection session.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON payloads.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnectionState) UnmarshalText(b []byte) error {
	for _, st := range []ConnectionState{StateDisconnected, StateConnecting, StateConnected, StateDisconnecting} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}

	return fmt.Errorf("%w: %q", errUnknownConnectionState, b)
}

// MachineState is the polling/tracking state of an endpoint.
type MachineState string

const (
	MachineInit            MachineState = "INIT"
	MachinePolling         MachineState = "POLLING"
	MachineTrackingPending MachineState = "TRACKING_PENDING"
	MachineTracking        MachineState = "TRACKING"
	MachineFinished        MachineState = "FINISHED"
)

// Service describes a discovered service and the attributes it exposes, in
// the order the transport reported them.
type Service struct {
	ID         string   `json:"id"`
	Attributes []string `json:"attributes"`
}

// EndpointSnapshot is a point-in-time, read-only view of an endpoint.
type EndpointSnapshot struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Synthetic  bool            `json:"synthetic"`
	RSSI       int             `json:"rssi"`
	LastSeen   time.Time       `json:"last_seen"`
	Elapsed    Duration        `json:"elapsed"`
	PayloadHex string          `json:"payload_hex,omitempty"`
	Battery    int             `json:"battery"`
	Serial     string          `json:"serial,omitempty"`
	Connection ConnectionState `json:"connection"`
	Machine    MachineState    `json:"machine"`
	Progress   int             `json:"progress"`
	Readings   map[string]any  `json:"readings,omitempty"`
	Tracking   bool            `json:"tracking"`
}
