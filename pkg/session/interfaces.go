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

//go:generate mockgen -destination=mock_session.go -package=session github.com/carverauto/beaconradar/pkg/session Link,Connector,Handler,Notifier

package session

import (
	"context"

	"github.com/carverauto/beaconradar/pkg/models"
)

// Handler receives low-level transport events for one link. The same
// interface is used by session listeners, which see every event after the
// session has consumed it.
type Handler interface {
	OnConnectionStateChanged(status models.LinkStatus, state models.ConnectionState)
	OnServicesDiscovered(status models.LinkStatus)
	OnAttributeRead(attr string, value []byte, status models.LinkStatus)
	OnAttributeWrite(attr string, status models.LinkStatus)
	OnAttributeChanged(attr string, value []byte)
}

// Link is an open logical link to an endpoint. Calls only issue requests;
// their outcome arrives through the Handler given to Connector.Connect.
type Link interface {
	DiscoverServices() error
	Services() []models.Service
	ReadAttribute(attr string) error
	WriteAttribute(attr string, value []byte) error
	SetNotify(attr string, enabled bool) error
	Close() error
}

// Connector opens links. Events for the returned link are delivered to
// handler and may start before Connect returns.
type Connector interface {
	Connect(ctx context.Context, endpointID string, handler Handler) (Link, error)
}

// Notifier receives the session's high-level notifications (CONNECTED,
// DISCONNECTED, PROGRESS, ERROR).
type Notifier interface {
	Notify(event models.EndpointEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(event models.EndpointEvent)

func (f NotifierFunc) Notify(event models.EndpointEvent) { f(event) }
