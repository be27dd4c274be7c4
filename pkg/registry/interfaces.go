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

package registry

import (
	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
)

// Factory builds the endpoint for a first observation. Returning an error
// means the observation does not belong to a known endpoint type.
type Factory interface {
	Create(obs models.Observation, notifier session.Notifier) (*endpoint.Endpoint, error)
}

// Event is a registry change. Endpoint is nil for events of endpoints that
// already left the registry.
type Event struct {
	models.EndpointEvent
	Endpoint *endpoint.Endpoint
}

// Listener receives registry events on the registry's dispatch goroutine.
// Listeners are compared by identity, so implementations must be comparable
// (typically pointers).
type Listener interface {
	OnEvent(event Event)
}
