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
	"encoding/json"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/version"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// StatusResponse describes the running service.
type StatusResponse struct {
	Service   string                  `json:"service"`
	Build     version.Info            `json:"build"`
	Uptime    models.Duration         `json:"uptime"`
	Endpoints int                     `json:"endpoints"`
	Recording *models.RecordingHeader `json:"recording,omitempty"`
	Clients   int                     `json:"stream_clients"`
	Config    json.RawMessage         `json:"config,omitempty"`
}

// RecordingsResponse lists the persisted recordings and the active one.
type RecordingsResponse struct {
	Active     *models.RecordingHeader  `json:"active,omitempty"`
	Recordings []models.RecordingHeader `json:"recordings"`
}

// Stream message types.
const (
	MessageEndpoint  = "endpoint"
	MessageRecording = "recording"
	MessageSnapshot  = "snapshot"
)

// StreamMessage is one message on the event websocket.
type StreamMessage struct {
	Type      string                    `json:"type"`
	Event     *models.EndpointEvent     `json:"event,omitempty"`
	Endpoint  *models.EndpointSnapshot  `json:"endpoint,omitempty"`
	Endpoints []models.EndpointSnapshot `json:"endpoints,omitempty"`
	Recording *models.RecordingEvent    `json:"recording,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}
