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
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/recording"
)

// EndpointDirectory is the read side of the endpoint registry.
type EndpointDirectory interface {
	Endpoints() []*endpoint.Endpoint
	Get(id string) (*endpoint.Endpoint, bool)
}

// Recorder controls and lists recordings.
type Recorder interface {
	StartTracking() bool
	StopTracking(ctx context.Context) (bool, error)
	CancelTracking() bool
	Active() *recording.Session
	Headers() []models.RecordingHeader
	Get(ctx context.Context, begin time.Time) (*recording.Session, error)
}
