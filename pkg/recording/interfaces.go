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

//go:generate mockgen -destination=mock_store.go -package=recording github.com/carverauto/beaconradar/pkg/recording Store

package recording

import (
	"context"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/registry"
)

// Store persists sealed recordings and the header index.
type Store interface {
	Save(ctx context.Context, rec models.Recording) error
	Load(ctx context.Context, begin time.Time) (models.Recording, error)
	LoadHeaders(ctx context.Context) ([]models.RecordingHeader, error)
	SaveHeaders(ctx context.Context, headers []models.RecordingHeader) error
}

// Directory is the view of the endpoint registry the manager needs.
type Directory interface {
	Endpoints() []*endpoint.Endpoint
	AddListener(l registry.Listener)
	RemoveListener(l registry.Listener)
}

// Listener receives recording lifecycle events. Listeners are compared by
// identity and are called synchronously.
type Listener interface {
	OnRecordingEvent(event models.RecordingEvent)
}
