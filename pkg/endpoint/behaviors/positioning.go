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

package behaviors

import (
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
)

const (
	PositioningID    = "positioning"
	PositioningType  = "positioning"
	positioningTitle = "Positioning"
)

// Positioning is the synthetic endpoint carrying the host's own location
// fixes. It is registered explicitly and never swept.
type Positioning struct {
	*endpoint.Endpoint
}

func NewPositioning(notifier session.Notifier, log logger.Logger, now func() time.Time) *Positioning {
	return &Positioning{
		Endpoint: endpoint.NewSynthetic(PositioningID, PositioningType, positioningTitle, notifier, log, now),
	}
}

// Report records a location fix.
func (p *Positioning) Report(loc models.Location, ts time.Time) {
	p.Record(models.LocationSample(models.KeyLocation, loc, ts))
}
