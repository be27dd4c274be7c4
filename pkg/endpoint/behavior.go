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
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
)

// AttributeIO is the part of a connection session a behavior may drive.
type AttributeIO interface {
	ReadAttribute(attr string) error
	WriteAttribute(attr string, value []byte) error
	SetNotify(attr string, enabled bool) error
	ReadAllAttributes(ctx context.Context, serviceID string, attrs ...string) (*session.ReadOperation, error)
}

// Advertisement is what a behavior extracts from a scan payload without
// connecting.
type Advertisement struct {
	Serial  string
	Samples []models.Sample
}

// Behavior is the type-specific logic of an endpoint: how to poll it, how to
// subscribe to pushed updates and how to turn attribute values into samples.
type Behavior interface {
	// Title is the display name of the endpoint type.
	Title() string
	// Advertisement decodes the raw scan payload.
	Advertisement(payload []byte, ts time.Time) (Advertisement, error)
	// Poll issues the one-shot read performed while polling. Behaviors that
	// use the read-all protocol return the running operation so a failed or
	// timed out read ends the poll; others return nil.
	Poll(ctx context.Context, io AttributeIO) (*session.ReadOperation, error)
	Subscribe(ctx context.Context, io AttributeIO) error
	Unsubscribe(ctx context.Context, io AttributeIO) error
	// Decode converts an attribute value into samples. complete reports that
	// the value finishes the read started by Poll; pushed is set for
	// notifications.
	Decode(attr string, value []byte, pushed bool, ts time.Time) (samples []models.Sample, complete bool, err error)
}

// Sink receives the samples of an endpoint while it is tracked.
type Sink interface {
	Add(sample models.Sample) (bool, error)
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on its own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallScheduler schedules on the system clock.
func WallScheduler() Scheduler { return wallScheduler{} }
