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

package natsutil

import (
	"context"
	"sync/atomic"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/registry"
)

const defaultBridgeQueue = 256

// Publisher is the outbound side of the Bridge.
type Publisher interface {
	PublishEndpointEvent(ctx context.Context, data EndpointEventData) error
	PublishRecordingEvent(ctx context.Context, event models.RecordingEvent) error
}

// Bridge forwards registry and recording events to a Publisher from its own
// goroutine. Listener callbacks never block: when the queue is full the
// event is dropped and counted.
type Bridge struct {
	publisher Publisher
	logger    logger.Logger
	queue     chan func(context.Context) error
	dropped   atomic.Int64
}

func NewBridge(publisher Publisher, log logger.Logger, queueSize int) *Bridge {
	if queueSize <= 0 {
		queueSize = defaultBridgeQueue
	}

	return &Bridge{
		publisher: publisher,
		logger:    logger.Component(log, "event_bridge"),
		queue:     make(chan func(context.Context) error, queueSize),
	}
}

// OnEvent implements registry.Listener. PROGRESS events are not forwarded.
func (b *Bridge) OnEvent(e registry.Event) {
	if e.Type == models.EventProgress {
		return
	}

	data := EndpointEventData{EndpointEvent: e.EndpointEvent}

	if e.Endpoint != nil {
		snap := e.Endpoint.Snapshot()
		data.Endpoint = &snap
	}

	b.enqueue(func(ctx context.Context) error {
		return b.publisher.PublishEndpointEvent(ctx, data)
	})
}

// OnRecordingEvent implements recording.Listener.
func (b *Bridge) OnRecordingEvent(e models.RecordingEvent) {
	b.enqueue(func(ctx context.Context) error {
		return b.publisher.PublishRecordingEvent(ctx, e)
	})
}

func (b *Bridge) enqueue(f func(context.Context) error) {
	select {
	case b.queue <- f:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn().Int64("dropped", n).Msg("Event queue full, dropping event")
	}
}

// Dropped is the number of events discarded because the queue was full.
func (b *Bridge) Dropped() int64 { return b.dropped.Load() }

// Run publishes queued events until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-b.queue:
			if err := f(ctx); err != nil {
				b.logger.Warn().Err(err).Msg("Failed to publish event")
			}
		}
	}
}
