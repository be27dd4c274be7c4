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

package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
	"github.com/google/uuid"
)

const linkEventBuffer = 64

// link is one simulated connection. Handler callbacks run on a single
// goroutine in the order they were posted.
type link struct {
	id      string
	sim     *Simulator
	dev     *device
	handler session.Handler
	logger  logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()

	mu      sync.Mutex
	notify  map[string]context.CancelFunc
	closed  bool
	started bool
}

func newLink(sim *Simulator, dev *device, handler session.Handler) *link {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	l := &link{
		id:      id,
		sim:     sim,
		dev:     dev,
		handler: handler,
		logger: logger.New(sim.logger.With().
			Str("endpoint_id", dev.cfg.ID).
			Str("link_id", id).
			Logger()),
		ctx:    ctx,
		cancel: cancel,
		events: make(chan func(), linkEventBuffer),
		notify: make(map[string]context.CancelFunc),
	}

	go l.run()

	l.logger.Debug().Msg("Link opened")

	return l
}

func (l *link) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// post queues a handler callback. Callbacks posted after Close are dropped.
func (l *link) post(fn func()) {
	select {
	case <-l.ctx.Done():
	case l.events <- fn:
	}
}

func (l *link) open() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLinkClosed
	}

	return nil
}

func (l *link) DiscoverServices() error {
	if err := l.open(); err != nil {
		return err
	}

	l.mu.Lock()
	l.started = true
	l.mu.Unlock()

	l.post(func() { l.handler.OnServicesDiscovered(models.StatusSuccess) })

	return nil
}

func (l *link) Services() []models.Service {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil
	}

	return services(l.dev.typeName)
}

func (l *link) ReadAttribute(attr string) error {
	if err := l.open(); err != nil {
		return err
	}

	l.post(func() {
		value, ok := l.sim.value(l.dev, attr)
		if !ok {
			l.handler.OnAttributeRead(attr, nil, models.StatusReadNotPermitted)
			return
		}

		l.handler.OnAttributeRead(attr, value, models.StatusSuccess)
	})

	return nil
}

// WriteAttribute accepts writes to any attribute the device exposes and
// discards the value.
func (l *link) WriteAttribute(attr string, _ []byte) error {
	if err := l.open(); err != nil {
		return err
	}

	l.post(func() {
		if _, ok := l.sim.value(l.dev, attr); !ok {
			l.handler.OnAttributeWrite(attr, models.StatusWriteNotPermitted)
			return
		}

		l.handler.OnAttributeWrite(attr, models.StatusSuccess)
	})

	return nil
}

func (l *link) SetNotify(attr string, enabled bool) error {
	if !notifiable(l.dev.typeName, attr) {
		return fmt.Errorf("%w: %s", errNotNotifiable, attr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLinkClosed
	}

	if stop, ok := l.notify[attr]; ok {
		if enabled {
			return nil
		}

		stop()
		delete(l.notify, attr)

		return nil
	}

	if !enabled {
		return nil
	}

	ctx, cancel := context.WithCancel(l.ctx)
	l.notify[attr] = cancel

	go l.push(ctx, attr)

	return nil
}

func (l *link) push(ctx context.Context, attr string) {
	ticker := time.NewTicker(l.sim.notifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.post(func() {
				if ctx.Err() != nil {
					return
				}

				if value, ok := l.sim.value(l.dev, attr); ok {
					l.handler.OnAttributeChanged(attr, value)
				}
			})
		}
	}
}

// Close stops every subscription and drops undelivered callbacks. The
// session already considers the link gone, so no disconnect is reported.
func (l *link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}

	l.closed = true
	clear(l.notify)
	l.mu.Unlock()

	l.cancel()
	l.logger.Debug().Msg("Link closed")

	return nil
}

var _ session.Link = (*link)(nil)
