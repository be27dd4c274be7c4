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

import "sync"

// dispatcher delivers events on its own goroutine through an unbounded
// queue, so producers on the scan and transport paths never block on
// listeners.
type dispatcher struct {
	deliver func(Event)

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Event
	closed  bool
	stopped chan struct{}
}

func newDispatcher(deliver func(Event)) *dispatcher {
	d := &dispatcher{
		deliver: deliver,
		stopped: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)

	go d.run()

	return d
}

func (d *dispatcher) enqueue(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.queue = append(d.queue, e)
	recordQueueDepth(len(d.queue))
	d.cond.Signal()
}

func (d *dispatcher) run() {
	defer close(d.stopped)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}

		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		recordQueueDepth(0)

		for _, e := range batch {
			d.deliver(e)
		}

		if closed {
			return
		}
	}
}

// close stops accepting events and waits until the queued ones are delivered.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.stopped

		return
	}

	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()

	<-d.stopped
}
