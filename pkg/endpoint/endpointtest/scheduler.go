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

// Package endpointtest provides a manual scheduler for driving endpoint
// machines in tests.
package endpointtest

import (
	"sort"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
)

// Scheduler collects scheduled calls and runs them only when told to.
type Scheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*task
}

type task struct {
	s       *Scheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *task) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}

	t.stopped = true

	return true
}

var _ endpoint.Scheduler = (*Scheduler)(nil)

func New() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) endpoint.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &task{s: s, at: s.now + d, f: f}
	s.tasks = append(s.tasks, t)

	return t
}

// Pending returns the delays, relative to the current virtual time, of the
// calls that are still scheduled.
func (s *Scheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []time.Duration

	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			out = append(out, t.at-s.now)
		}
	}

	return out
}

// Advance moves virtual time forward by d and runs every call that became
// due, in due order, on the calling goroutine. It returns the number of
// calls run.
func (s *Scheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	due := s.dueLocked()
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}

	return len(due)
}

// RunDue runs the calls that are due at the current virtual time.
func (s *Scheduler) RunDue() int {
	return s.Advance(0)
}

func (s *Scheduler) dueLocked() []*task {
	var (
		due  []*task
		keep []*task
	)

	for _, t := range s.tasks {
		switch {
		case t.stopped:
		case t.at <= s.now:
			t.fired = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}

	s.tasks = keep

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })

	return due
}
