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

package kv

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process KVStore. It backs the simulator and tests.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	watchers map[string][]chan []byte
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		watchers: make(map[string][]chan []byte),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, errStoreClosed
	}

	v, ok := m.data[key]

	return slices.Clone(v), ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errStoreClosed
	}

	m.data[key] = slices.Clone(value)
	m.broadcastLocked(key, value)

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errStoreClosed
	}

	if _, ok := m.data[key]; !ok {
		return nil
	}

	delete(m.data, key)
	m.broadcastLocked(key, nil)

	return nil
}

// broadcastLocked replaces any undelivered value so watchers always see the
// latest one.
func (m *MemoryStore) broadcastLocked(key string, value []byte) {
	for _, ch := range m.watchers[key] {
		select {
		case <-ch:
		default:
		}

		ch <- slices.Clone(value)
	}
}

func (m *MemoryStore) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errStoreClosed
	}

	ch := make(chan []byte, 1)
	if v, ok := m.data[key]; ok {
		ch <- slices.Clone(v)
	}

	m.watchers[key] = append(m.watchers[key], ch)

	go func() {
		<-ctx.Done()
		m.unwatch(key, ch)
	}()

	return ch, nil
}

func (m *MemoryStore) unwatch(key string, ch chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slices.Index(m.watchers[key], ch)
	if idx < 0 {
		return
	}

	m.watchers[key] = slices.Delete(m.watchers[key], idx, idx+1)
	close(ch)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true

	for key, chans := range m.watchers {
		for _, ch := range chans {
			close(ch)
		}

		delete(m.watchers, key)
	}

	return nil
}

var _ KVStore = (*MemoryStore)(nil)
