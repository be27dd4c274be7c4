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

//go:generate mockgen -destination=mock_kv.go -package=kv github.com/carverauto/beaconradar/pkg/kv KVStore

// Package kv provides the key-value store used for recording persistence and
// as a configuration source.
package kv

import (
	"context"
)

// KVStore defines the key-value operations beaconradar depends on.
type KVStore interface {
	// Get retrieves the value associated with the given key.
	// Returns the value, whether the key was found, and an error if the operation fails.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores a value under the given key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Watch sends the current value of key, then every later value (nil once
	// deleted). The channel is closed when ctx is canceled or the store is closed.
	Watch(ctx context.Context, key string) (<-chan []byte, error)

	// Close releases the store's resources.
	Close() error
}
