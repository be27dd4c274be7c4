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

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/carverauto/beaconradar/pkg/kv"
)

var (
	errKVKeyNotFound = errors.New("key not found in KV store")
	errTrailingData  = errors.New("unexpected data after configuration object")
)

// FileConfigLoader reads the configuration from a local JSON file.
type FileConfigLoader struct{}

func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := decodeStrict(data, dst); err != nil {
		return fmt.Errorf("config file %q: %w", path, err)
	}

	return nil
}

// KVConfigLoader reads the configuration stored under KVKey(path).
type KVConfigLoader struct {
	store kv.KVStore
}

func NewKVConfigLoader(store kv.KVStore) *KVConfigLoader {
	return &KVConfigLoader{store: store}
}

func (k *KVConfigLoader) Load(ctx context.Context, path string, dst interface{}) error {
	key := KVKey(path)

	data, found, err := k.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get config key %q: %w", key, err)
	}

	if !found {
		return fmt.Errorf("%w: %q", errKVKeyNotFound, key)
	}

	if err := decodeStrict(data, dst); err != nil {
		return fmt.Errorf("config key %q: %w", key, err)
	}

	return nil
}

// Decode parses a configuration document the way the loaders do, then
// applies defaults and validates it. It serves values delivered outside a
// loader, such as WatchKV updates.
func Decode(data []byte, cfg interface{}) error {
	if err := decodeStrict(data, cfg); err != nil {
		return err
	}

	return finish(cfg)
}

// decodeStrict rejects fields the target does not declare, so a misspelled
// key fails the load instead of silently keeping its default.
func decodeStrict(data []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}

	return nil
}
