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

	"github.com/carverauto/beaconradar/pkg/kv"
	"github.com/carverauto/beaconradar/pkg/logger"
)

// WatchKV reports changes to the configuration stored for path and calls
// onChange with every new value. A deleted key is logged and skipped. It
// blocks until ctx is done or the watch ends.
func WatchKV(ctx context.Context, store kv.KVStore, path string, log logger.Logger, onChange func([]byte)) {
	key := KVKey(path)

	last, _, err := store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("KV read failed")
	}

	ch, err := store.Watch(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("KV watch failed")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}

			if len(data) == 0 {
				log.Info().Str("key", key).Msg("KV config deleted")
				last = nil

				continue
			}

			if bytes.Equal(data, last) {
				continue
			}

			last = data

			log.Info().Str("key", key).Msg("KV config updated")

			if onChange != nil {
				onChange(data)
			}
		}
	}
}
