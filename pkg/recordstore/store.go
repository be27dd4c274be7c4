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

// Package recordstore provides the persistence backends for recordings: a
// directory of JSON files, a NATS JetStream key-value bucket, or Postgres.
package recordstore

import (
	"context"
	"fmt"

	"github.com/carverauto/beaconradar/pkg/kv"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/recording"
)

// Backend is a recording store that owns resources to release on shutdown.
type Backend interface {
	recording.Store
	Close() error
}

var (
	_ Backend = (*FileStore)(nil)
	_ Backend = (*KVStore)(nil)
	_ Backend = (*CNPGStore)(nil)
)

// Open builds the backend selected by cfg.
func Open(ctx context.Context, cfg models.StorageConfig, natsCfg *models.NATSConfig, log logger.Logger) (Backend, error) {
	switch cfg.Backend {
	case models.StorageFile, "":
		return NewFileStore(cfg.Path, log)
	case models.StorageKV:
		if natsCfg == nil {
			return nil, errNATSRequired
		}

		store, err := kv.NewNatsStore(ctx, natsCfg, cfg.Bucket, log)
		if err != nil {
			return nil, err
		}

		return NewKVStore(store), nil
	case models.StorageCNPG:
		return NewCNPGStore(ctx, cfg.DSN, log)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedBackend, cfg.Backend)
	}
}
