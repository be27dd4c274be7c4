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

package recordstore

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/beaconradar/pkg/kv"
	"github.com/carverauto/beaconradar/pkg/models"
)

const (
	kvRecordingPrefix = "recordings/"
	kvIndexKey        = "recordings/index"
)

// KVStore persists recordings in a key-value store under recordings/<begin ms>
// with the header index at recordings/index.
type KVStore struct {
	store kv.KVStore
}

func NewKVStore(store kv.KVStore) *KVStore {
	return &KVStore{store: store}
}

func (s *KVStore) Save(ctx context.Context, rec models.Recording) error {
	b, err := encodeRecording(rec)
	if err != nil {
		return err
	}

	if err := s.store.Put(ctx, kvRecordingPrefix+recordingID(rec.Begin), b); err != nil {
		return fmt.Errorf("save recording %s: %w", recordingID(rec.Begin), err)
	}

	return nil
}

func (s *KVStore) Load(ctx context.Context, begin time.Time) (models.Recording, error) {
	b, found, err := s.store.Get(ctx, kvRecordingPrefix+recordingID(begin))
	if err != nil {
		return models.Recording{}, fmt.Errorf("load recording %s: %w", recordingID(begin), err)
	}

	if !found {
		return models.Recording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID(begin))
	}

	return decodeRecording(b)
}

func (s *KVStore) LoadHeaders(ctx context.Context) ([]models.RecordingHeader, error) {
	b, found, err := s.store.Get(ctx, kvIndexKey)
	if err != nil {
		return nil, fmt.Errorf("load recording index: %w", err)
	}

	if !found {
		return nil, nil
	}

	return decodeHeaders(b)
}

func (s *KVStore) SaveHeaders(ctx context.Context, headers []models.RecordingHeader) error {
	b, err := encodeHeaders(headers)
	if err != nil {
		return err
	}

	if err := s.store.Put(ctx, kvIndexKey, b); err != nil {
		return fmt.Errorf("save recording index: %w", err)
	}

	return nil
}

func (s *KVStore) Close() error {
	return s.store.Close()
}
