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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
)

const (
	indexFile      = "recordings.lst"
	recordingExt   = ".rec"
	dirPerm        = 0o750
	filePerm       = 0o640
	tempFilePrefix = ".tmp-"
)

// FileStore keeps one JSON file per recording plus the header index in a
// directory. Files are replaced atomically.
type FileStore struct {
	dir    string
	logger logger.Logger
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create recordings directory: %w", err)
	}

	return &FileStore{dir: dir, logger: logger.Component(log, "file_store")}, nil
}

func (s *FileStore) recordingPath(begin time.Time) string {
	return filepath.Join(s.dir, recordingID(begin)+recordingExt)
}

func (s *FileStore) Save(ctx context.Context, rec models.Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := encodeRecording(rec)
	if err != nil {
		return err
	}

	return s.writeAtomic(s.recordingPath(rec.Begin), b)
}

func (s *FileStore) Load(ctx context.Context, begin time.Time) (models.Recording, error) {
	if err := ctx.Err(); err != nil {
		return models.Recording{}, err
	}

	b, err := os.ReadFile(s.recordingPath(begin))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Recording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID(begin))
	}

	if err != nil {
		return models.Recording{}, fmt.Errorf("read recording %s: %w", recordingID(begin), err)
	}

	return decodeRecording(b)
}

// LoadHeaders returns the index; a missing index file is an empty index.
func (s *FileStore) LoadHeaders(ctx context.Context) ([]models.RecordingHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read recording index: %w", err)
	}

	return decodeHeaders(b)
}

func (s *FileStore) SaveHeaders(ctx context.Context, headers []models.RecordingHeader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := encodeHeaders(headers)
	if err != nil {
		return err
	}

	return s.writeAtomic(filepath.Join(s.dir, indexFile), b)
}

// writeAtomic writes b to a temporary file in the same directory and renames
// it over path.
func (s *FileStore) writeAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(s.dir, tempFilePrefix+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	committed := false

	defer func() {
		if committed {
			return
		}

		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", tmpName).Msg("Failed to remove temp file")
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}

	committed = true

	return nil
}

func (*FileStore) Close() error { return nil }
