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
	"time"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CNPGStore persists recordings in Postgres. The recording body is stored as
// JSONB; the header index lives in its own table and is replaced as a whole
// in one transaction.
type CNPGStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewCNPGStore dials dsn and applies the schema migrations.
func NewCNPGStore(ctx context.Context, dsn string, log logger.Logger) (*CNPGStore, error) {
	log = logger.Component(log, "cnpg_store")

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("cnpg: failed to parse connection string: %w", err)
	}

	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = make(map[string]string)
	}

	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = "beaconradar"
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("cnpg: failed to initialize pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cnpg: ping: %w", err)
	}

	if err := RunMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to CNPG cluster")

	return &CNPGStore{pool: pool, logger: log}, nil
}

func (s *CNPGStore) Save(ctx context.Context, rec models.Recording) error {
	body, err := encodeRecording(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO recordings (begin_ms, begin_at, end_at, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (begin_ms) DO UPDATE
		SET end_at = EXCLUDED.end_at, body = EXCLUDED.body, saved_at = now()`,
		rec.Begin.UnixMilli(), rec.Begin, rec.End, body)
	if err != nil {
		return fmt.Errorf("save recording %s: %w", recordingID(rec.Begin), err)
	}

	return nil
}

func (s *CNPGStore) Load(ctx context.Context, begin time.Time) (models.Recording, error) {
	var body []byte

	err := s.pool.QueryRow(ctx, `SELECT body FROM recordings WHERE begin_ms = $1`, begin.UnixMilli()).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Recording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID(begin))
	}

	if err != nil {
		return models.Recording{}, fmt.Errorf("load recording %s: %w", recordingID(begin), err)
	}

	return decodeRecording(body)
}

func (s *CNPGStore) LoadHeaders(ctx context.Context) ([]models.RecordingHeader, error) {
	rows, err := s.pool.Query(ctx, `SELECT begin_at, end_at, readings FROM recording_index ORDER BY begin_ms`)
	if err != nil {
		return nil, fmt.Errorf("load recording index: %w", err)
	}

	headers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RecordingHeader, error) {
		var h models.RecordingHeader
		if err := row.Scan(&h.Begin, &h.End, &h.Readings); err != nil {
			return h, err
		}

		h.Begin, h.End = h.Begin.UTC(), h.End.UTC()

		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan recording index: %w", err)
	}

	return headers, nil
}

func (s *CNPGStore) SaveHeaders(ctx context.Context, headers []models.RecordingHeader) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save recording index: begin: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Warn().Err(err).Msg("Failed to roll back index transaction")
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM recording_index`); err != nil {
		return fmt.Errorf("save recording index: clear: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"recording_index"},
		[]string{"begin_ms", "begin_at", "end_at", "readings"},
		pgx.CopyFromSlice(len(headers), func(i int) ([]any, error) {
			h := headers[i]
			return []any{h.Begin.UnixMilli(), h.Begin, h.End, int32(h.Readings)}, nil
		}))
	if err != nil {
		return fmt.Errorf("save recording index: copy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save recording index: commit: %w", err)
	}

	return nil
}

func (s *CNPGStore) Close() error {
	s.pool.Close()

	return nil
}
