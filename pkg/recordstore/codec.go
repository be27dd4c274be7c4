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
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
)

// recordingID is the storage key of the recording that began at begin.
func recordingID(begin time.Time) string {
	return strconv.FormatInt(begin.UnixMilli(), 10)
}

func encodeRecording(rec models.Recording) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode recording %s: %w", recordingID(rec.Begin), err)
	}

	return b, nil
}

// decodeRecording parses a stored recording and checks that every timeline
// has as many values as timestamps.
func decodeRecording(b []byte) (models.Recording, error) {
	var rec models.Recording
	if err := json.Unmarshal(b, &rec); err != nil {
		return models.Recording{}, fmt.Errorf("%w: %w", ErrMalformedRecording, err)
	}

	if rec.Begin.IsZero() {
		return models.Recording{}, fmt.Errorf("%w: missing begin", ErrMalformedRecording)
	}

	for id, timelines := range rec.Trackings {
		for key, data := range timelines {
			var values []json.RawMessage
			if err := json.Unmarshal(data.Values, &values); err != nil {
				return models.Recording{}, fmt.Errorf("%w: %s/%s: %w", ErrMalformedRecording, id, key, err)
			}

			if len(values) != len(data.Timestamps) {
				return models.Recording{}, fmt.Errorf("%w: %s/%s has %d timestamps and %d values",
					ErrMalformedRecording, id, key, len(data.Timestamps), len(values))
			}
		}
	}

	return rec, nil
}

func encodeHeaders(headers []models.RecordingHeader) ([]byte, error) {
	if headers == nil {
		headers = []models.RecordingHeader{}
	}

	b, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("encode recording index: %w", err)
	}

	return b, nil
}

// decodeHeaders parses the index and returns it sorted by begin.
func decodeHeaders(b []byte) ([]models.RecordingHeader, error) {
	var headers []models.RecordingHeader
	if err := json.Unmarshal(b, &headers); err != nil {
		return nil, fmt.Errorf("%w: index: %w", ErrMalformedRecording, err)
	}

	sortHeaders(headers)

	return headers, nil
}

func sortHeaders(headers []models.RecordingHeader) {
	slices.SortFunc(headers, func(a, b models.RecordingHeader) int { return a.Begin.Compare(b.Begin) })
}
