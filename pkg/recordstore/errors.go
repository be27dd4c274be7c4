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
	"errors"
)

var (
	// ErrRecordingNotFound is returned by Load when no recording began at the requested time.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrMalformedRecording is returned when a stored recording or index cannot be decoded.
	ErrMalformedRecording = errors.New("malformed recording")

	errUnsupportedBackend = errors.New("unsupported storage backend")
	errNATSRequired       = errors.New("nats configuration is required for the kv backend")
)
