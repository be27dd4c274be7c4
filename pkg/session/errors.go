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

package session

import "errors"

var (
	ErrNotConnected      = errors.New("session is not connected")
	ErrReadAllInProgress = errors.New("a read-all operation is already running")
	ErrReadAllTimeout    = errors.New("read-all operation timed out")
	ErrReadAllCancelled  = errors.New("read-all operation cancelled")
	ErrServiceNotFound   = errors.New("service not found")
	ErrAttributeNotFound = errors.New("attribute not found")
)
