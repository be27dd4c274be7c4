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

package models

import "fmt"

// LinkStatus is the raw status code attached to a transport event.
type LinkStatus int

const (
	StatusSuccess                    LinkStatus = 0
	StatusReadNotPermitted           LinkStatus = 0x02
	StatusWriteNotPermitted          LinkStatus = 0x03
	StatusInsufficientAuthentication LinkStatus = 0x05
	StatusRequestNotSupported        LinkStatus = 0x06
	StatusInvalidOffset              LinkStatus = 0x07
	StatusInvalidAttributeLength     LinkStatus = 0x0d
	StatusInsufficientEncryption     LinkStatus = 0x0f
	StatusLinkError                  LinkStatus = 0x85
	StatusConnectionCongested        LinkStatus = 0x8f
	StatusFailure                    LinkStatus = 0x101
)

// IsSuccess reports whether the status denotes a successful operation.
func (s LinkStatus) IsSuccess() bool {
	return s == StatusSuccess
}

// Message renders the status as a human-readable message.
func (s LinkStatus) Message() string {
	switch s {
	case StatusSuccess:
		return "Operation successful"
	case StatusInsufficientAuthentication:
		return "Insufficient authentication"
	case StatusInsufficientEncryption:
		return "Insufficient encryption"
	case StatusConnectionCongested:
		return "Device congested"
	case StatusInvalidOffset:
		return "Invalid offset"
	case StatusInvalidAttributeLength:
		return "Wrong attribute length"
	case StatusReadNotPermitted:
		return "Read not permitted"
	case StatusWriteNotPermitted:
		return "Write not permitted"
	case StatusRequestNotSupported:
		return "Not supported"
	case StatusLinkError:
		return "Link error"
	case StatusFailure:
		return "Operation failed"
	default:
		return fmt.Sprintf("Unknown error code: %d", int(s))
	}
}

func (s LinkStatus) String() string {
	return s.Message()
}
