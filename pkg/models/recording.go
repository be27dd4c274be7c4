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

import (
	"encoding/json"
	"time"
)

// Well-known sample keys.
const (
	KeyTemperature = "temperature"
	KeyHumidity    = "humidity"
	KeyLocation    = "location"
	KeyLight       = "light"
	KeyBattery     = "battery"
)

// Location is a position fix reported by a positioning endpoint.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Acc float64 `json:"acc"`
}

// Sample is a single keyed reading. Value holds a float64, an int64 or a Location.
type Sample struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func NumberSample(key string, v float64, ts time.Time) Sample {
	return Sample{Key: key, Value: v, Timestamp: ts}
}

func IntegerSample(key string, v int64, ts time.Time) Sample {
	return Sample{Key: key, Value: v, Timestamp: ts}
}

func LocationSample(key string, v Location, ts time.Time) Sample {
	return Sample{Key: key, Value: v, Timestamp: ts}
}

// RecordingHeader summarizes a persisted recording.
type RecordingHeader struct {
	Begin    time.Time `json:"begin"`
	End      time.Time `json:"end"`
	Readings int       `json:"readings"`
}

// TimelineData is the persisted form of one sample timeline. Timestamps are
// Unix milliseconds; Values is a JSON array of the same length.
type TimelineData struct {
	Kind       string          `json:"kind"`
	Timestamps []int64         `json:"timestamps"`
	Values     json.RawMessage `json:"values"`
}

// Recording is the persisted form of a sealed recording session.
type Recording struct {
	Begin     time.Time                          `json:"begin"`
	End       time.Time                          `json:"end"`
	Trackings map[string]map[string]TimelineData `json:"trackings"`
}
