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

// Package natsutil publishes registry and recording events as CloudEvents on
// NATS JetStream.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	endpointSubjectPrefix  = "beacons.endpoint."
	recordingSubjectPrefix = "beacons.recording."
	eventTypePrefix        = "com.carverauto.beaconradar."
)

// EndpointEventData is the payload of an endpoint CloudEvent.
type EndpointEventData struct {
	models.EndpointEvent
	Endpoint *models.EndpointSnapshot `json:"endpoint,omitempty"`
}

// EventPublisher provides methods for publishing CloudEvents to NATS JetStream.
type EventPublisher struct {
	js     jetstream.JetStream
	stream string
	source string
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName, source string) *EventPublisher {
	if source == "" {
		source = "beaconradar/tracker"
	}

	return &EventPublisher{
		js:     js,
		stream: streamName,
		source: source,
	}
}

// EnsureStream creates the stream if it does not exist yet, making sure it
// captures both event families.
func (p *EventPublisher) EnsureStream(ctx context.Context, subjects []string) error {
	_, err := p.js.Stream(ctx, p.stream)
	if err == nil {
		return nil
	}

	if !isStreamMissingErr(err) {
		return fmt.Errorf("failed to look up stream %s: %w", p.stream, err)
	}

	subjects = ensureSubjectList(subjects, endpointSubjectPrefix+"added")
	subjects = ensureSubjectList(subjects, recordingSubjectPrefix+"started")

	_, err = p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     p.stream,
		Subjects: subjects,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", p.stream, err)
	}

	return nil
}

// PublishEndpointEvent publishes a registry event on beacons.endpoint.<type>.
func (p *EventPublisher) PublishEndpointEvent(ctx context.Context, data EndpointEventData) error {
	kind := strings.ToLower(string(data.Type))

	return p.publish(ctx, endpointSubjectPrefix+kind, "endpoint."+kind, data.EndpointID, data.Timestamp, data)
}

// PublishRecordingEvent publishes a recording lifecycle event on beacons.recording.<type>.
func (p *EventPublisher) PublishRecordingEvent(ctx context.Context, event models.RecordingEvent) error {
	kind := strings.ToLower(string(event.Type))
	subject := event.Header.Begin.UTC().Format(time.RFC3339Nano)

	return p.publish(ctx, recordingSubjectPrefix+kind, "recording."+kind, subject, event.Timestamp, event)
}

func (p *EventPublisher) publish(ctx context.Context, subject, eventType, about string, ts time.Time, data any) error {
	if ts.IsZero() {
		ts = time.Now()
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          p.source,
		Type:            eventTypePrefix + eventType,
		DataContentType: "application/json",
		Subject:         about,
		Time:            &ts,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if _, err := p.js.Publish(ctx, subject, eventBytes); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}
