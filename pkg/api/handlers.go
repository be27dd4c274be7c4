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

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/recording"
	"github.com/carverauto/beaconradar/pkg/version"
	"github.com/gorilla/mux"
)

func (*Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Service: s.service,
		Build:   version.GetInfo(),
		Uptime:  models.Duration(time.Since(s.started).Round(time.Second)),
		Clients: s.hub.ClientCount(),
		Config:  s.config,
	}

	if s.endpoints != nil {
		resp.Endpoints = len(s.endpoints.Endpoints())
	}

	if s.recorder != nil {
		if sess := s.recorder.Active(); sess != nil {
			h := sess.Header()
			resp.Recording = &h
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) snapshots() []models.EndpointSnapshot {
	if s.endpoints == nil {
		return nil
	}

	eps := s.endpoints.Endpoints()
	out := make([]models.EndpointSnapshot, 0, len(eps))

	for _, ep := range eps {
		out = append(out, ep.Snapshot())
	}

	return out
}

func (s *Server) getEndpoints(w http.ResponseWriter, _ *http.Request) {
	if s.endpoints == nil {
		writeError(w, "Endpoint registry not configured", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, s.snapshots())
}

func (s *Server) getEndpoint(w http.ResponseWriter, r *http.Request) {
	if s.endpoints == nil {
		writeError(w, "Endpoint registry not configured", http.StatusServiceUnavailable)
		return
	}

	ep, ok := s.endpoints.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, "Endpoint not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, ep.Snapshot())
}

func (s *Server) getRecordings(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		writeError(w, "Recording not configured", http.StatusServiceUnavailable)
		return
	}

	resp := RecordingsResponse{Recordings: s.recorder.Headers()}
	if resp.Recordings == nil {
		resp.Recordings = []models.RecordingHeader{}
	}

	if sess := s.recorder.Active(); sess != nil {
		h := sess.Header()
		resp.Active = &h
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseBegin accepts Unix milliseconds or an RFC 3339 timestamp.
func parseBegin(raw string) (time.Time, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	return time.Parse(time.RFC3339Nano, raw)
}

func (s *Server) getRecording(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		writeError(w, "Recording not configured", http.StatusServiceUnavailable)
		return
	}

	begin, err := parseBegin(mux.Vars(r)["begin"])
	if err != nil {
		writeError(w, "Invalid recording begin time", http.StatusBadRequest)
		return
	}

	sess, err := s.recorder.Get(r.Context(), begin)
	if errors.Is(err, recording.ErrUnknownRecording) {
		writeError(w, "Recording not found", http.StatusNotFound)
		return
	}

	if err != nil {
		s.logger.Error().Err(err).Time("begin", begin).Msg("Failed to load recording")
		writeError(w, "Failed to load recording", http.StatusInternalServerError)

		return
	}

	rec, err := sess.Recording()
	if err != nil {
		s.logger.Error().Err(err).Time("begin", begin).Msg("Failed to encode recording")
		writeError(w, "Failed to encode recording", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) startRecording(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		writeError(w, "Recording not configured", http.StatusServiceUnavailable)
		return
	}

	if !s.recorder.StartTracking() {
		writeError(w, "A recording is already active", http.StatusConflict)
		return
	}

	var header models.RecordingHeader
	if sess := s.recorder.Active(); sess != nil {
		header = sess.Header()
	}

	writeJSON(w, http.StatusCreated, header)
}

func (s *Server) stopRecording(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		writeError(w, "Recording not configured", http.StatusServiceUnavailable)
		return
	}

	stopped, err := s.recorder.StopTracking(r.Context())
	if err != nil {
		writeError(w, "Failed to persist recording", http.StatusInternalServerError)
		return
	}

	if !stopped {
		writeError(w, "No active recording", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cancelRecording(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		writeError(w, "Recording not configured", http.StatusServiceUnavailable)
		return
	}

	if !s.recorder.CancelTracking() {
		writeError(w, "No active recording", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, s.cfg.AllowedOrigins)
}
