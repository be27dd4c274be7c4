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

// Package api provides the HTTP query and control surface of the tracker:
// endpoint and recording listings, recording control and a websocket that
// streams registry and recording events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	srHttp "github.com/carverauto/beaconradar/pkg/http"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/gorilla/mux"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	healthPath = "/health"
)

// Server is the HTTP API server.
type Server struct {
	cfg       models.APIConfig
	router    *mux.Router
	hub       *Hub
	endpoints EndpointDirectory
	recorder  Recorder
	service   string
	config    json.RawMessage
	started   time.Time
	logger    logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithEndpoints serves the endpoint listing from dir.
func WithEndpoints(dir EndpointDirectory) Option {
	return func(s *Server) {
		s.endpoints = dir
	}
}

// WithRecorder serves recording listing and control from r.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithServiceName sets the service name reported by the status endpoint.
func WithServiceName(name string) Option {
	return func(s *Server) {
		s.service = name
	}
}

// WithConfig includes the given configuration document in the status
// response. It must already be sanitized.
func WithConfig(doc []byte) Option {
	return func(s *Server) {
		s.config = json.RawMessage(doc)
	}
}

// NewServer creates the API server. Routes whose backing component was not
// provided answer 503.
func NewServer(cfg models.APIConfig, log logger.Logger, opts ...Option) *Server {
	log = logger.Component(log, "api")

	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		service: "beacon-tracker",
		started: time.Now(),
		logger:  log,
	}

	for _, o := range opts {
		o(s)
	}

	s.hub = NewHub(s.snapshots, log)
	s.setupRoutes()

	return s
}

// Hub returns the event hub; register it with the registry and the
// recording manager to feed the event stream.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return srHttp.CommonMiddleware(next, s.cfg.AllowedOrigins, s.logger)
	})
	s.router.Use(srHttp.APIKeyMiddlewareWithOptions(srHttp.APIKeyOptions{
		APIKey:       s.cfg.APIKey,
		ExcludePaths: []string{healthPath},
		Logger:       s.logger,
	}))

	s.router.HandleFunc(healthPath, s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/endpoints", s.getEndpoints).Methods(http.MethodGet)
	api.HandleFunc("/endpoints/{id}", s.getEndpoint).Methods(http.MethodGet)
	api.HandleFunc("/recordings", s.getRecordings).Methods(http.MethodGet)
	api.HandleFunc("/recordings/start", s.startRecording).Methods(http.MethodPost)
	api.HandleFunc("/recordings/stop", s.stopRecording).Methods(http.MethodPost)
	api.HandleFunc("/recordings/cancel", s.cancelRecording).Methods(http.MethodPost)
	api.HandleFunc("/recordings/{begin}", s.getRecording).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
}

// Start serves on the configured address until ctx is done, then shuts
// down gracefully and closes the event stream.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("Starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.hub.Close()

		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("API server shutdown did not complete")
		return err
	}

	s.logger.Info().Msg("API server stopped")

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Message: message, Status: statusCode})
}
