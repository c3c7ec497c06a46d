// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transport exposes the command envelope (spec.md §6) over HTTP.
// It is a thin edge: deserialize, call into the dispatcher, serialize the
// response. No business logic lives here.
package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"synap/internal/dispatch"
	"synap/internal/logx"
)

var httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "synap_http_request_duration_seconds",
	Help: "Latency of /api/v1/command requests, labeled by command.",
}, []string{"command"})

func init() {
	prometheus.MustRegister(httpRequestDuration)
}

// Server is the HTTP edge around a dispatch.Dispatcher.
type Server struct {
	Dispatcher *dispatch.Dispatcher
}

// NewServer builds a transport Server around an already-wired dispatcher.
func NewServer(d *dispatch.Dispatcher) *Server {
	return &Server{Dispatcher: d}
}

// RegisterRoutes mounts the command endpoint on mux. A dedicated
// /metrics exposition path is an explicit non-goal (spec.md §1) —
// httpRequestDuration still feeds the process's registered Prometheus
// collectors for whatever
// internal scrape path an operator wires in at the edge.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/command", s.handleCommand)
}

// handleCommand decodes one Envelope, dispatches it, and writes back the
// Response verbatim — the wire protocol carries success/failure in the
// JSON body, so this handler answers 200 except for a non-POST method
// (405) and a malformed request body it could not even decode (400).
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env dispatch.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "malformed command envelope: "+err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	resp := s.Dispatcher.Dispatch(env)
	httpRequestDuration.WithLabelValues(env.Command).Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logx.Errorf("transport: encoding response for request %s: %v", env.RequestID, err)
	}
}

// ListenAndServe starts the HTTP server on addr with read/write/idle
// timeouts set explicitly rather than left at their zero-value defaults.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	logx.Infof("transport: listening on %s", addr)
	return httpServer.ListenAndServe()
}
