// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mgmtapi implements the http management API of the srvpool service.
package mgmtapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/scionproto/srvpool/pkg/endpointpool"
	"github.com/scionproto/srvpool/pkg/log"
)

// BaseURL is the prefix of all API routes.
const BaseURL = "/api/v1"

// Pool is the part of the endpoint pool the API exposes.
type Pool interface {
	Hostname() string
	HasEndpoints() bool
	Status() endpointpool.Status
	Endpoints() []endpointpool.EndpointInfo
	TriggerResolution()
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Hostname     string `json:"hostname" yaml:"hostname"`
	HasEndpoints bool   `json:"has_endpoints" yaml:"has_endpoints"`
	Total        int    `json:"total" yaml:"total"`
	Unhealthy    int    `json:"unhealthy" yaml:"unhealthy"`
	// AgeMillis is the time since the last successful resolution in
	// milliseconds.
	AgeMillis int64 `json:"age_ms" yaml:"age_ms"`
}

// Problem describes an error in the format of RFC 7807.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Server implements the management API.
type Server struct {
	Pool Pool
}

// Handler returns the handler serving the API under BaseURL.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))
	r.Route(BaseURL, func(r chi.Router) {
		r.Get("/status", s.GetStatus)
		r.Get("/endpoints", s.GetEndpoints)
		r.Post("/resolve", s.TriggerResolution)
	})
	return r
}

// GetStatus writes the status of the pool.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Pool.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		Hostname:     s.Pool.Hostname(),
		HasEndpoints: s.Pool.HasEndpoints(),
		Total:        st.Total,
		Unhealthy:    st.Unhealthy,
		AgeMillis:    st.Age.Milliseconds(),
	})
}

// GetEndpoints writes the endpoints of the pool in rotation order.
func (s *Server) GetEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Pool.Endpoints())
}

// TriggerResolution requests an immediate resolution. The resolution runs
// asynchronously.
func (s *Server) TriggerResolution(w http.ResponseWriter, r *http.Request) {
	s.Pool.TriggerResolution()
	log.FromCtx(r.Context()).Info("Resolution triggered through API",
		"remote", r.RemoteAddr)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		ErrorResponse(w, Problem{
			Title:  "unable to marshal response",
			Status: http.StatusInternalServerError,
			Detail: err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(raw, '\n'))
}

// ErrorResponse writes a detailed error response.
func ErrorResponse(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	// no point in catching error here, there is nothing we can do about it anymore.
	_ = enc.Encode(p)
}
