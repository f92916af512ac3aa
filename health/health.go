// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package health serves liveness/readiness probes and the Prometheus
// /metrics endpoint over plain net/http. Grounded on the
// teacher's health package (one mux, one *http.Server, context-aware
// Stop), retargeted from blockchain-RPC connectivity to this core's own
// components: the Registry, Context Store, and entity CA.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/uap-core/uap/ca"
	"github.com/uap-core/uap/contextstore"
	"github.com/uap-core/uap/internal/logger"
	"github.com/uap-core/uap/internal/metrics"
	"github.com/uap-core/uap/registry"
)

// Status is a single check's outcome.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Checker evaluates the liveness of the process's core collaborators.
type Checker struct {
	directory *registry.Directory
	contexts  *contextstore.Store
	authority *ca.CA
}

// NewChecker builds a Checker over the process's shared components.
func NewChecker(directory *registry.Directory, contexts *contextstore.Store, authority *ca.CA) *Checker {
	return &Checker{directory: directory, contexts: contexts, authority: authority}
}

// Report is the JSON body returned by the /health endpoint.
type Report struct {
	Status          Status    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	RegisteredCount int       `json:"registered_entity_count"`
	ContextCount    int       `json:"context_count"`
	CAReady         bool      `json:"ca_ready"`
	Errors          []string  `json:"errors,omitempty"`
}

// CheckAll runs every check and aggregates a single Report.
func (c *Checker) CheckAll() *Report {
	report := &Report{Status: StatusHealthy, Timestamp: time.Now().UTC()}

	if c.directory != nil {
		report.RegisteredCount = len(c.directory.All())
	}
	if c.contexts != nil {
		report.ContextCount = len(c.contexts.ListContexts())
	}

	if c.authority != nil {
		if certPEM, err := c.authority.RootCertPEM(); err == nil && len(certPEM) > 0 {
			report.CAReady = true
		}
	}
	if !report.CAReady {
		report.Status = StatusUnhealthy
		report.Errors = append(report.Errors, "CA: root certificate unavailable")
	}

	return report
}

// Server exposes /health, /health/live, /health/ready, and /metrics.
type Server struct {
	checker *Checker
	log     logger.Logger
	srv     *http.Server
}

// NewServer builds a Server listening on addr (e.g. ":8080").
func NewServer(checker *Checker, addr string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		checker: checker,
		log:     logger.GetDefaultLogger().WithFields(logger.String("component", "health")),
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)
	mux.Handle("/metrics", metrics.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.log.Info("starting health server", logger.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("health server error", logger.Any("error", err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.checker.CheckAll()
	w.Header().Set("Content-Type", "application/json")
	if report.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(report)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	report := s.checker.CheckAll()
	ready := report.CAReady
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ready":     ready,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"errors":    report.Errors,
	})
}
