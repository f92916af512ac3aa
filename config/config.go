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

// Package config loads the process-wide configuration for the Registry,
// Security Manager, Context Store, Router, and Transport from a YAML/JSON
// file with environment-variable overrides, following the teacher's
// config package's load-then-override shape.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a uap process.
type Config struct {
	Environment  string              `yaml:"environment" json:"environment"`
	CA           *CAConfig           `yaml:"ca" json:"ca"`
	Registry     *RegistryConfig     `yaml:"registry" json:"registry"`
	ContextStore *ContextStoreConfig `yaml:"context_store" json:"context_store"`
	Transport    *TransportConfig    `yaml:"transport" json:"transport"`
	Logging      *LoggingConfig      `yaml:"logging" json:"logging"`
	Metrics      *MetricsConfig      `yaml:"metrics" json:"metrics"`
	Health       *HealthConfig       `yaml:"health" json:"health"`
}

// CAConfig configures the entity Certificate Authority.
type CAConfig struct {
	// ValidityPeriod is a configured certificate lifetime. It is loaded,
	// defaulted, and validated here, but the ca package does not read it:
	// ca issues entity certs with its own fixed 30-day validity.
	ValidityPeriod time.Duration `yaml:"validity_period" json:"validity_period"`
	// RootCertPath, if set, persists/loads the root cert PEM across
	// restarts. Empty means generate a fresh root on every start.
	RootCertPath string `yaml:"root_cert_path" json:"root_cert_path"`
}

// RegistryConfig configures the entity Registry's liveness tracking.
type RegistryConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" json:"heartbeat_interval"`
}

// ContextStoreConfig configures the Context Store's idle sweeper and
// default bounds (§4.4).
type ContextStoreConfig struct {
	IdleGCInterval    time.Duration `yaml:"idle_gc_interval" json:"idle_gc_interval"`
	IdleAge           time.Duration `yaml:"idle_age" json:"idle_age"`
	DefaultMaxSize    int           `yaml:"default_max_size" json:"default_max_size"`
}

// TransportConfig selects and configures the Transport implementation
// (§9): "local" (default, in-process) or "ws" (gorilla/websocket).
type TransportConfig struct {
	Mode          string `yaml:"mode" json:"mode"`
	WSListenAddr  string `yaml:"ws_listen_addr" json:"ws_listen_addr"`
	WSRemoteURL   string `yaml:"ws_remote_url" json:"ws_remote_url"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig configures the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig configures the health-check endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile reads cfg from path, trying YAML then JSON, and applies
// defaults to any unset field.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path as YAML, or JSON if path ends in ".json".
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

// setDefaults fills every unset section with its operational default.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.CA == nil {
		cfg.CA = &CAConfig{}
	}
	if cfg.CA.ValidityPeriod == 0 {
		cfg.CA.ValidityPeriod = 365 * 24 * time.Hour
	}

	if cfg.Registry == nil {
		cfg.Registry = &RegistryConfig{}
	}
	if cfg.Registry.HeartbeatInterval == 0 {
		cfg.Registry.HeartbeatInterval = 30 * time.Second
	}

	if cfg.ContextStore == nil {
		cfg.ContextStore = &ContextStoreConfig{}
	}
	if cfg.ContextStore.IdleGCInterval == 0 {
		cfg.ContextStore.IdleGCInterval = 5 * time.Minute
	}
	if cfg.ContextStore.IdleAge == 0 {
		cfg.ContextStore.IdleAge = 30 * time.Minute
	}
	if cfg.ContextStore.DefaultMaxSize == 0 {
		cfg.ContextStore.DefaultMaxSize = 1000
	}

	if cfg.Transport == nil {
		cfg.Transport = &TransportConfig{}
	}
	if cfg.Transport.Mode == "" {
		cfg.Transport.Mode = "local"
	}
	if cfg.Transport.WSListenAddr == "" {
		cfg.Transport.WSListenAddr = ":7070"
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}

	if cfg.Health == nil {
		cfg.Health = &HealthConfig{}
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = "/healthz"
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 8080
	}
}
