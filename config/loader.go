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

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config).
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// SkipEnvSubstitution disables ${VAR} substitution.
	SkipEnvSubstitution bool
	// SkipValidation disables configuration validation.
	SkipValidation bool
	// DotEnvFile, if it exists, is loaded into the process environment
	// before overrides are applied (development convenience; production
	// deployments set real environment variables instead).
	DotEnvFile string
}

// DefaultLoaderOptions returns the loader's default options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir:  "config",
		DotEnvFile: ".env",
	}
}

// Load loads configuration with automatic environment detection: a
// dotenv file if present, an environment-specific YAML file, falling
// back to default.yaml then config.yaml, then process-environment
// overrides (highest priority).
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	if options.DotEnvFile != "" {
		if _, err := os.Stat(options.DotEnvFile); err == nil {
			if err := godotenv.Load(options.DotEnvFile); err != nil {
				return nil, fmt.Errorf("config: load dotenv: %w", err)
			}
		}
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadConfigFile(filepath.Join(options.ConfigDir, env+".yaml"))
	if err != nil {
		cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "default.yaml"))
		if err != nil {
			cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "config.yaml"))
			if err != nil {
				cfg = &Config{}
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}
	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}
	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		for _, issue := range ValidateConfiguration(cfg) {
			if issue.Level == "error" {
				return nil, fmt.Errorf("config: validation failed: %s - %s", issue.Field, issue.Message)
			}
		}
	}

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides applies UAP_* process-environment variables
// over whatever the config file set, highest priority per §9.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("UAP_CA_ROOT_CERT_PATH"); v != "" && cfg.CA != nil {
		cfg.CA.RootCertPath = v
	}
	if v := os.Getenv("UAP_TRANSPORT_MODE"); v != "" && cfg.Transport != nil {
		cfg.Transport.Mode = v
	}
	if v := os.Getenv("UAP_TRANSPORT_WS_LISTEN_ADDR"); v != "" && cfg.Transport != nil {
		cfg.Transport.WSListenAddr = v
	}
	if v := os.Getenv("UAP_LOG_LEVEL"); v != "" && cfg.Logging != nil {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("UAP_LOG_FORMAT"); v != "" && cfg.Logging != nil {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("UAP_METRICS_ENABLED"); cfg.Metrics != nil {
		switch v {
		case "true":
			cfg.Metrics.Enabled = true
		case "false":
			cfg.Metrics.Enabled = false
		}
	}
}

// LoadForEnvironment loads configuration pinned to a specific environment.
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{ConfigDir: "config", Environment: environment, DotEnvFile: ".env"})
}

// MustLoad loads configuration or panics.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}
