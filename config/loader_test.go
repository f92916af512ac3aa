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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToEmptyConfigWithDefaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir(), DotEnvFile: ""})
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Transport.Mode)
}

func TestLoadPrefersEnvironmentSpecificFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveToFile(&Config{Logging: &LoggingConfig{Level: "debug"}}, filepath.Join(dir, "staging.yaml")))
	require.NoError(t, SaveToFile(&Config{Logging: &LoggingConfig{Level: "error"}}, filepath.Join(dir, "default.yaml")))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("UAP_TRANSPORT_MODE", "ws")
	t.Setenv("UAP_LOG_LEVEL", "warn")

	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "ws", cfg.Transport.Mode)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalidTransportMode(t *testing.T) {
	t.Setenv("UAP_TRANSPORT_MODE", "bogus")
	_, err := Load(LoaderOptions{ConfigDir: t.TempDir()})
	assert.Error(t, err)
}

func TestLoadSkipValidationAllowsInvalidConfig(t *testing.T) {
	t.Setenv("UAP_TRANSPORT_MODE", "bogus")
	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir(), SkipValidation: true})
	require.NoError(t, err)
	assert.Equal(t, "bogus", cfg.Transport.Mode)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("UAP_LOG_LEVEL=debug\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir(), DotEnvFile: envPath})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestMustLoadPanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("UAP_TRANSPORT_MODE", "bogus")
	assert.Panics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: t.TempDir()})
	})
}
