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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uap.yaml")
	require.NoError(t, SaveToFile(&Config{Environment: "staging"}, path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 365*24*time.Hour, cfg.CA.ValidityPeriod)
	assert.Equal(t, 30*time.Second, cfg.Registry.HeartbeatInterval)
	assert.Equal(t, "local", cfg.Transport.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFileParsesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uap.json")
	require.NoError(t, SaveToFile(&Config{Environment: "production"}, path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveToFileRoundTripsYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Environment: "development"}
	setDefaults(cfg)
	cfg.Transport.WSListenAddr = ":9999"

	for _, ext := range []string{".yaml", ".json"} {
		path := filepath.Join(dir, "uap"+ext)
		require.NoError(t, SaveToFile(cfg, path))

		loaded, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, ":9999", loaded.Transport.WSListenAddr)
	}
}

func TestValidateConfigurationRejectsUnknownTransportMode(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Transport.Mode = "carrier-pigeon"

	issues := ValidateConfiguration(cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "transport.mode", issues[0].Field)
	assert.Equal(t, "error", issues[0].Level)
}

func TestValidateConfigurationWarnsOnUnknownLogLevel(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Logging.Level = "verbose"

	issues := ValidateConfiguration(cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "warning", issues[0].Level)
}

func TestValidateConfigurationClean(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	assert.Empty(t, ValidateConfiguration(cfg))
}
