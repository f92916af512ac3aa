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

// Package version reports build information for the uap CLI and any
// process embedding the core as a library.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build information. Populated at build-time via ldflags.
var (
	Version   = "0.1.0"
	GitCommit = ""
	GitBranch = ""
	BuildDate = ""
	GoVersion = runtime.Version()
)

// Info is the structured view of the build information above.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	GitBranch string `json:"git_branch,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the current build's version information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the version information as a single human-readable line.
func String() string {
	info := Get()
	if info.GitCommit != "" {
		commit := info.GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		return fmt.Sprintf("%s (commit: %s, branch: %s, built: %s, go: %s, platform: %s)",
			info.Version, commit, info.GitBranch, info.BuildDate, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("%s (go: %s, platform: %s)", info.Version, info.GoVersion, info.Platform)
}

// Short returns version plus a short commit suffix when known.
func Short() string {
	if GitCommit != "" && len(GitCommit) >= 7 {
		return fmt.Sprintf("%s-%s", Version, GitCommit[:7])
	}
	return Version
}

// UserAgent returns a "uap/<version>" User-Agent string. The WebSocket
// client in transport/ws does not send it; its dials carry no extra headers.
func UserAgent() string {
	return fmt.Sprintf("uap/%s", Short())
}

// ModuleVersion resolves the version from Go module build info, falling
// back to Version when the core is the main module rather than an
// imported dependency.
func ModuleVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	for _, dep := range info.Deps {
		if dep.Path == "github.com/uap-core/uap" && dep.Version != "" && dep.Version != "(devel)" {
			return dep.Version
		}
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
