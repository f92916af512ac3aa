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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "uap",
	Short: "uap CLI - certificate authority and token operations for the Universal Agent Protocol core",
	Long: `uap provides operational tooling around the core's entity Certificate
Authority and bearer-token service:

- Bootstrap and inspect a deployment's root CA
- Issue and verify entity certificates
- Issue and revoke bearer tokens
- Generate entity key pairs`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	// Subcommands register themselves in their own files:
	// - keygen.go: keygenCmd
	// - ca.go: caCmd, caBootstrapCmd, caIssueCmd, caVerifyCmd
	// - token.go: tokenCmd, tokenIssueCmd, tokenRevokeCmd
	// - vars.go: shared --entity flag variable
}
