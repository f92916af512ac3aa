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
	"time"

	"github.com/spf13/cobra"

	"github.com/uap-core/uap/token"
)

var (
	tokenTTL     time.Duration
	tokenIDToken string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bearer token operations",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer token for an entity, signed with the root CA key",
	Example: `  uap token issue --entity alice --ttl 1h --cert root.cert.pem --key root.key.pem`,
	RunE: runTokenIssue,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a previously issued token by its token ID",
	Example: `  uap token revoke --token-id 7f3c... --cert root.cert.pem --key root.key.pem`,
	RunE: runTokenRevoke,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd, tokenRevokeCmd)

	tokenIssueCmd.Flags().StringVar(&entityID, "entity", "", "entity ID the token is issued to (required)")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token time-to-live")
	tokenIssueCmd.Flags().StringVar(&caRootKey, "key", "root.key.pem", "path to the root signing key PEM")
	tokenIssueCmd.Flags().StringVar(&caRootOut, "cert", "root.cert.pem", "path to the root certificate PEM")
	_ = tokenIssueCmd.MarkFlagRequired("entity")

	tokenRevokeCmd.Flags().StringVar(&tokenIDToken, "token-id", "", "token ID to revoke (required)")
	tokenRevokeCmd.Flags().StringVar(&caRootKey, "key", "root.key.pem", "path to the root signing key PEM")
	tokenRevokeCmd.Flags().StringVar(&caRootOut, "cert", "root.cert.pem", "path to the root certificate PEM")
	_ = tokenRevokeCmd.MarkFlagRequired("token-id")
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	authority, err := loadRootAuthority()
	if err != nil {
		return err
	}

	svc := token.NewService(authority)
	tokenStr, tokenID, err := svc.Issue(entityID, tokenTTL, nil)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Printf("token id: %s\n", tokenID)
	fmt.Printf("token:    %s\n", tokenStr)
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	authority, err := loadRootAuthority()
	if err != nil {
		return err
	}

	svc := token.NewService(authority)
	svc.Revoke(tokenIDToken)
	fmt.Printf("revoked: %s\n", tokenIDToken)
	return nil
}
