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
	"crypto/x509"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uap-core/uap/ca"
	"github.com/uap-core/uap/crypto"
)

var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Certificate Authority operations",
}

var (
	caRootOut  string
	caRootKey  string
	caPubKeyIn string
)

var caBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Generate a fresh root CA key pair and self-signed root certificate",
	Example: `  uap ca bootstrap --cert root.cert.pem --key root.key.pem`,
	RunE: runCABootstrap,
}

var caIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue an entity certificate signed by a root CA key",
	Example: `  uap ca issue --entity alice --pubkey alice.pub.pem --key root.key.pem --cert root.cert.pem`,
	RunE: runCAIssue,
}

var caVerifyCmd = &cobra.Command{
	Use:   "verify FILE",
	Short: "Verify an entity or root certificate PEM file",
	Args:  cobra.ExactArgs(1),
	Example: `  uap ca verify alice.cert.pem --cert root.cert.pem --key root.key.pem`,
	RunE: runCAVerify,
}

func init() {
	rootCmd.AddCommand(caCmd)
	caCmd.AddCommand(caBootstrapCmd, caIssueCmd, caVerifyCmd)

	caBootstrapCmd.Flags().StringVar(&caRootOut, "cert", "root.cert.pem", "path to write the root certificate PEM")
	caBootstrapCmd.Flags().StringVar(&caRootKey, "key", "root.key.pem", "path to write the root signing key PEM")

	caIssueCmd.Flags().StringVar(&entityID, "entity", "", "entity ID the certificate is issued to (required)")
	caIssueCmd.Flags().StringVar(&caPubKeyIn, "pubkey", "", "path to the entity's public key PEM (required)")
	caIssueCmd.Flags().StringVar(&caRootKey, "key", "root.key.pem", "path to the root signing key PEM")
	caIssueCmd.Flags().StringVar(&caRootOut, "cert", "root.cert.pem", "path to the root certificate PEM")
	_ = caIssueCmd.MarkFlagRequired("entity")
	_ = caIssueCmd.MarkFlagRequired("pubkey")

	caVerifyCmd.Flags().StringVar(&caRootKey, "key", "root.key.pem", "path to the root signing key PEM")
	caVerifyCmd.Flags().StringVar(&caRootOut, "cert", "root.cert.pem", "path to the root certificate PEM")
}

func runCABootstrap(cmd *cobra.Command, args []string) error {
	authority := ca.New()
	certPEM, keyPEM, err := authority.Bootstrap()
	if err != nil {
		return fmt.Errorf("bootstrap CA: %w", err)
	}
	if err := os.WriteFile(caRootOut, certPEM, 0o644); err != nil {
		return fmt.Errorf("write root certificate: %w", err)
	}
	if err := os.WriteFile(caRootKey, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write root key: %w", err)
	}
	fmt.Printf("root certificate: %s\n", caRootOut)
	fmt.Printf("root key:         %s\n", caRootKey)
	return nil
}

func loadRootAuthority() (*ca.CA, error) {
	certPEM, err := os.ReadFile(caRootOut)
	if err != nil {
		return nil, fmt.Errorf("read root certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(caRootKey)
	if err != nil {
		return nil, fmt.Errorf("read root key: %w", err)
	}
	authority := ca.New()
	if err := authority.LoadRoot(certPEM, keyPEM); err != nil {
		return nil, fmt.Errorf("load root: %w", err)
	}
	return authority, nil
}

func runCAIssue(cmd *cobra.Command, args []string) error {
	authority, err := loadRootAuthority()
	if err != nil {
		return err
	}

	pubPEM, err := os.ReadFile(caPubKeyIn)
	if err != nil {
		return fmt.Errorf("read entity public key: %w", err)
	}
	pub, err := crypto.ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return fmt.Errorf("parse entity public key: %w", err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return fmt.Errorf("marshal entity public key: %w", err)
	}

	certPEM, err := authority.IssueCert(entityID, der)
	if err != nil {
		return fmt.Errorf("issue certificate: %w", err)
	}

	fmt.Print(string(certPEM))
	return nil
}

func runCAVerify(cmd *cobra.Command, args []string) error {
	certPEM, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read certificate: %w", err)
	}

	authority, err := loadRootAuthority()
	if err != nil {
		return err
	}

	ok, err := authority.VerifyCert(certPEM)
	if err != nil {
		fmt.Printf("valid: false (%v)\n", err)
		os.Exit(1)
	}
	fmt.Printf("valid: %t\n", ok)
	if !ok {
		os.Exit(1)
	}
	return nil
}
