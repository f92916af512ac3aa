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

	"github.com/uap-core/uap/crypto"
)

var keygenOutDir string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an entity key pair (P-384 ECDSA/ECDH) and write it as PEM",
	Example: `  # Generate a key pair for entity "alice" under ./keys
  uap keygen --entity alice --out ./keys`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVar(&entityID, "entity", "", "entity ID the key pair belongs to (required)")
	keygenCmd.Flags().StringVar(&keygenOutDir, "out", ".", "directory to write <entity>.key.pem and <entity>.pub.pem into")
	_ = keygenCmd.MarkFlagRequired("entity")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	privPEM, err := kp.PrivatePEM()
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}
	pubPEM, err := kp.PublicPEM()
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	if err := os.MkdirAll(keygenOutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	privPath := keygenOutDir + "/" + entityID + ".key.pem"
	pubPath := keygenOutDir + "/" + entityID + ".pub.pem"
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	fmt.Printf("entity:      %s\n", entityID)
	fmt.Printf("private key: %s\n", privPath)
	fmt.Printf("public key:  %s\n", pubPath)
	return nil
}
