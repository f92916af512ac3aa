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

// Package ca implements the deployment-local certificate authority from
// §4.2: bootstrap a root, issue 30-day entity certificates, verify them,
// and revoke by serial. It is not a public CA — one CA per deployment,
// injected into whatever needs to authenticate peers.
package ca

import (
	"encoding/base64"
	"errors"
)

const (
	// CASubject is the self-signed root's subject/issuer string.
	CASubject = "UAP Core CA"

	SignatureAlgorithm = "ecdsa-with-SHA384"

	caValidity     = 365 * secondsPerDay
	entityValidity = 30 * secondsPerDay
	secondsPerDay  = 24 * 60 * 60
)

// BasicConstraints mirrors the X.509 extension of the same name.
type BasicConstraints struct {
	CA         bool `json:"ca"`
	PathLength int  `json:"path_length"`
}

// Extensions carries the fields §3 names for a Certificate.
type Extensions struct {
	BasicConstraints BasicConstraints `json:"basic_constraints"`
	KeyUsage         []string         `json:"key_usage"`
	EntityID         string           `json:"entity_id,omitempty"`
}

// Certificate is the data model from §3, encoded as canonical JSON and
// wrapped in PEM armor for transport (§6.3).
type Certificate struct {
	Version            int        `json:"version"`
	Serial             string     `json:"serial"`
	Issuer             string     `json:"issuer"`
	Subject            string     `json:"subject"`
	NotBefore          int64      `json:"not_before"`
	NotAfter           int64      `json:"not_after"`
	PublicKey          string     `json:"public_key"` // base64 DER, SubjectPublicKeyInfo
	Extensions         Extensions `json:"extensions"`
	Signature          []byte     `json:"signature,omitempty"`
	SignatureAlgorithm string     `json:"signature_algorithm,omitempty"`
}

// EntitySubject returns the "entity:<id>" subject form §3 requires.
func EntitySubject(entityID string) string {
	return "entity:" + entityID
}

// PublicKeyDER decodes the certificate's base64-encoded
// SubjectPublicKeyInfo public key.
func (c *Certificate) PublicKeyDER() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.PublicKey)
}

var (
	ErrNotBootstrapped = errors.New("ca: not bootstrapped")
	ErrCertExpired      = errors.New("ca: certificate outside validity window")
	ErrCertRevoked      = errors.New("ca: certificate revoked")
	ErrCertIssuer       = errors.New("ca: certificate issuer mismatch")
	ErrCertSignature    = errors.New("ca: certificate signature invalid")
	ErrCertMalformed    = errors.New("ca: malformed certificate PEM")
)
