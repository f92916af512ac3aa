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

package ca

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uap-core/uap/crypto"
	"github.com/uap-core/uap/internal/wire"
)

const (
	pemHeader = "-----BEGIN CERTIFICATE-----"
	pemFooter = "-----END CERTIFICATE-----"
)

// CA is a single deployment-local certificate authority.
type CA struct {
	mu      sync.RWMutex
	key     *crypto.KeyPair
	cert    *Certificate
	revoked map[string]struct{}

	now func() time.Time
}

// New creates an un-bootstrapped CA. Call Bootstrap before issuing or
// verifying certificates.
func New() *CA {
	return &CA{
		revoked: make(map[string]struct{}),
		now:     time.Now,
	}
}

// Bootstrap generates a fresh CA key pair and a self-signed, 1-year-valid
// root certificate (§4.2).
func (c *CA) Bootstrap() (certPEM, keyPEM []byte, err error) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := kp.PublicKeyDER()
	if err != nil {
		return nil, nil, err
	}

	now := c.now().Unix()
	cert := &Certificate{
		Version:   1,
		Serial:    uuid.NewString(),
		Issuer:    CASubject,
		Subject:   CASubject,
		NotBefore: now,
		NotAfter:  now + caValidity,
		PublicKey: base64.StdEncoding.EncodeToString(pubDER),
		Extensions: Extensions{
			BasicConstraints: BasicConstraints{CA: true, PathLength: 0},
			KeyUsage:         []string{"cert_sign", "crl_sign"},
		},
	}

	if err := sign(cert, kp); err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.key = kp
	c.cert = cert
	c.mu.Unlock()

	certPEM, err = Encode(cert)
	if err != nil {
		return nil, nil, err
	}
	keyPEM, err = kp.PrivatePEM()
	if err != nil {
		return nil, nil, err
	}
	return certPEM, keyPEM, nil
}

// LoadRoot installs a previously-bootstrapped CA key and self-signed
// certificate, for deployments that persist the CA across restarts.
func (c *CA) LoadRoot(certPEM, keyPEM []byte) error {
	kp, err := crypto.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return err
	}
	cert, err := Decode(certPEM)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.key = kp
	c.cert = cert
	c.mu.Unlock()
	return nil
}

// IssueCert issues a 30-day entity certificate for entityID, binding
// entityPubKeyDER (SubjectPublicKeyInfo DER) as its public key.
func (c *CA) IssueCert(entityID string, entityPubKeyDER []byte) ([]byte, error) {
	c.mu.RLock()
	caKey, caCert := c.key, c.cert
	c.mu.RUnlock()
	if caKey == nil || caCert == nil {
		return nil, ErrNotBootstrapped
	}

	now := c.now().Unix()
	cert := &Certificate{
		Version:   1,
		Serial:    uuid.NewString(),
		Issuer:    caCert.Subject,
		Subject:   EntitySubject(entityID),
		NotBefore: now,
		NotAfter:  now + entityValidity,
		PublicKey: base64.StdEncoding.EncodeToString(entityPubKeyDER),
		Extensions: Extensions{
			BasicConstraints: BasicConstraints{CA: false},
			KeyUsage:         []string{"digital_signature", "key_encipherment"},
			EntityID:         entityID,
		},
	}

	if err := sign(cert, caKey); err != nil {
		return nil, err
	}
	return Encode(cert)
}

// VerifyCert checks that certPEM is in-window, not revoked, issued by this
// CA, and carries a valid signature under the CA's public key (§4.2, §8.8).
func (c *CA) VerifyCert(certPEM []byte) (bool, error) {
	cert, err := Decode(certPEM)
	if err != nil {
		return false, err
	}

	c.mu.RLock()
	caKey, caCert := c.key, c.cert
	_, revoked := c.revoked[cert.Serial]
	c.mu.RUnlock()

	if caKey == nil || caCert == nil {
		return false, ErrNotBootstrapped
	}
	if revoked {
		return false, ErrCertRevoked
	}
	now := c.now().Unix()
	if now < cert.NotBefore || now > cert.NotAfter {
		return false, ErrCertExpired
	}
	if cert.Issuer != caCert.Subject {
		return false, ErrCertIssuer
	}

	canon, err := canonicalForSigning(cert)
	if err != nil {
		return false, err
	}
	if !crypto.VerifyWithKey(&caKey.ECDSA().PublicKey, canon, cert.Signature) {
		return false, ErrCertSignature
	}
	return true, nil
}

// Revoke adds serial to the CA's in-memory revocation set. A revoked
// certificate authenticates nothing, even within its validity window.
func (c *CA) Revoke(serial string) {
	c.mu.Lock()
	c.revoked[serial] = struct{}{}
	c.mu.Unlock()
}

// SigningKey returns the CA's own key pair, for collaborators within the
// same process (the token service) that need to sign as the CA. The key
// never leaves the process boundary this way.
func (c *CA) SigningKey() (*crypto.KeyPair, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.key == nil {
		return nil, ErrNotBootstrapped
	}
	return c.key, nil
}

// RootCertPEM returns the CA's own certificate, for distribution to peers
// that need to verify entity certificates this CA issues.
func (c *CA) RootCertPEM() ([]byte, error) {
	c.mu.RLock()
	cert := c.cert
	c.mu.RUnlock()
	if cert == nil {
		return nil, ErrNotBootstrapped
	}
	return Encode(cert)
}

func sign(cert *Certificate, kp *crypto.KeyPair) error {
	canon, err := canonicalForSigning(cert)
	if err != nil {
		return err
	}
	sig, err := crypto.SignWithKey(kp, canon)
	if err != nil {
		return err
	}
	cert.Signature = sig
	cert.SignatureAlgorithm = SignatureAlgorithm
	return nil
}

// canonicalForSigning reproduces the canonicalization contract (§4.2):
// the certificate's JSON form with `signature` and `signature_algorithm`
// absent, sorted keys, no insignificant whitespace.
func canonicalForSigning(cert *Certificate) ([]byte, error) {
	cp := *cert
	cp.Signature = nil
	cp.SignatureAlgorithm = ""
	return wire.Canonical(&cp)
}

// Encode wraps a certificate's canonical JSON (including its signature)
// in PEM armor.
func Encode(cert *Certificate) ([]byte, error) {
	raw, err := wire.Canonical(cert)
	if err != nil {
		return nil, err
	}
	b64 := base64.StdEncoding.EncodeToString(raw)
	return []byte(pemHeader + "\n" + b64 + "\n" + pemFooter), nil
}

// Decode parses a PEM-armored certificate back into a Certificate.
func Decode(pemBytes []byte) (*Certificate, error) {
	s := strings.TrimSpace(string(pemBytes))
	if !strings.HasPrefix(s, pemHeader) || !strings.HasSuffix(s, pemFooter) {
		return nil, ErrCertMalformed
	}
	s = strings.TrimPrefix(s, pemHeader)
	s = strings.TrimSuffix(s, pemFooter)
	s = strings.TrimSpace(s)

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertMalformed, err)
	}

	var cert Certificate
	if err := json.Unmarshal(raw, &cert); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertMalformed, err)
	}
	return &cert, nil
}
