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

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/uap-core/uap/internal/metrics"
)

// Manager is the keyring + shared-key cache described in §4.1. It is
// injectable process-wide state, not an ambient singleton (§9).
type Manager struct {
	mu   sync.RWMutex
	priv map[string]*KeyPair          // entityID -> own key pair
	pub  map[string]*ecdsa.PublicKey  // entityID -> known peer public key

	sharedMu sync.RWMutex
	shared   map[sharedKeyID][]byte // (local,remote) -> derived AES key, read-mostly
}

type sharedKeyID struct {
	local, remote string
}

// NewManager creates an empty keyring.
func NewManager() *Manager {
	return &Manager{
		priv:   make(map[string]*KeyPair),
		pub:    make(map[string]*ecdsa.PublicKey),
		shared: make(map[sharedKeyID][]byte),
	}
}

// GenerateKeyPair generates a P-384 key pair for entityID and stores it,
// returning the PEM-encoded private and public keys.
func (m *Manager) GenerateKeyPair(entityID string) (privPEM, pubPEM []byte, err error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	privPEM, err = kp.PrivatePEM()
	if err != nil {
		return nil, nil, err
	}
	pubPEM, err = kp.PublicPEM()
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	m.priv[entityID] = kp
	m.pub[entityID] = &kp.priv.PublicKey
	m.mu.Unlock()

	return privPEM, pubPEM, nil
}

// ImportKeyPair loads an externally generated private key for entityID.
func (m *Manager) ImportKeyPair(entityID string, privPEM []byte) error {
	kp, err := ParsePrivateKeyPEM(privPEM)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.priv[entityID] = kp
	m.pub[entityID] = &kp.priv.PublicKey
	m.mu.Unlock()
	return nil
}

// ImportPublicKey records a peer's public key so DeriveSharedKey and
// Verify can use it.
func (m *Manager) ImportPublicKey(entityID string, pubPEM []byte) error {
	pub, err := ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.pub[entityID] = pub
	m.mu.Unlock()
	return nil
}

// ImportPublicKeyDER is the envelope-path counterpart of ImportPublicKey:
// it records a peer's public key from its DER (not PEM) encoding, as
// carried in an envelope's sender_public_key field.
func (m *Manager) ImportPublicKeyDER(entityID string, der []byte) error {
	pub, err := ParsePublicKeyDER(der)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.pub[entityID] = pub
	m.mu.Unlock()
	return nil
}

// PublicKeyDER returns the DER-encoded public key known for entityID
// (own or imported peer key).
func (m *Manager) PublicKeyDER(entityID string) ([]byte, error) {
	m.mu.RLock()
	pub, ok := m.pub[entityID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, entityID)
	}
	kp := &KeyPair{priv: &ecdsa.PrivateKey{PublicKey: *pub}}
	return kp.PublicKeyDER()
}

func (m *Manager) ownKey(entityID string) (*KeyPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kp, ok := m.priv[entityID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, entityID)
	}
	return kp, nil
}

func (m *Manager) peerKey(entityID string) (*ecdsa.PublicKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pub, ok := m.pub[entityID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, entityID)
	}
	return pub, nil
}

// DeriveSharedKey performs ECDH between local's private key and remote's
// public key, then HKDF-SHA384 (no salt, info="ReGenNexus-ECDH-Key") to a
// 32-byte AES-256 key. Results are cached per (local, remote) pair.
func (m *Manager) DeriveSharedKey(local, remote string) (derivedKey []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("derive", "hkdf-sha384").Observe(time.Since(start).Seconds())
		metrics.CryptoOperations.WithLabelValues("derive", "hkdf-sha384").Inc()
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("derive").Inc()
		}
	}()

	id := sharedKeyID{local: local, remote: remote}

	m.sharedMu.RLock()
	if key, ok := m.shared[id]; ok {
		m.sharedMu.RUnlock()
		return key, nil
	}
	m.sharedMu.RUnlock()

	localKP, err := m.ownKey(local)
	if err != nil {
		return nil, err
	}
	remotePub, err := m.peerKey(remote)
	if err != nil {
		return nil, err
	}

	localECDH, err := localKP.ECDH()
	if err != nil {
		return nil, fmt.Errorf("crypto: ecdh conversion: %w", err)
	}
	remoteECDH, err := remotePub.ECDH()
	if err != nil {
		return nil, fmt.Errorf("crypto: ecdh conversion: %w", err)
	}

	secret, err := localECDH.ECDH(remoteECDH)
	if err != nil {
		return nil, fmt.Errorf("crypto: ecdh exchange: %w", err)
	}

	kdf := hkdf.New(sha512.New384, secret, nil, []byte(sharedKeyInfo))
	derived := make([]byte, 32)
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, fmt.Errorf("crypto: hkdf: %w", err)
	}

	m.sharedMu.Lock()
	m.shared[id] = derived
	m.sharedMu.Unlock()

	return derived, nil
}

// Sealed is the AES-256-GCM output: a fresh random 96-bit nonce and the
// ciphertext (no additional authenticated data, a deliberate §4.1 choice
// for compatibility with implementations that do not bind a second
// context value).
type Sealed struct {
	Nonce      []byte
	Ciphertext []byte
}

// Encrypt seals plaintext with AES-256-GCM under key.
func Encrypt(plaintext, key []byte) (sealed *Sealed, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("encrypt", "aes-256-gcm").Observe(time.Since(start).Seconds())
		metrics.CryptoOperations.WithLabelValues("encrypt", "aes-256-gcm").Inc()
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("encrypt").Inc()
		}
	}()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}
	ct := gcm.Seal(nil, nonce, plaintext, nil)
	return &Sealed{Nonce: nonce, Ciphertext: ct}, nil
}

// Decrypt opens a Sealed value under key. Any authentication-tag mismatch
// or malformed input is reported as ErrDecrypt and never partially
// reveals plaintext.
func Decrypt(s *Sealed, key []byte) (plaintext []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("decrypt", "aes-256-gcm").Observe(time.Since(start).Seconds())
		metrics.CryptoOperations.WithLabelValues("decrypt", "aes-256-gcm").Inc()
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("decrypt").Inc()
		}
	}()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	pt, err := gcm.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}

// Sign computes an ECDSA-P384/SHA-384 signature over data using
// entityID's own key.
func (m *Manager) Sign(entityID string, data []byte) (sig []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("sign", "ecdsa-p384").Observe(time.Since(start).Seconds())
		metrics.CryptoOperations.WithLabelValues("sign", "ecdsa-p384").Inc()
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("sign").Inc()
		}
	}()

	kp, err := m.ownKey(entityID)
	if err != nil {
		return nil, err
	}
	return ecdsa.SignASN1(rand.Reader, kp.priv, hashForSigning(data))
}

// Verify checks an ECDSA-P384/SHA-384 signature against entityID's known
// public key (own or imported peer key).
func (m *Manager) Verify(entityID string, data, sig []byte) (ok bool, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("verify", "ecdsa-p384").Observe(time.Since(start).Seconds())
		metrics.CryptoOperations.WithLabelValues("verify", "ecdsa-p384").Inc()
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("verify").Inc()
		}
	}()

	pub, err := m.peerKeyOrOwn(entityID)
	if err != nil {
		return false, err
	}
	return ecdsa.VerifyASN1(pub, hashForSigning(data), sig), nil
}

func (m *Manager) peerKeyOrOwn(entityID string) (*ecdsa.PublicKey, error) {
	if pub, err := m.peerKey(entityID); err == nil {
		return pub, nil
	}
	kp, err := m.ownKey(entityID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, entityID)
	}
	return &kp.priv.PublicKey, nil
}
