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

// Package securitymgr is the facade named C5 in the spec: it composes
// crypto and ca into EncryptMessage/DecryptMessage for envelope handling
// and Authenticate for certificate-backed peer authentication. The router
// calls DecryptMessage; Authenticate is not called by the router.
package securitymgr

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uap-core/uap/ca"
	"github.com/uap-core/uap/crypto"
	"github.com/uap-core/uap/internal/wire"
	"github.com/uap-core/uap/message"
)

// Algorithm identifies the envelope's key-agreement + AEAD scheme (§6.1).
const Algorithm = "ECDH-384+AES-256-GCM"

var (
	ErrSubjectMismatch = errors.New("securitymgr: certificate subject does not match entity")
	ErrKeyMismatch     = errors.New("securitymgr: certificate public key does not match presented key")
)

// Manager is the security facade. It holds no state of its own beyond its
// two collaborators; both are injectable (§9).
type Manager struct {
	crypto *crypto.Manager
	ca     *ca.CA
}

// New creates a security manager over an existing keyring and CA.
func New(cryptoMgr *crypto.Manager, authority *ca.CA) *Manager {
	return &Manager{crypto: cryptoMgr, ca: authority}
}

// EncryptMessage derives the sender/recipient shared key, seals the
// canonical JSON form of msg with AES-256-GCM, and returns the wire
// envelope (§6.1, §4.4).
func (m *Manager) EncryptMessage(sender, recipient string, msg *message.Message) (*message.Message, error) {
	key, err := m.crypto.DeriveSharedKey(sender, recipient)
	if err != nil {
		return nil, err
	}

	plaintext, err := wire.Canonical(msg)
	if err != nil {
		return nil, fmt.Errorf("securitymgr: marshal message: %w", err)
	}

	sealed, err := crypto.Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}

	senderPubDER, err := m.crypto.PublicKeyDER(sender)
	if err != nil {
		return nil, err
	}

	envelope := &message.Message{
		ID:         msg.ID,
		Sender:     sender,
		Recipient:  recipient,
		ContextID:  msg.ContextID,
		Timestamp:  msg.Timestamp,
		TTL:        msg.TTL,
		Encrypted:  true,
		Algorithm:  Algorithm,
		Ciphertext: base64.StdEncoding.EncodeToString(sealed.Ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(sealed.Nonce),
	}
	envelope.SetSenderPublicKeyDER(senderPubDER)
	return envelope, nil
}

// DecryptMessage inverts EncryptMessage. If envelope is not encrypted it
// is returned unchanged (§4.4). If the envelope carries a sender public
// key we have not yet imported, it is imported now so a peer that never
// exchanged keys out-of-band can still complete the handshake (§6.1).
func (m *Manager) DecryptMessage(recipient string, envelope *message.Message) (*message.Message, error) {
	if !envelope.Encrypted {
		return envelope, nil
	}

	if envelope.SenderPublicKey != "" {
		der, err := hex.DecodeString(envelope.SenderPublicKey)
		if err == nil {
			_ = m.crypto.ImportPublicKeyDER(envelope.Sender, der)
		}
	}

	key, err := m.crypto.DeriveSharedKey(recipient, envelope.Sender)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Ciphertext)
	if err != nil {
		return nil, crypto.ErrDecrypt
	}
	nonce, err := base64.StdEncoding.DecodeString(envelope.Nonce)
	if err != nil {
		return nil, crypto.ErrDecrypt
	}

	plaintext, err := crypto.Decrypt(&crypto.Sealed{Nonce: nonce, Ciphertext: ciphertext}, key)
	if err != nil {
		return nil, err
	}

	var out message.Message
	if err := json.Unmarshal(plaintext, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrDecrypt, err)
	}
	return &out, nil
}

// Authenticate composes CA verification, subject matching, and public-key
// binding (§4.4): cert must verify under the deployment CA, its subject
// must name entityID, and its embedded public key must match pubKeyDER.
func (m *Manager) Authenticate(entityID string, certPEM, pubKeyDER []byte) (bool, error) {
	ok, err := m.ca.VerifyCert(certPEM)
	if err != nil || !ok {
		return false, err
	}

	cert, err := ca.Decode(certPEM)
	if err != nil {
		return false, err
	}
	if cert.Subject != ca.EntitySubject(entityID) {
		return false, ErrSubjectMismatch
	}

	certKeyDER, err := cert.PublicKeyDER()
	if err != nil {
		return false, err
	}
	if !bytes.Equal(certKeyDER, pubKeyDER) {
		return false, ErrKeyMismatch
	}
	return true, nil
}
