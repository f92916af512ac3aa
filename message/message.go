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

// Package message defines the wire-level Message and its broadcast
// sentinel, plus the envelope form used for encrypted delivery.
package message

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/uap-core/uap/internal/wire"
)

// Broadcast is the sole recipient value meaning "every registered entity
// except the sender".
const Broadcast = "*"

// Reserved intents (§6.4).
const (
	IntentAck   = "ack"
	IntentError = "error"
)

// Payload is a schema-free tree: null, bool, number, string, an ordered
// sequence, or a string-keyed mapping. The core never interprets it beyond
// serialization; adapters own the intent-specific shape.
type Payload = any

// Message is the immutable unit of exchange between entities.
type Message struct {
	ID        string  `json:"id"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Intent    string  `json:"intent"`
	Payload   Payload `json:"payload"`
	ContextID string  `json:"context_id"`
	Timestamp int64   `json:"timestamp"`
	TTL       *int64  `json:"ttl,omitempty"`
	Encrypted bool    `json:"encrypted,omitempty"`
	Signature []byte  `json:"signature,omitempty"`

	// Envelope fields, populated only on an encrypted message (§6.1).
	Algorithm       string `json:"algorithm,omitempty"`
	Ciphertext      string `json:"ciphertext,omitempty"`
	Nonce           string `json:"nonce,omitempty"`
	SenderPublicKey string `json:"sender_public_key,omitempty"`
}

// New builds a Message with a fresh ID and the current timestamp. Sender
// must be set by the caller (the client session, per §9) before the
// message is handed to the router.
func New(sender, recipient, intent string, payload Payload, contextID string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Recipient: recipient,
		Intent:    intent,
		Payload:   payload,
		ContextID: contextID,
		Timestamp: time.Now().Unix(),
	}
}

// IsBroadcast reports whether the message targets every registered entity.
func (m *Message) IsBroadcast() bool {
	return m.Recipient == Broadcast
}

// ErrExpired is returned by Expired-aware callers; kept here so routers and
// tests can compare against a single sentinel.
var ErrExpired = errors.New("message: ttl expired")

// Expired reports whether the message's TTL has elapsed as of now.
func (m *Message) Expired(now time.Time) bool {
	if m.TTL == nil {
		return false
	}
	return now.Unix() > m.Timestamp+*m.TTL
}

// CanonicalForSigning returns the canonical byte form used for Sign/Verify:
// the message encoded with `signature` absent.
func (m *Message) CanonicalForSigning() ([]byte, error) {
	cp := *m
	cp.Signature = nil
	raw, err := wire.Canonical(&cp)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// SetSenderPublicKeyDER stores the sender's DER-encoded public key as the
// hex string the wire envelope format (§6.1) expects.
func (m *Message) SetSenderPublicKeyDER(der []byte) {
	m.SenderPublicKey = hex.EncodeToString(der)
}
