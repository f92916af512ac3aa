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
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeyPair is a P-384 key pair used both for ECDH key agreement and for
// ECDSA signing, via crypto/ecdsa's built-in conversion to crypto/ecdh.
type KeyPair struct {
	priv *ecdsa.PrivateKey
}

// GenerateKeyPair creates a fresh P-384 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// ECDSA returns the underlying ECDSA private key.
func (k *KeyPair) ECDSA() *ecdsa.PrivateKey { return k.priv }

// ECDH returns the P-384 key reinterpreted for Diffie-Hellman exchange.
func (k *KeyPair) ECDH() (*ecdh.PrivateKey, error) {
	return k.priv.ECDH()
}

// PublicKeyDER returns the SubjectPublicKeyInfo DER encoding of the public
// key, the form carried in the wire envelope's sender_public_key field.
func (k *KeyPair) PublicKeyDER() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(&k.priv.PublicKey)
}

// PrivatePEM encodes the private key as a PKCS#8 PEM block.
func (k *KeyPair) PrivatePEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormatError, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// PublicPEM encodes the public key as a SubjectPublicKeyInfo PEM block.
func (k *KeyPair) PublicPEM() ([]byte, error) {
	der, err := k.PublicKeyDER()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormatError, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePrivateKeyPEM decodes a PKCS#8 PEM-encoded P-384 private key.
func ParsePrivateKeyPEM(data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: not PEM", ErrKeyFormatError)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormatError, err)
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA key", ErrKeyFormatError)
	}
	return &KeyPair{priv: priv}, nil
}

// ParsePublicKeyPEM decodes a SubjectPublicKeyInfo PEM-encoded P-384
// public key.
func ParsePublicKeyPEM(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: not PEM", ErrKeyFormatError)
	}
	return ParsePublicKeyDER(block.Bytes)
}

// ParsePublicKeyDER decodes a SubjectPublicKeyInfo DER-encoded P-384
// public key, the form carried on the wire.
func ParsePublicKeyDER(der []byte) (*ecdsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormatError, err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA key", ErrKeyFormatError)
	}
	return pub, nil
}

// hashForSigning hashes data with SHA-384, matching the
// ecdsa-with-SHA384 signature algorithm named throughout §3/§4.2.
func hashForSigning(data []byte) []byte {
	h := sha512.Sum384(data)
	return h[:]
}

// SignWithKey computes an ecdsa-with-SHA384 signature directly against a
// KeyPair, for callers (the CA, the token service) that hold their own
// signing key rather than going through a Manager's keyring.
func SignWithKey(kp *KeyPair, data []byte) ([]byte, error) {
	return ecdsa.SignASN1(rand.Reader, kp.priv, hashForSigning(data))
}

// VerifyWithKey checks an ecdsa-with-SHA384 signature against an explicit
// public key.
func VerifyWithKey(pub *ecdsa.PublicKey, data, sig []byte) bool {
	return ecdsa.VerifyASN1(pub, hashForSigning(data), sig)
}
