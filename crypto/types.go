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

// Package crypto provides the protocol's cryptographic primitives: P-384
// ECDH key agreement, AES-256-GCM sealing, and P-384 ECDSA signatures. It
// takes no protocol opinions of its own — envelope shape and message
// signing policy live in securitymgr.
package crypto

import "errors"

// Common errors (§4.1, §7).
var (
	ErrKeyNotFound      = errors.New("crypto: key not found")
	ErrKeyExists        = errors.New("crypto: key already exists")
	ErrKeyFormatError   = errors.New("crypto: malformed key material")
	ErrDecrypt          = errors.New("crypto: decryption failed")
	ErrInvalidSignature = errors.New("crypto: signature verification failed")
)

// sharedKeyInfo is the HKDF info parameter the reference implementation
// uses; preserved verbatim for interoperability.
const sharedKeyInfo = "ReGenNexus-ECDH-Key"
