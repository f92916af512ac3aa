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

// Package wire holds the canonicalization rule shared by every component
// that signs or seals JSON: certificates and messages (tokens are JWTs and
// do not use it). A single deviation
// here silently breaks interoperability across the whole protocol, so it
// lives in one place and nowhere is allowed to reimplement it.
package wire

import "encoding/json"

// Canonical returns the deterministic byte encoding of v: UTF-8 JSON with
// object keys sorted lexicographically at every depth and no insignificant
// whitespace. encoding/json already sorts map[string]interface{} keys when
// marshaling, so round-tripping v through a generic map is sufficient to
// canonicalize it.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// CanonicalMap is like Canonical but takes a map directly, for callers that
// build the signing payload by hand (e.g. to omit a signature field rather
// than round-trip a struct with the field zeroed).
func CanonicalMap(m map[string]any) ([]byte, error) {
	return Canonical(m)
}
