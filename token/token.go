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

// Package token implements the bearer-token service from §4.2: tokens
// signed by the deployment CA, carrying freeform claims, with in-memory
// revocation. Tokens ride github.com/golang-jwt/jwt/v5 (ES384) rather than
// a hand-rolled JSON+signature envelope, the way the teacher's oidc/auth0
// integration issues and validates JWTs.
package token

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/uap-core/uap/ca"
)

// DefaultTTL is the default token lifetime (§3).
const DefaultTTL = 24 * time.Hour

var (
	ErrRevoked = errors.New("token: revoked")
	ErrInvalid = errors.New("token: invalid")
)

// Claims is the token payload named in §4.2: token_id, entity_id, issued-
// at/expiry (carried by jwt.RegisteredClaims), and freeform claims.
type Claims struct {
	TokenID string         `json:"token_id"`
	EntityID string        `json:"entity_id"`
	Extra   map[string]any `json:"claims,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and validates bearer tokens signed by a CA.
type Service struct {
	ca *ca.CA

	mu      sync.RWMutex
	revoked map[string]struct{}
}

// NewService creates a token service backed by a bootstrapped CA.
func NewService(authority *ca.CA) *Service {
	return &Service{
		ca:      authority,
		revoked: make(map[string]struct{}),
	}
}

// Issue mints a signed bearer token for entityID, valid for ttl (0 means
// DefaultTTL), carrying the given freeform claims.
func (s *Service) Issue(entityID string, ttl time.Duration, claims map[string]any) (tokenStr, tokenID string, err error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key, err := s.ca.SigningKey()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	c := Claims{
		TokenID: uuid.NewString(),
		EntityID: entityID,
		Extra:   claims,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodES384, c)
	signed, err := tok.SignedString(key.ECDSA())
	if err != nil {
		return "", "", err
	}
	return signed, c.TokenID, nil
}

// Validate checks a bearer token's signature, expiry, and revocation
// status, returning the entity ID it was issued to.
func (s *Service) Validate(tokenStr string) (entityID string, err error) {
	key, err := s.ca.SigningKey()
	if err != nil {
		return "", err
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method", ErrInvalid)
		}
		return &key.ECDSA().PublicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid {
		return "", ErrInvalid
	}

	s.mu.RLock()
	_, revoked := s.revoked[claims.TokenID]
	s.mu.RUnlock()
	if revoked {
		return "", ErrRevoked
	}

	return claims.EntityID, nil
}

// Revoke adds tokenID to the in-memory revocation set. A revoked token
// authenticates nothing, even within its validity window.
func (s *Service) Revoke(tokenID string) {
	s.mu.Lock()
	s.revoked[tokenID] = struct{}{}
	s.mu.Unlock()
}
