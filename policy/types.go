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

// Package policy implements role/permission access control and richer
// conditional policies (§4.3): role assignment, wildcard permission
// checks, and policy evaluation with time/IP/attribute conditions. With
// no roles and no policies, EvaluatePolicy denies everything (§8.4).
package policy

// Effect names a policy's outcome when it matches.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Policy is the richer allow-rule from §3/§4.3.
type Policy struct {
	ID              string
	Resources       []string // a literal list, wildcard patterns, or ["*"]
	Actions         []string
	EntitiesInclude []string // empty means "applies to every entity"
	EntitiesExclude []string
	Conditions      []Condition
	Effect          Effect // "" defaults to EffectAllow
}

func (p *Policy) effect() Effect {
	if p.Effect == "" {
		return EffectAllow
	}
	return p.Effect
}
