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

package policy

import (
	"regexp"
	"strings"
	"sync"
)

// Engine is the role/permission store plus the richer policy list. It is
// process-wide injectable state (§9), not an ambient singleton.
type Engine struct {
	mu sync.RWMutex

	entityRoles     map[string]map[string]struct{} // entity -> roles
	rolePerms       map[string]map[string]struct{} // role -> permissions
	policies        map[string]*Policy

	patternCache sync.Map // pattern string -> *regexp.Regexp
}

// NewEngine creates an empty policy engine.
func NewEngine() *Engine {
	return &Engine{
		entityRoles: make(map[string]map[string]struct{}),
		rolePerms:   make(map[string]map[string]struct{}),
		policies:    make(map[string]*Policy),
	}
}

// AssignRole grants entityID a role.
func (e *Engine) AssignRole(entityID, role string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.entityRoles[entityID] == nil {
		e.entityRoles[entityID] = make(map[string]struct{})
	}
	e.entityRoles[entityID][role] = struct{}{}
}

// RevokeRole removes a role from entityID.
func (e *Engine) RevokeRole(entityID, role string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.entityRoles[entityID], role)
}

// DefineRolePermissions sets the full permission set for a role.
func (e *Engine) DefineRolePermissions(role string, perms []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	e.rolePerms[role] = set
}

// AddPolicy registers or replaces a policy by ID.
func (e *Engine) AddPolicy(p *Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies[p.ID] = p
}

// RemovePolicy deletes a policy by ID.
func (e *Engine) RemovePolicy(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.policies, id)
}

// entityPermissions collects every permission string granted to entityID
// via its roles.
func (e *Engine) entityPermissions(entityID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var perms []string
	for role := range e.entityRoles[entityID] {
		for p := range e.rolePerms[role] {
			perms = append(perms, p)
		}
	}
	return perms
}

// CheckPermission reports whether entityID holds perm, literally or via a
// single-segment wildcard it was granted (§8.3).
func (e *Engine) CheckPermission(entityID, perm string) bool {
	for _, granted := range e.entityPermissions(entityID) {
		if granted == perm {
			return true
		}
		if e.wildcardMatch(granted, perm) {
			return true
		}
	}
	return false
}

// wildcardMatch translates pattern to a regex (`.` literal, `*` matches
// exactly one dotted segment) and matches it against value. Compiled
// patterns are cached since the same roles/permissions repeat across
// calls.
func (e *Engine) wildcardMatch(pattern, value string) bool {
	if pattern == value {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	re, ok := e.patternCache.Load(pattern)
	if !ok {
		compiled := compileWildcard(pattern)
		re, _ = e.patternCache.LoadOrStore(pattern, compiled)
	}
	return re.(*regexp.Regexp).MatchString(value)
}

func compileWildcard(pattern string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(pattern)
	// QuoteMeta escapes '*' to '\*'; turn each escaped wildcard back into
	// a single-segment match.
	escaped = strings.ReplaceAll(escaped, `\*`, `[^.]*`)
	return regexp.MustCompile("^" + escaped + "$")
}

// EvaluatePolicy is the full authorization decision from §4.3: a role-
// derived permission short-circuits to allow; otherwise every policy is
// walked, and any matching deny policy wins over matching allow policies.
// With nothing granted and no matching policy, the result is deny (§8.4).
func (e *Engine) EvaluatePolicy(entityID, resource, action string, ctx EvalContext) bool {
	perm := resource + ":" + action
	if e.CheckPermission(entityID, perm) {
		return true
	}

	e.mu.RLock()
	policies := make([]*Policy, 0, len(e.policies))
	for _, p := range e.policies {
		policies = append(policies, p)
	}
	e.mu.RUnlock()

	allowed := false
	for _, p := range policies {
		if !e.listMatches(p.Resources, resource) {
			continue
		}
		if !e.listMatches(p.Actions, action) {
			continue
		}
		if !entityAdmitted(p, entityID) {
			continue
		}
		if !allConditionsSatisfied(p.Conditions, ctx) {
			continue
		}
		if p.effect() != EffectAllow {
			return false
		}
		allowed = true
	}

	return allowed
}

func (e *Engine) listMatches(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if pattern == "*" {
			return true
		}
		if e.wildcardMatch(pattern, value) {
			return true
		}
	}
	return false
}

func entityAdmitted(p *Policy, entityID string) bool {
	if len(p.EntitiesInclude) > 0 && !contains(p.EntitiesInclude, entityID) {
		return false
	}
	if contains(p.EntitiesExclude, entityID) {
		return false
	}
	return true
}

func allConditionsSatisfied(conds []Condition, ctx EvalContext) bool {
	for _, c := range conds {
		if !c.Evaluate(ctx) {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
