// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package permission

import (
	"slices"
	"strings"

	"github.com/teamskills/teamskills/internal/operation"
)

// Global is a system-wide capability attached to a user.
type Global string

// Global permissions
const (
	Admin           Global = "ADMIN"
	TeamsListAdmin  Global = "TEAMS_LIST_ADMIN"
	SkillsListAdmin Global = "SKILLS_LIST_ADMIN"
	Reader          Global = "READER"
	Guest           Global = "GUEST"
)

// catalog lists every permission in display order.
var catalog = []Global{Admin, TeamsListAdmin, SkillsListAdmin, Reader, Guest}

var rank = func() map[Global]int {
	m := make(map[Global]int, len(catalog))
	for i, p := range catalog {
		m[p] = i
	}
	return m
}()

// modificationRules maps a held permission to the permissions its holder may
// add to or remove from other users. Permissions without an entry grant nothing.
// Built once at init and never written afterwards.
var modificationRules = map[Global]Set{
	Admin:           NewSet(Admin, TeamsListAdmin, SkillsListAdmin),
	TeamsListAdmin:  NewSet(TeamsListAdmin),
	SkillsListAdmin: NewSet(SkillsListAdmin),
}

// All returns the catalog in display order.
func All() []Global {
	return slices.Clone(catalog)
}

// Valid reports whether p is a catalog permission.
func (p Global) Valid() bool {
	_, ok := rank[p]
	return ok
}

func (p Global) String() string {
	return string(p)
}

// ModifiableBy returns the permissions a holder of p may modify on others.
// The result is a fresh set the caller may mutate.
func ModifiableBy(p Global) Set {
	return modificationRules[p].Clone()
}

// Parse converts a permission name. Names are case-sensitive.
func Parse(name string) (Global, error) {
	p := Global(name)
	if !p.Valid() {
		return "", operation.Invalid("unknown permission %q", name)
	}
	return p, nil
}

// ParseAll converts a list of permission names into a set. Duplicates collapse.
func ParseAll(names []string) (Set, error) {
	set := make(Set, len(names))
	for _, name := range names {
		p, err := Parse(name)
		if err != nil {
			return nil, err
		}
		set.Add(p)
	}
	return set, nil
}

// Set is an unordered collection of permissions.
type Set map[Global]struct{}

// NewSet builds a set from ps.
func NewSet(ps ...Global) Set {
	s := make(Set, len(ps))
	for _, p := range ps {
		s.Add(p)
	}
	return s
}

func (s Set) Add(p Global) {
	s[p] = struct{}{}
}

func (s Set) Contains(p Global) bool {
	_, ok := s[p]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for p := range s {
		out.Add(p)
	}
	return out
}

// Union returns the permissions in s or other.
func (s Set) Union(other Set) Set {
	out := s.Clone()
	for p := range other {
		out.Add(p)
	}
	return out
}

// Difference returns the permissions in s that are not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set)
	for p := range s {
		if !other.Contains(p) {
			out.Add(p)
		}
	}
	return out
}

// Intersect returns the permissions in both s and other.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for p := range s {
		if other.Contains(p) {
			out.Add(p)
		}
	}
	return out
}

func (s Set) IsSubsetOf(other Set) bool {
	for p := range s {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same permissions.
func (s Set) Equal(other Set) bool {
	return len(s) == len(other) && s.IsSubsetOf(other)
}

// Sorted returns the permissions in catalog order. Unknown values sort last
// by name.
func (s Set) Sorted() []Global {
	out := make([]Global, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Global) int {
		ra, oka := rank[a]
		rb, okb := rank[b]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		default:
			return strings.Compare(string(a), string(b))
		}
	})
	return out
}

// Strings returns the sorted permission names.
func (s Set) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, p := range sorted {
		out[i] = string(p)
	}
	return out
}

func (s Set) String() string {
	return strings.Join(s.Strings(), ", ")
}
