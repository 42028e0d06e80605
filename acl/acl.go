// Package acl implements the per-document permission record: a mapping from
// permission mode to the users and groups granted that mode.
//
// Evaluation is fail-closed. A mode with no grant record is held by nobody,
// and an empty Principals value matches nothing. HasPermission is an
// OR-over-modes, OR-over-principal-kind check: requesting [read, write]
// succeeds if either mode is granted to any of the caller's identities.
// Grants are monotonic — AddPermission can only widen the permitted set.
//
// The persisted form (Raw) is the plain mode -> {users, groups} mapping that
// documents carry in their `permissions` attribute. Unknown mode keys found in
// stored data are preserved across a New/Raw round trip but are never matched
// when an enumerated mode is requested.
package acl

import "sort"

// Grant is the serialized per-mode record: the users and groups holding a
// mode.
type Grant struct {
	Users  []string `json:"users,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// Raw is the persisted form of an ACL, keyed by mode name.
type Raw map[string]Grant

// FlatEntry is one row of the inverted principal -> modes view. Type is
// KindUsers or KindGroups.
type FlatEntry struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Permissions []Mode   `json:"permissions"`
}

// ACL evaluates permission modes against principals. The zero value is not
// usable; construct with New.
type ACL struct {
	grants map[string]*grantSet
}

type grantSet struct {
	users  map[string]struct{}
	groups map[string]struct{}
}

func newGrantSet() *grantSet {
	return &grantSet{
		users:  map[string]struct{}{},
		groups: map[string]struct{}{},
	}
}

func (g *grantSet) holdsAny(p Principals) bool {
	for _, u := range p.Users {
		if _, ok := g.users[u]; ok {
			return true
		}
	}
	for _, gr := range p.Groups {
		if _, ok := g.groups[gr]; ok {
			return true
		}
	}
	return false
}

// New builds an ACL from a stored permission mapping. A nil Raw yields an
// empty ACL that denies everything.
func New(raw Raw) *ACL {
	a := &ACL{grants: map[string]*grantSet{}}
	for mode, grant := range raw {
		gs := newGrantSet()
		for _, u := range grant.Users {
			gs.users[u] = struct{}{}
		}
		for _, g := range grant.Groups {
			gs.groups[g] = struct{}{}
		}
		a.grants[mode] = gs
	}
	return a
}

// AddPermission unions the given principals into the grant record of every
// listed mode. Adding the same principal twice has no additional effect.
// Returns the receiver for chaining.
func (a *ACL) AddPermission(modes []Mode, p Principals) *ACL {
	for _, mode := range modes {
		gs, ok := a.grants[string(mode)]
		if !ok {
			gs = newGrantSet()
			a.grants[string(mode)] = gs
		}
		for _, u := range p.Users {
			gs.users[u] = struct{}{}
		}
		for _, g := range p.Groups {
			gs.groups[g] = struct{}{}
		}
	}
	return a
}

// HasPermission reports whether at least one of the requested modes is held by
// at least one of the caller's identities. Modes without a grant record are
// held by nobody.
func (a *ACL) HasPermission(modes []Mode, p Principals) bool {
	for _, mode := range modes {
		if gs, ok := a.grants[string(mode)]; ok && gs.holdsAny(p) {
			return true
		}
	}
	return false
}

// FlatList inverts the mode -> principals map into a principal -> modes view,
// one entry per distinct (kind, name) pair with deduplicated modes. The result
// is sorted for stable output. This view feeds permission-introspection APIs
// and is never used for enforcement.
func (a *ACL) FlatList() []FlatEntry {
	type key struct {
		kind string
		name string
	}
	byPrincipal := map[key][]Mode{}

	modeNames := make([]string, 0, len(a.grants))
	for mode := range a.grants {
		modeNames = append(modeNames, mode)
	}
	sort.Strings(modeNames)

	for _, mode := range modeNames {
		gs := a.grants[mode]
		for u := range gs.users {
			k := key{KindUsers, u}
			byPrincipal[k] = appendMode(byPrincipal[k], Mode(mode))
		}
		for g := range gs.groups {
			k := key{KindGroups, g}
			byPrincipal[k] = appendMode(byPrincipal[k], Mode(mode))
		}
	}

	entries := make([]FlatEntry, 0, len(byPrincipal))
	for k, modes := range byPrincipal {
		entries = append(entries, FlatEntry{Type: k.kind, Name: k.name, Permissions: modes})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type < entries[j].Type
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

func appendMode(modes []Mode, m Mode) []Mode {
	for _, existing := range modes {
		if existing == m {
			return modes
		}
	}
	return append(modes, m)
}

// Raw serializes the ACL back to its storage form. Member slices are sorted so
// the output is deterministic.
func (a *ACL) Raw() Raw {
	raw := Raw{}
	for mode, gs := range a.grants {
		grant := Grant{}
		for u := range gs.users {
			grant.Users = append(grant.Users, u)
		}
		for g := range gs.groups {
			grant.Groups = append(grant.Groups, g)
		}
		sort.Strings(grant.Users)
		sort.Strings(grant.Groups)
		raw[mode] = grant
	}
	return raw
}
