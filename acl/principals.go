package acl

// Principal kinds, used as the `Type` of flattened ACL entries and as keys in
// the persisted grant record.
const (
	KindUsers  = "users"
	KindGroups = "groups"
)

// Principals identifies the actor behind a request: the set of user ids and
// the set of group ids (e.g. backend roles) it may claim. A zero Principals
// holds nothing and therefore matches nothing.
type Principals struct {
	Users  []string `json:"users,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// IsEmpty reports whether the principals carry no identities at all.
func (p Principals) IsEmpty() bool {
	return len(p.Users) == 0 && len(p.Groups) == 0
}
