package acl

// Mode is a capability token granted to principals. Object-level modes (read,
// write) govern a single document through its own ACL. Workspace-level modes
// (library_read, library_write, management) are granted on a workspace and
// govern documents that merely reside in it.
//
// Modes are not hierarchical: "management implies write" is expressed by
// callers requesting [write, management] together, never by evaluation.
type Mode string

const (
	Read         Mode = "read"
	Write        Mode = "write"
	LibraryRead  Mode = "library_read"
	LibraryWrite Mode = "library_write"
	Management   Mode = "management"
)

// AllModes lists every enumerated mode, in serialization order.
var AllModes = []Mode{Read, Write, LibraryRead, LibraryWrite, Management}
