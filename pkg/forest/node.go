// Package forest implements the single-parent vertex forest used by the
// support-graph reduction pass. Vertices are identified by a compound key
// (principal + role) and linked only by parent pointers; the Root walk
// ascends that chain with a guard against cycles that close back on the
// starting vertex.
package forest

import "cmp"

// Role distinguishes the two vertex functions a principal can occupy.
// The same principal may appear once as a Voter and once as a Target
// (a self-vote), and those are distinct vertices.
type Role uint8

const (
	// RoleVoter marks a ballot-casting vertex. Sorts before RoleTarget.
	RoleVoter Role = iota
	// RoleTarget marks a vote-receiving vertex.
	RoleTarget
)

func (r Role) String() string {
	switch r {
	case RoleVoter:
		return "voter"
	case RoleTarget:
		return "target"
	}
	return "unknown"
}

// ID is the logical identity of a vertex: a principal plus the role it is
// acting in. Two IDs are equal iff both fields are equal, so the zero-cost
// struct comparison (==) is the correct equality.
type ID[A cmp.Ordered] struct {
	Who  A
	Role Role
}

// NewID creates an ID from a principal and a role.
func NewID[A cmp.Ordered](who A, role Role) ID[A] {
	return ID[A]{Who: who, Role: role}
}

// Compare orders IDs lexicographically by principal, then role.
func (id ID[A]) Compare(other ID[A]) int {
	if c := cmp.Compare(id.Who, other.Who); c != 0 {
		return c
	}
	return cmp.Compare(id.Role, other.Role)
}

// Less reports whether id sorts before other.
func (id ID[A]) Less(other ID[A]) bool {
	return id.Compare(other) < 0
}

// Node is a vertex holding its identity and an optional parent pointer.
// A *Node is the shared handle: every edge that names the vertex holds the
// same pointer, so a parent mutation through one holder is visible to all.
// Mutation is not synchronized; one reduction pass owns the whole forest.
type Node[A cmp.Ordered] struct {
	id     ID[A]
	parent *Node[A]
}

// New creates a vertex with no parent.
func New[A cmp.Ordered](id ID[A]) *Node[A] {
	return &Node[A]{id: id}
}

// ID returns the vertex identity.
func (n *Node[A]) ID() ID[A] {
	return n.id
}

// Equal reports identity equality. The parent field is deliberately
// ignored: the parent chain may be cyclic, and comparing it structurally
// would never terminate. Never compare nodes by pointer either; two
// separately allocated nodes with the same ID are the same vertex.
func (n *Node[A]) Equal(other *Node[A]) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.id == other.id
}

// Parent returns the current parent, if set.
func (n *Node[A]) Parent() (*Node[A], bool) {
	return n.parent, n.parent != nil
}

// IsParentOf reports whether other is n's current parent, compared by
// identity. False when n has no parent.
func (n *Node[A]) IsParentOf(other *Node[A]) bool {
	if n.parent == nil {
		return false
	}
	return n.parent.Equal(other)
}

// SetParent points n's parent at parent. No cycle or self-parent check is
// performed; structural policy belongs to the caller.
func (n *Node[A]) SetParent(parent *Node[A]) {
	n.parent = parent
}

// RemoveParent clears n's parent.
func (n *Node[A]) RemoveParent() {
	n.parent = nil
}

// Root ascends parent pointers from start and returns the terminal vertex
// together with the ordered path walked, start first. If the chain would
// revisit start itself, the walk stops before doing so: the returned "root"
// is then the last vertex before closure, not a true parentless root, and
// the closing edge is not part of the path. Callers use that shape to
// detect cycles.
//
// The guard only covers cycles through start. A cycle reachable from start
// but not containing it makes the walk non-terminating; the reduction pass
// never builds such a chain for the vertices it queries.
func Root[A cmp.Ordered](start *Node[A]) (*Node[A], []*Node[A]) {
	initial := start
	path := []*Node[A]{start}
	current := start

	for current.parent != nil {
		next := current.parent
		if next.Equal(initial) {
			break
		}
		path = append(path, next)
		current = next
	}

	return current, path
}
