package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erazemk/hisa/internal/apperr"
)

// LookupFunc resolves a location by ID. It returns nil and no error when the
// location does not exist. The traversal helpers below only ever follow
// parent IDs through a LookupFunc, so they work the same over an in-memory
// Tree and over a database transaction.
type LookupFunc func(id int64) (*Location, error)

// Ancestors returns the ancestors of id, nearest parent first.
func Ancestors(lookup LookupFunc, id int64) ([]*Location, error) {
	node, err := mustLookup(lookup, id)
	if err != nil {
		return nil, err
	}

	var out []*Location
	seen := map[int64]bool{id: true}
	for node.ParentID != nil {
		pid := *node.ParentID
		if seen[pid] {
			return nil, fmt.Errorf("location %d: parent chain loops at %d", id, pid)
		}
		seen[pid] = true

		parent, err := mustLookup(lookup, pid)
		if err != nil {
			return nil, err
		}
		out = append(out, parent)
		node = parent
	}
	return out, nil
}

// FullPath returns the root-first, "/"-joined names ending with id's own name.
func FullPath(lookup LookupFunc, id int64) (string, error) {
	node, err := mustLookup(lookup, id)
	if err != nil {
		return "", err
	}
	ancestors, err := Ancestors(lookup, id)
	if err != nil {
		return "", err
	}
	return joinPath(ancestors, node), nil
}

// Depth returns the number of ancestors of id. Roots have depth 0.
func Depth(lookup LookupFunc, id int64) (int, error) {
	ancestors, err := Ancestors(lookup, id)
	if err != nil {
		return 0, err
	}
	return len(ancestors), nil
}

// Root returns the topmost ancestor of id, or the node itself when it is a root.
func Root(lookup LookupFunc, id int64) (*Location, error) {
	node, err := mustLookup(lookup, id)
	if err != nil {
		return nil, err
	}
	ancestors, err := Ancestors(lookup, id)
	if err != nil {
		return nil, err
	}
	if len(ancestors) == 0 {
		return node, nil
	}
	return ancestors[len(ancestors)-1], nil
}

// IsAncestorOf reports whether a is a proper ancestor of b. A node is not its
// own ancestor.
func IsAncestorOf(lookup LookupFunc, a, b int64) (bool, error) {
	if a == b {
		return false, nil
	}
	ancestors, err := Ancestors(lookup, b)
	if err != nil {
		return false, err
	}
	for _, anc := range ancestors {
		if anc.ID == a {
			return true, nil
		}
	}
	return false, nil
}

// IsDescendantOf reports whether a is a proper descendant of b.
func IsDescendantOf(lookup LookupFunc, a, b int64) (bool, error) {
	return IsAncestorOf(lookup, b, a)
}

// CheckReparent returns a *CycleError when moving id under newParent would
// make id its own ancestor. It walks newParent's ancestor chain up to the root
// looking for id. A nil newParent (promote to root) is always allowed.
func CheckReparent(lookup LookupFunc, id int64, newParent *int64) error {
	if newParent == nil {
		return nil
	}
	if *newParent == id {
		return &apperr.CycleError{LocationID: id, ParentID: id}
	}
	if _, err := mustLookup(lookup, *newParent); err != nil {
		return err
	}
	under, err := IsAncestorOf(lookup, id, *newParent)
	if err != nil {
		return err
	}
	if under {
		return &apperr.CycleError{LocationID: id, ParentID: *newParent}
	}
	return nil
}

func mustLookup(lookup LookupFunc, id int64) (*Location, error) {
	node, err := lookup(id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, apperr.NotFound("location", id)
	}
	return node, nil
}

func joinPath(ancestors []*Location, node *Location) string {
	names := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		names = append(names, ancestors[i].Name)
	}
	names = append(names, node.Name)
	return strings.Join(names, PathSeparator)
}

// Tree is an arena of locations keyed by ID. Children are kept as ID lists;
// nothing holds a pointer to its parent.
type Tree struct {
	nodes    map[int64]*Location
	children map[int64][]int64
	roots    []int64
}

// TreeNode is a nested view of the tree for rendering.
type TreeNode struct {
	*Location
	Children []*TreeNode `json:"children"`
}

// NewTree builds an arena from a flat list of locations. Nodes whose parent is
// missing from the list are treated as roots.
func NewTree(locations []Location) *Tree {
	t := &Tree{
		nodes:    make(map[int64]*Location, len(locations)),
		children: make(map[int64][]int64),
	}
	for i := range locations {
		loc := locations[i]
		t.nodes[loc.ID] = &loc
	}

	ids := make([]int64, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return t.less(ids[i], ids[j]) })

	for _, id := range ids {
		node := t.nodes[id]
		if node.ParentID != nil {
			if _, ok := t.nodes[*node.ParentID]; ok {
				t.children[*node.ParentID] = append(t.children[*node.ParentID], id)
				continue
			}
		}
		t.roots = append(t.roots, id)
	}
	return t
}

func (t *Tree) less(a, b int64) bool {
	na, nb := t.nodes[a], t.nodes[b]
	if na.Name != nb.Name {
		return na.Name < nb.Name
	}
	return a < b
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Get returns the node with the given ID, or nil.
func (t *Tree) Get(id int64) *Location { return t.nodes[id] }

// Lookup adapts the tree to a LookupFunc.
func (t *Tree) Lookup(id int64) (*Location, error) { return t.nodes[id], nil }

// Roots returns all root nodes sorted by name.
func (t *Tree) Roots() []*Location {
	return t.resolve(t.roots)
}

// Children returns the direct children of id sorted by name.
func (t *Tree) Children(id int64) []*Location {
	return t.resolve(t.children[id])
}

// Descendants returns every transitive child of id exactly once, breadth first.
func (t *Tree) Descendants(id int64) []*Location {
	var out []*Location
	queue := append([]int64(nil), t.children[id]...)
	seen := map[int64]bool{id: true}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, t.nodes[next])
		queue = append(queue, t.children[next]...)
	}
	return out
}

// FullPath returns the path of id, or "" when id is unknown.
func (t *Tree) FullPath(id int64) string {
	path, err := FullPath(t.Lookup, id)
	if err != nil {
		return ""
	}
	return path
}

// Depth returns the depth of id, or -1 when id is unknown.
func (t *Tree) Depth(id int64) int {
	d, err := Depth(t.Lookup, id)
	if err != nil {
		return -1
	}
	return d
}

// Annotate fills FullPath and Depth on every node.
func (t *Tree) Annotate() {
	var walk func(ids []int64, prefix string, depth int)
	walk = func(ids []int64, prefix string, depth int) {
		for _, id := range ids {
			node := t.nodes[id]
			node.FullPath = node.Name
			if prefix != "" {
				node.FullPath = prefix + PathSeparator + node.Name
			}
			node.Depth = depth
			walk(t.children[id], node.FullPath, depth+1)
		}
	}
	walk(t.roots, "", 0)
}

// Flatten returns every node in depth-first order, roots first.
func (t *Tree) Flatten() []*Location {
	out := make([]*Location, 0, len(t.nodes))
	var walk func(ids []int64)
	walk = func(ids []int64) {
		for _, id := range ids {
			out = append(out, t.nodes[id])
			walk(t.children[id])
		}
	}
	walk(t.roots)
	return out
}

// Nested returns the tree as nested nodes, annotated with paths and depths.
func (t *Tree) Nested() []*TreeNode {
	t.Annotate()
	var build func(ids []int64) []*TreeNode
	build = func(ids []int64) []*TreeNode {
		out := make([]*TreeNode, 0, len(ids))
		for _, id := range ids {
			out = append(out, &TreeNode{Location: t.nodes[id], Children: build(t.children[id])})
		}
		return out
	}
	return build(t.roots)
}

func (t *Tree) resolve(ids []int64) []*Location {
	out := make([]*Location, len(ids))
	for i, id := range ids {
		out[i] = t.nodes[id]
	}
	return out
}
