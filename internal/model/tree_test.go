package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/hisa/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

// house -> garage -> shelf -> box, house -> kitchen
func sampleTree() *Tree {
	return NewTree([]Location{
		{ID: 1, Name: "House", Type: LocationTypeHouse},
		{ID: 2, Name: "Garage", Type: LocationTypeRoom, ParentID: ptr(int64(1))},
		{ID: 3, Name: "Shelf", Type: LocationTypeShelf, ParentID: ptr(int64(2))},
		{ID: 4, Name: "Box", Type: LocationTypeContainer, ParentID: ptr(int64(3))},
		{ID: 5, Name: "Kitchen", Type: LocationTypeRoom, ParentID: ptr(int64(1))},
		{ID: 6, Name: "Cabin", Type: LocationTypeHouse},
	})
}

func TestFullPathAndDepth(t *testing.T) {
	tree := sampleTree()

	assert.Equal(t, "House", tree.FullPath(1))
	assert.Equal(t, "House/Garage", tree.FullPath(2))
	assert.Equal(t, "House/Garage/Shelf/Box", tree.FullPath(4))
	assert.Equal(t, 0, tree.Depth(1))
	assert.Equal(t, 1, tree.Depth(2))
	assert.Equal(t, 3, tree.Depth(4))
	assert.Equal(t, -1, tree.Depth(99))
	assert.Equal(t, "", tree.FullPath(99))
}

func TestAncestorsNearestFirst(t *testing.T) {
	tree := sampleTree()

	got, err := Ancestors(tree.Lookup, 4)
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, l := range got {
		names[i] = l.Name
	}
	assert.Equal(t, []string{"Shelf", "Garage", "House"}, names)

	root, err := Root(tree.Lookup, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), root.ID)

	root, err = Root(tree.Lookup, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(6), root.ID)
}

func TestIsAncestorOf(t *testing.T) {
	tree := sampleTree()

	tests := []struct {
		a, b int64
		want bool
	}{
		{1, 4, true},
		{2, 3, true},
		{4, 1, false},
		{1, 1, false},
		{5, 4, false},
		{6, 2, false},
	}
	for _, tt := range tests {
		got, err := IsAncestorOf(tree.Lookup, tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "IsAncestorOf(%d, %d)", tt.a, tt.b)

		rev, err := IsDescendantOf(tree.Lookup, tt.b, tt.a)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rev, "IsDescendantOf(%d, %d)", tt.b, tt.a)
	}
}

func TestDescendantsEachOnce(t *testing.T) {
	tree := sampleTree()

	got := tree.Descendants(1)
	ids := map[int64]int{}
	for _, l := range got {
		ids[l.ID]++
	}
	assert.Equal(t, map[int64]int{2: 1, 3: 1, 4: 1, 5: 1}, ids)
	assert.Empty(t, tree.Descendants(4))
}

func TestCheckReparent(t *testing.T) {
	tree := sampleTree()

	var ce *apperr.CycleError
	err := CheckReparent(tree.Lookup, 1, ptr(int64(1)))
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, int64(1), ce.ParentID)

	err = CheckReparent(tree.Lookup, 1, ptr(int64(4)))
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, int64(4), ce.ParentID)

	assert.NoError(t, CheckReparent(tree.Lookup, 4, ptr(int64(5))))
	assert.NoError(t, CheckReparent(tree.Lookup, 2, nil))

	var nf *apperr.NotFoundError
	err = CheckReparent(tree.Lookup, 2, ptr(int64(42)))
	assert.True(t, errors.As(err, &nf))
}

func TestRootsChildrenSorted(t *testing.T) {
	tree := sampleTree()

	roots := tree.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "Cabin", roots[0].Name)
	assert.Equal(t, "House", roots[1].Name)

	kids := tree.Children(1)
	require.Len(t, kids, 2)
	assert.Equal(t, "Garage", kids[0].Name)
	assert.Equal(t, "Kitchen", kids[1].Name)
}

func TestNestedAnnotates(t *testing.T) {
	tree := sampleTree()

	nested := tree.Nested()
	require.Len(t, nested, 2)
	house := nested[1]
	require.Len(t, house.Children, 2)
	shelf := house.Children[0].Children[0]
	assert.Equal(t, "House/Garage/Shelf", shelf.FullPath)
	assert.Equal(t, 2, shelf.Depth)

	flat := tree.Flatten()
	assert.Len(t, flat, tree.Len())
	assert.Equal(t, "Cabin", flat[0].Name)
}

func TestAncestorsDetectsLoop(t *testing.T) {
	// A corrupt snapshot must not hang the walkers.
	tree := NewTree([]Location{
		{ID: 1, Name: "A", ParentID: ptr(int64(2))},
		{ID: 2, Name: "B", ParentID: ptr(int64(1))},
	})
	_, err := Ancestors(tree.Lookup, 1)
	assert.Error(t, err)
}

func TestLocationInputValidate(t *testing.T) {
	in := LocationInput{Name: "  Attic "}
	require.NoError(t, in.Validate())
	assert.Equal(t, "Attic", in.Name)
	assert.Equal(t, LocationTypeRoom, in.Type)

	bad := LocationInput{Name: "", Type: "castle"}
	var ve *apperr.ValidationError
	require.True(t, errors.As(bad.Validate(), &ve))
	assert.Len(t, ve.Violations, 2)

	long := LocationInput{Name: strings.Repeat("x", MaxLocationNameLength+1)}
	assert.Error(t, long.Validate())

	slash := LocationInput{Name: "a/b"}
	assert.Error(t, slash.Validate())
}
