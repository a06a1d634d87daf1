package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/model"
)

func TestLocationPathAndDepth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", model.LocationTypeHouse, nil)
	garage := mustLocation(t, s, "Garage", model.LocationTypeRoom, &house.ID)

	assert.Equal(t, "House/Garage", garage.FullPath)
	assert.Equal(t, 1, garage.Depth)

	path, err := s.LocationPath(ctx, garage.ID)
	require.NoError(t, err)
	assert.Equal(t, "House/Garage", path)

	depth, err := s.LocationDepth(ctx, garage.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	root, err := s.LocationRoot(ctx, garage.ID)
	require.NoError(t, err)
	assert.Equal(t, house.ID, root.ID)
}

func TestCreateLocationValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateLocation(ctx, model.LocationInput{Name: "  "})
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)

	missing := int64(42)
	_, err = s.CreateLocation(ctx, model.LocationInput{Name: "Attic", ParentID: &missing})
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestReparentRejectsCycles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", model.LocationTypeHouse, nil)
	garage := mustLocation(t, s, "Garage", model.LocationTypeRoom, &house.ID)
	shelf := mustLocation(t, s, "Shelf", model.LocationTypeShelf, &garage.ID)

	var cycle *apperr.CycleError
	_, err := s.ReparentLocation(ctx, house.ID, &garage.ID)
	require.ErrorAs(t, err, &cycle)
	_, err = s.ReparentLocation(ctx, house.ID, &shelf.ID)
	require.ErrorAs(t, err, &cycle)
	_, err = s.ReparentLocation(ctx, house.ID, &house.ID)
	require.ErrorAs(t, err, &cycle)

	got, err := s.GetLocation(ctx, house.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, "House/Garage/Shelf", mustPath(t, s, shelf.ID))
}

func TestReparentMovesSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", model.LocationTypeHouse, nil)
	garage := mustLocation(t, s, "Garage", model.LocationTypeRoom, &house.ID)
	shelf := mustLocation(t, s, "Shelf", model.LocationTypeShelf, &garage.ID)
	cabin := mustLocation(t, s, "Cabin", model.LocationTypeHouse, nil)

	moved, err := s.ReparentLocation(ctx, garage.ID, &cabin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cabin/Garage", moved.FullPath)
	assert.Equal(t, "Cabin/Garage/Shelf", mustPath(t, s, shelf.ID))

	root, err := s.ReparentLocation(ctx, garage.ID, nil)
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, 0, root.Depth)
}

func TestAncestryQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", model.LocationTypeHouse, nil)
	garage := mustLocation(t, s, "Garage", model.LocationTypeRoom, &house.ID)
	shelf := mustLocation(t, s, "Shelf", model.LocationTypeShelf, &garage.ID)
	kitchen := mustLocation(t, s, "Kitchen", model.LocationTypeRoom, &house.ID)

	ok, err := s.IsAncestor(ctx, house.ID, shelf.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsAncestor(ctx, kitchen.ID, shelf.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.IsDescendant(ctx, shelf.ID, house.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsAncestor(ctx, house.ID, house.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ancestors, err := s.LocationAncestors(ctx, shelf.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, "Garage", ancestors[0].Name)
	assert.Equal(t, "House", ancestors[1].Name)

	children, err := s.LocationChildren(ctx, house.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Garage", children[0].Name)
	assert.Equal(t, "Kitchen", children[1].Name)

	descendants, err := s.LocationDescendants(ctx, house.ID)
	require.NoError(t, err)
	assert.Len(t, descendants, 3)

	_, err = s.LocationChildren(ctx, 999)
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeleteLocationCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", model.LocationTypeHouse, nil)
	garage := mustLocation(t, s, "Garage", model.LocationTypeRoom, &house.ID)
	shelf := mustLocation(t, s, "Shelf", model.LocationTypeShelf, &garage.ID)
	kitchen := mustLocation(t, s, "Kitchen", model.LocationTypeRoom, &house.ID)

	drill := mustItem(t, s, model.ItemInput{Name: "Drill"})
	_, err := s.AssignLocation(ctx, drill.ID, garage.ID, 2, "")
	require.NoError(t, err)
	_, err = s.AssignLocation(ctx, drill.ID, shelf.ID, 1, "")
	require.NoError(t, err)
	_, err = s.AssignLocation(ctx, drill.ID, kitchen.ID, 4, "")
	require.NoError(t, err)

	res, err := s.DeleteLocation(ctx, garage.ID)
	require.NoError(t, err)
	assert.Equal(t, &model.DeleteResult{Locations: 2, InventoryEntries: 2}, res)

	_, err = s.GetLocation(ctx, shelf.ID)
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)

	summary, err := s.ItemSummary(ctx, drill.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)

	// History outlives the deleted locations.
	moves, err := s.ListMovements(ctx, model.MovementFilter{ItemID: drill.ID})
	require.NoError(t, err)
	require.Len(t, moves, 3)
	assert.Equal(t, "House/Garage", moves[0].ToLocationPath)
	assert.Equal(t, "House/Garage/Shelf", moves[1].ToLocationPath)
}

func TestUpdateLocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", model.LocationTypeHouse, nil)
	garage := mustLocation(t, s, "Garage", model.LocationTypeRoom, &house.ID)

	name := "Workshop"
	got, err := s.UpdateLocation(ctx, garage.ID, model.LocationPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "House/Workshop", got.FullPath)

	bad := "a/b"
	_, err = s.UpdateLocation(ctx, garage.ID, model.LocationPatch{Name: &bad})
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListLocationsDepthFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", model.LocationTypeHouse, nil)
	mustLocation(t, s, "Kitchen", model.LocationTypeRoom, &house.ID)
	garage := mustLocation(t, s, "Garage", model.LocationTypeRoom, &house.ID)
	mustLocation(t, s, "Shelf", model.LocationTypeShelf, &garage.ID)
	mustLocation(t, s, "Attic", model.LocationTypeHouse, nil)

	all, err := s.ListLocations(ctx)
	require.NoError(t, err)

	var paths []string
	for _, l := range all {
		paths = append(paths, l.FullPath)
	}
	assert.Equal(t, []string{"Attic", "House", "House/Garage", "House/Garage/Shelf", "House/Kitchen"}, paths)
}

func mustPath(t *testing.T, s *Store, id int64) string {
	t.Helper()
	p, err := s.LocationPath(context.Background(), id)
	require.NoError(t, err)
	return p
}
