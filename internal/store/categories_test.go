package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/model"
)

func TestCategoryNamesUniqueAmongActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tools, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Tools", Color: "#336699"})
	require.NoError(t, err)
	assert.True(t, tools.Active)

	_, err = s.CreateCategory(ctx, model.CategoryInput{Name: "tools"})
	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)

	_, err = s.CreateCategory(ctx, model.CategoryInput{Name: "Paint", Color: "blue"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDeleteCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	unused, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Unused"})
	require.NoError(t, err)
	res, err := s.DeleteCategory(ctx, unused.ID)
	require.NoError(t, err)
	assert.False(t, res.SoftDeleted)
	_, err = s.GetCategory(ctx, unused.ID)
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)

	tools, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Tools"})
	require.NoError(t, err)
	mustItem(t, s, model.ItemInput{Name: "Drill", CategoryID: &tools.ID})

	res, err = s.DeleteCategory(ctx, tools.ID)
	require.NoError(t, err)
	assert.True(t, res.SoftDeleted)

	active, err := s.ListCategories(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := s.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Inactive categories cannot be referenced, and free their name.
	_, err = s.CreateItem(ctx, model.ItemInput{Name: "Saw", CategoryID: &tools.ID})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	replacement, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Tools"})
	require.NoError(t, err)

	// Restoring would clash with the replacement.
	_, err = s.RestoreCategory(ctx, tools.ID)
	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)

	_, err = s.DeleteCategory(ctx, replacement.ID)
	require.NoError(t, err)
	restored, err := s.RestoreCategory(ctx, tools.ID)
	require.NoError(t, err)
	assert.True(t, restored.Active)
}

func TestUpdateCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Tools", Description: "Hand tools"})
	require.NoError(t, err)

	got, err := s.UpdateCategory(ctx, c.ID, model.CategoryInput{Color: "#AABBCC"})
	require.NoError(t, err)
	assert.Equal(t, "Tools", got.Name)
	assert.Equal(t, "Hand tools", got.Description)
	assert.Equal(t, "#AABBCC", got.Color)
}
