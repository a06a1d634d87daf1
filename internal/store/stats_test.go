package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/hisa/internal/model"
)

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", model.LocationTypeHouse, nil)
	garage := mustLocation(t, s, "Garage", model.LocationTypeRoom, &house.ID)
	_, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Tools"})
	require.NoError(t, err)

	drill := mustItem(t, s, model.ItemInput{Name: "Drill", Type: "tools", PurchasePrice: "150", WarrantyExpiry: "2027-01-01"})
	mustItem(t, s, model.ItemInput{Name: "Lamp", Type: "decor", CurrentValue: "20.50", PurchasePrice: "300"})
	gone := mustItem(t, s, model.ItemInput{Name: "Old saw", Type: "tools", PurchasePrice: "999"})
	_, err = s.SoftDeleteItem(ctx, gone.ID, "", nil)
	require.NoError(t, err)

	_, err = s.AssignLocation(ctx, drill.ID, garage.ID, 3, "")
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Items)
	assert.Equal(t, 2, st.ActiveItems)
	assert.Equal(t, 1, st.InactiveItems)
	assert.Equal(t, 1, st.ItemsByType[model.ItemTypeTools])
	assert.Equal(t, 1, st.ItemsByType[model.ItemTypeDecor])
	assert.Equal(t, 2, st.ItemsByStatus[model.StatusAvailable])
	assert.Equal(t, 3, st.TotalUnits)
	assert.True(t, st.TotalValue.Equal(decimal.RequireFromString("170.50")), st.TotalValue.String())
	assert.Equal(t, 2, st.ValuableItems)
	assert.Equal(t, 1, st.UnderWarranty)
	assert.Equal(t, 2, st.Locations)
	assert.Equal(t, 1, st.LocationsByType[model.LocationTypeHouse])
	assert.Equal(t, 1, st.Categories)
	assert.Equal(t, 1, st.Movements)
}
