package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/hisa/internal/db"
	"github.com/erazemk/hisa/internal/model"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(db.NewTestDB(t))
	s.Now = func() time.Time { return testNow }
	return s
}

func mustLocation(t *testing.T, s *Store, name string, typ model.LocationType, parent *int64) *model.Location {
	t.Helper()
	l, err := s.CreateLocation(context.Background(), model.LocationInput{Name: name, Type: typ, ParentID: parent})
	require.NoError(t, err)
	return l
}

func mustItem(t *testing.T, s *Store, in model.ItemInput) *model.Item {
	t.Helper()
	it, err := s.CreateItem(context.Background(), in)
	require.NoError(t, err)
	return it
}

func TestInTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.CreateLocation(ctx, model.LocationInput{Name: "House", Type: model.LocationTypeHouse}); err != nil {
			return err
		}
		_, err := tx.GetLocation(ctx, 999)
		return err
	})
	require.Error(t, err)

	all, err := s.ListLocations(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestPlaceholders(t *testing.T) {
	require.Equal(t, "", placeholders(0))
	require.Equal(t, "?", placeholders(1))
	require.Equal(t, "?, ?, ?", placeholders(3))
}
