package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/erazemk/hisa/internal/model"
)

// Stats aggregates the inventory. Breakdowns by type, status and condition
// and the value figures cover active items only.
func (tx *Tx) Stats(ctx context.Context) (*model.Stats, error) {
	st := &model.Stats{
		ItemsByType:      make(map[model.ItemType]int),
		ItemsByStatus:    make(map[model.Status]int),
		ItemsByCondition: make(map[model.Condition]int),
		LocationsByType:  make(map[model.LocationType]int),
		TotalValue:       decimal.Zero,
	}

	items, err := tx.ListItems(ctx, ItemFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	for i := range items {
		it := &items[i]
		st.Items++
		if !it.Active {
			st.InactiveItems++
			continue
		}
		st.ActiveItems++
		st.ItemsByType[it.Type]++
		st.ItemsByStatus[it.Status]++
		st.ItemsByCondition[it.Condition]++
		st.TotalValue = st.TotalValue.Add(it.Value())
		if it.IsValuable() {
			st.ValuableItems++
		}
		if it.IsUnderWarranty(tx.now) {
			st.UnderWarranty++
		}
	}

	rows, err := tx.query(ctx, `SELECT type, COUNT(*) FROM locations GROUP BY type`)
	if err != nil {
		return nil, wrap("counting locations", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t model.LocationType
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, wrap("scanning location count", err)
		}
		st.LocationsByType[t] = n
		st.Locations += n
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("counting locations", err)
	}

	err = tx.queryRow(ctx,
		`SELECT (SELECT COALESCE(SUM(quantity), 0) FROM inventory),
		        (SELECT COUNT(*) FROM categories WHERE active = TRUE),
		        (SELECT COUNT(*) FROM movements)`,
	).Scan(&st.TotalUnits, &st.Categories, &st.Movements)
	if err != nil {
		return nil, wrap("counting inventory", err)
	}
	return st, nil
}

// Stats aggregates the inventory.
func (s *Store) Stats(ctx context.Context) (*model.Stats, error) {
	return s.View().Stats(ctx)
}
