package store

import (
	"context"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/model"
)

// AssignLocation adds quantity units of an item to a location, creating the
// entry when the item is not stocked there yet.
func (tx *Tx) AssignLocation(ctx context.Context, itemID, locationID int64, quantity int, note string) (*model.ItemSummary, error) {
	if quantity <= 0 {
		return nil, apperr.Invalid("quantity", "must be positive")
	}
	it, err := tx.findItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	to, err := tx.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	if err := tx.addStock(ctx, itemID, locationID, quantity); err != nil {
		return nil, err
	}
	if err := tx.recordMovement(ctx, model.MovementAssign, it, nil, to, quantity, note); err != nil {
		return nil, err
	}
	return tx.ItemSummary(ctx, itemID)
}

// MoveItem moves quantity units of an item between two locations. When the
// source holds too few units nothing changes.
func (tx *Tx) MoveItem(ctx context.Context, itemID, fromID, toID int64, quantity int, note string) (*model.ItemSummary, error) {
	if quantity <= 0 {
		return nil, apperr.Invalid("quantity", "must be positive")
	}
	if fromID == toID {
		return nil, apperr.Invalid("to_location_id", "must differ from from_location_id")
	}
	it, from, to, err := tx.ledgerEnds(ctx, itemID, fromID, toID)
	if err != nil {
		return nil, err
	}

	if err := tx.transfer(ctx, model.MovementMove, it, from, to, quantity, note); err != nil {
		return nil, err
	}
	return tx.ItemSummary(ctx, itemID)
}

// SplitItem distributes units of an item from one location to several
// others in a single step.
func (tx *Tx) SplitItem(ctx context.Context, itemID, fromID int64, targets []model.SplitTarget, note string) (*model.ItemSummary, error) {
	if len(targets) == 0 {
		return nil, apperr.Invalid("targets", "at least one target is required")
	}

	var vs []apperr.Violation
	seen := make(map[int64]bool, len(targets))
	total := 0
	for _, t := range targets {
		switch {
		case t.Quantity <= 0:
			vs = append(vs, apperr.Violation{Field: "targets", Message: "quantities must be positive"})
		case t.LocationID == fromID:
			vs = append(vs, apperr.Violation{Field: "targets", Message: "a target must differ from the source"})
		case seen[t.LocationID]:
			vs = append(vs, apperr.Violation{Field: "targets", Message: "duplicate target location"})
		}
		seen[t.LocationID] = true
		total += t.Quantity
	}
	if err := apperr.Validation(vs); err != nil {
		return nil, err
	}

	it, err := tx.findItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	from, err := tx.GetLocation(ctx, fromID)
	if err != nil {
		return nil, err
	}
	available, err := tx.quantity(ctx, itemID, fromID)
	if err != nil {
		return nil, err
	}
	if available < total {
		return nil, &apperr.InsufficientQuantityError{ItemID: itemID, LocationID: fromID, Available: available, Requested: total}
	}

	for _, t := range targets {
		to, err := tx.GetLocation(ctx, t.LocationID)
		if err != nil {
			return nil, err
		}
		if err := tx.transfer(ctx, model.MovementSplit, it, from, to, t.Quantity, note); err != nil {
			return nil, err
		}
	}
	return tx.ItemSummary(ctx, itemID)
}

// MergeLocations moves every unit of an item held at one location into
// another.
func (tx *Tx) MergeLocations(ctx context.Context, itemID, fromID, toID int64, note string) (*model.ItemSummary, error) {
	if fromID == toID {
		return nil, apperr.Invalid("to_location_id", "must differ from from_location_id")
	}
	it, from, to, err := tx.ledgerEnds(ctx, itemID, fromID, toID)
	if err != nil {
		return nil, err
	}
	quantity, err := tx.quantity(ctx, itemID, fromID)
	if err != nil {
		return nil, err
	}
	if quantity == 0 {
		return nil, apperr.Invalid("from_location_id", "item %d has no stock at location %d", itemID, fromID)
	}

	if err := tx.transfer(ctx, model.MovementMerge, it, from, to, quantity, note); err != nil {
		return nil, err
	}
	return tx.ItemSummary(ctx, itemID)
}

// AdjustQuantity corrects the stock of an item at a location by a signed
// delta, for counts, losses and finds.
func (tx *Tx) AdjustQuantity(ctx context.Context, itemID, locationID int64, delta int, note string) (*model.ItemSummary, error) {
	if delta == 0 {
		return nil, apperr.Invalid("delta", "must not be zero")
	}
	it, err := tx.findItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	loc, err := tx.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	if delta > 0 {
		err = tx.addStock(ctx, itemID, locationID, delta)
	} else {
		err = tx.removeStock(ctx, itemID, locationID, -delta)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.recordMovement(ctx, model.MovementAdjust, it, loc, loc, delta, note); err != nil {
		return nil, err
	}
	return tx.ItemSummary(ctx, itemID)
}

func (tx *Tx) ledgerEnds(ctx context.Context, itemID, fromID, toID int64) (*model.Item, *model.Location, *model.Location, error) {
	it, err := tx.findItem(ctx, itemID)
	if err != nil {
		return nil, nil, nil, err
	}
	from, err := tx.GetLocation(ctx, fromID)
	if err != nil {
		return nil, nil, nil, err
	}
	to, err := tx.GetLocation(ctx, toID)
	if err != nil {
		return nil, nil, nil, err
	}
	return it, from, to, nil
}

func (tx *Tx) transfer(ctx context.Context, kind model.MovementKind, it *model.Item, from, to *model.Location, quantity int, note string) error {
	if err := tx.removeStock(ctx, it.ID, from.ID, quantity); err != nil {
		return err
	}
	if err := tx.addStock(ctx, it.ID, to.ID, quantity); err != nil {
		return err
	}
	return tx.recordMovement(ctx, kind, it, from, to, quantity, note)
}

// quantity returns the units of an item at a location, zero without an
// entry.
func (tx *Tx) quantity(ctx context.Context, itemID, locationID int64) (int, error) {
	var n int
	err := tx.queryRow(ctx,
		`SELECT quantity FROM inventory WHERE item_id = ? AND location_id = ?`, itemID, locationID,
	).Scan(&n)
	if isNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, wrap("getting quantity", err)
	}
	return n, nil
}

func (tx *Tx) addStock(ctx context.Context, itemID, locationID int64, quantity int) error {
	_, err := tx.exec(ctx,
		`INSERT INTO inventory (item_id, location_id, quantity, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (item_id, location_id)
		 DO UPDATE SET quantity = inventory.quantity + excluded.quantity, updated_at = excluded.updated_at`,
		itemID, locationID, quantity, tx.now, tx.now,
	)
	return wrap("adding stock", err)
}

// removeStock takes units away from an entry, deleting it when it reaches
// zero. Each write is conditional on the stored quantity, so a concurrent
// removal that committed first turns this one into an
// InsufficientQuantityError instead of a lost update.
func (tx *Tx) removeStock(ctx context.Context, itemID, locationID int64, quantity int) error {
	res, err := tx.exec(ctx,
		`UPDATE inventory SET quantity = quantity - ?, updated_at = ?
		 WHERE item_id = ? AND location_id = ? AND quantity > ?`,
		quantity, tx.now, itemID, locationID, quantity,
	)
	if err != nil {
		return wrap("removing stock", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return wrap("removing stock", err)
	} else if n == 1 {
		return nil
	}

	res, err = tx.exec(ctx,
		`DELETE FROM inventory WHERE item_id = ? AND location_id = ? AND quantity = ?`,
		itemID, locationID, quantity,
	)
	if err != nil {
		return wrap("removing stock", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return wrap("removing stock", err)
	} else if n == 1 {
		return nil
	}

	available, err := tx.quantity(ctx, itemID, locationID)
	if err != nil {
		return err
	}
	return &apperr.InsufficientQuantityError{ItemID: itemID, LocationID: locationID, Available: available, Requested: quantity}
}

const inventoryQuery = `SELECT inv.item_id, inv.location_id, inv.quantity, inv.created_at, inv.updated_at,
	        i.name, l.name
	 FROM inventory inv
	 JOIN items i ON i.id = inv.item_id
	 JOIN locations l ON l.id = inv.location_id`

func (tx *Tx) listInventory(ctx context.Context, where, order string, args ...any) ([]model.Inventory, error) {
	query := inventoryQuery
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY ` + order

	rows, err := tx.query(ctx, query, args...)
	if err != nil {
		return nil, wrap("listing inventory", err)
	}
	defer rows.Close()

	var out []model.Inventory
	for rows.Next() {
		var inv model.Inventory
		err := rows.Scan(&inv.ItemID, &inv.LocationID, &inv.Quantity, &inv.CreatedAt, &inv.UpdatedAt,
			&inv.ItemName, &inv.LocationName)
		if err != nil {
			return nil, wrap("scanning inventory", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("listing inventory", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	tree, err := tx.LocationTree(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].LocationPath = tree.FullPath(out[i].LocationID)
	}
	return out, nil
}

// ItemSummary returns an item's total stock and where it is held, earliest
// entry first.
func (tx *Tx) ItemSummary(ctx context.Context, itemID int64) (*model.ItemSummary, error) {
	it, err := tx.findItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	entries, err := tx.listInventory(ctx, `inv.item_id = ?`, `inv.created_at, inv.location_id`, itemID)
	if err != nil {
		return nil, err
	}

	s := &model.ItemSummary{ItemID: it.ID, ItemName: it.Name, Locations: entries}
	if s.Locations == nil {
		s.Locations = []model.Inventory{}
	}
	for _, e := range entries {
		s.Total += e.Quantity
	}
	return s, nil
}

// LocationInventory returns the entries held at a location, and optionally
// anywhere in its subtree.
func (tx *Tx) LocationInventory(ctx context.Context, locationID int64, includeDescendants bool) ([]model.Inventory, error) {
	ids := []int64{locationID}
	if includeDescendants {
		tree, err := tx.locationSnapshot(ctx, locationID)
		if err != nil {
			return nil, err
		}
		for _, d := range tree.Descendants(locationID) {
			ids = append(ids, d.ID)
		}
	} else if _, err := tx.GetLocation(ctx, locationID); err != nil {
		return nil, err
	}

	return tx.listInventory(ctx,
		`inv.location_id IN (`+placeholders(len(ids))+`)`, `lower(i.name), inv.location_id`, int64Args(ids)...)
}

// ListInventory returns every inventory entry.
func (tx *Tx) ListInventory(ctx context.Context) ([]model.Inventory, error) {
	return tx.listInventory(ctx, "", `lower(i.name), inv.item_id, inv.location_id`)
}

// AssignLocation adds stock of an item at a location.
func (s *Store) AssignLocation(ctx context.Context, itemID, locationID int64, quantity int, note string) (*model.ItemSummary, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.ItemSummary, error) {
		return tx.AssignLocation(ctx, itemID, locationID, quantity, note)
	})
}

// MoveItem moves stock between two locations.
func (s *Store) MoveItem(ctx context.Context, itemID, fromID, toID int64, quantity int, note string) (*model.ItemSummary, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.ItemSummary, error) {
		return tx.MoveItem(ctx, itemID, fromID, toID, quantity, note)
	})
}

// SplitItem distributes stock to several locations.
func (s *Store) SplitItem(ctx context.Context, itemID, fromID int64, targets []model.SplitTarget, note string) (*model.ItemSummary, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.ItemSummary, error) {
		return tx.SplitItem(ctx, itemID, fromID, targets, note)
	})
}

// MergeLocations moves all stock from one location to another.
func (s *Store) MergeLocations(ctx context.Context, itemID, fromID, toID int64, note string) (*model.ItemSummary, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.ItemSummary, error) {
		return tx.MergeLocations(ctx, itemID, fromID, toID, note)
	})
}

// AdjustQuantity corrects stock at a location.
func (s *Store) AdjustQuantity(ctx context.Context, itemID, locationID int64, delta int, note string) (*model.ItemSummary, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.ItemSummary, error) {
		return tx.AdjustQuantity(ctx, itemID, locationID, delta, note)
	})
}

// ItemSummary returns an item's stock breakdown.
func (s *Store) ItemSummary(ctx context.Context, itemID int64) (*model.ItemSummary, error) {
	return s.View().ItemSummary(ctx, itemID)
}

// LocationInventory returns the stock held at a location.
func (s *Store) LocationInventory(ctx context.Context, locationID int64, includeDescendants bool) ([]model.Inventory, error) {
	return s.View().LocationInventory(ctx, locationID, includeDescendants)
}

// ListInventory returns every inventory entry.
func (s *Store) ListInventory(ctx context.Context) ([]model.Inventory, error) {
	return s.View().ListInventory(ctx)
}
