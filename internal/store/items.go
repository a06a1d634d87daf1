package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/db"
	"github.com/erazemk/hisa/internal/model"
)

const itemColumns = `id, name, description, type, condition, status, brand, model, serial_number, barcode,
	purchase_price, current_value, purchase_date, warranty_expiry, weight, dimensions, color,
	category_id, active, version, notes, tags, photo_key, photo_mime, created_at, updated_at`

// ItemFilter narrows an item listing. Zero fields match everything.
type ItemFilter struct {
	Type            model.ItemType
	Status          model.Status
	Condition       model.Condition
	CategoryID      int64
	Tag             string
	Query           string
	IncludeInactive bool
	Limit           int
	Offset          int
}

func scanItem(sc scanner) (*model.Item, error) {
	it := &model.Item{}
	var serial, barcode sql.NullString
	err := sc.Scan(
		&it.ID, &it.Name, &it.Description, &it.Type, &it.Condition, &it.Status, &it.Brand, &it.Model,
		&serial, &barcode, &it.PurchasePrice, &it.CurrentValue, &it.PurchaseDate, &it.WarrantyExpiry,
		&it.Weight, &it.Dimensions, &it.Color, &it.CategoryID, &it.Active, &it.Version, &it.Notes,
		&it.Tags, &it.PhotoKey, &it.PhotoMime, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.SerialNumber = serial.String
	it.Barcode = barcode.String
	return it, nil
}

// amount converts an optional decimal for storage.
func amount(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// CreateItem validates and stores a new item at version 1.
func (tx *Tx) CreateItem(ctx context.Context, in model.ItemInput) (*model.Item, error) {
	it, err := model.NewItem(in, tx.now)
	if err != nil {
		return nil, err
	}
	if err := tx.checkCategoryRef(ctx, it.CategoryID); err != nil {
		return nil, err
	}
	if err := tx.checkItemUnique(ctx, it); err != nil {
		return nil, err
	}

	err = tx.queryRow(ctx,
		`INSERT INTO items (name, description, type, condition, status, brand, model, serial_number, barcode,
			purchase_price, current_value, purchase_date, warranty_expiry, weight, dimensions, color,
			category_id, active, version, notes, tags, photo_key, photo_mime, created_at, updated_at)
		 VALUES (`+placeholders(25)+`) RETURNING id`,
		it.Name, it.Description, it.Type, it.Condition, it.Status, it.Brand, it.Model,
		nullString(it.SerialNumber), nullString(it.Barcode), amount(it.PurchasePrice), amount(it.CurrentValue),
		it.PurchaseDate, it.WarrantyExpiry, amount(it.Weight), it.Dimensions, it.Color, it.CategoryID,
		it.Active, it.Version, it.Notes, it.Tags, it.PhotoKey, it.PhotoMime, it.CreatedAt, it.UpdatedAt,
	).Scan(&it.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, &apperr.DuplicateError{Entity: "item", Field: "serial_number/barcode", Value: it.SerialNumber + it.Barcode}
		}
		return nil, wrap("creating item", err)
	}
	return tx.GetItem(ctx, it.ID)
}

func (tx *Tx) findItem(ctx context.Context, id int64) (*model.Item, error) {
	it, err := scanItem(tx.queryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("item", id)
	}
	if err != nil {
		return nil, wrap("getting item", err)
	}
	return it, nil
}

// GetItem returns an item, active or not, with its history.
func (tx *Tx) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	it, err := tx.findItem(ctx, id)
	if err != nil {
		return nil, err
	}
	it.History, err = tx.ItemHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// ItemHistory returns an item's audit entries, oldest first.
func (tx *Tx) ItemHistory(ctx context.Context, id int64) ([]model.AuditEntry, error) {
	rows, err := tx.query(ctx,
		`SELECT item_id, version, action, detail, created_at FROM item_events WHERE item_id = ? ORDER BY version`, id)
	if err != nil {
		return nil, wrap("listing item history", err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ItemID, &e.Version, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, wrap("scanning item event", err)
		}
		out = append(out, e)
	}
	return out, wrap("listing item history", rows.Err())
}

// ListItems returns items matching filter, ordered by name.
func (tx *Tx) ListItems(ctx context.Context, f ItemFilter) ([]model.Item, error) {
	var (
		where []string
		args  []any
	)
	if !f.IncludeInactive {
		where = append(where, `active = TRUE`)
	}
	if f.Type != "" {
		where = append(where, `type = ?`)
		args = append(args, f.Type)
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, f.Status)
	}
	if f.Condition != "" {
		where = append(where, `condition = ?`)
		args = append(args, f.Condition)
	}
	if f.CategoryID != 0 {
		where = append(where, `category_id = ?`)
		args = append(args, f.CategoryID)
	}
	if tag := model.NormalizeTag(f.Tag); tag != "" {
		where = append(where, `(',' || tags || ',') LIKE ?`)
		args = append(args, "%,"+tag+",%")
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		where = append(where, `(lower(name) LIKE ? OR lower(description) LIKE ? OR lower(brand) LIKE ?
			OR lower(model) LIKE ? OR lower(notes) LIKE ? OR lower(tags) LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like, like, like, like, like)
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY lower(name), id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, max(f.Offset, 0))
	}

	return tx.listItems(ctx, query, args...)
}

// SearchItemsText matches items by case-insensitive substring over their
// text fields. It is the fallback when semantic search is unavailable.
func (tx *Tx) SearchItemsText(ctx context.Context, text string, f ItemFilter) ([]model.Item, error) {
	f.Query = text
	return tx.ListItems(ctx, f)
}

// ItemsByIDs returns the items with the given IDs in the order asked for.
// Unknown IDs are skipped.
func (tx *Tx) ItemsByIDs(ctx context.Context, ids []int64) ([]model.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	items, err := tx.listItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]model.Item, 0, len(items))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (tx *Tx) listItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := tx.query(ctx, query, args...)
	if err != nil {
		return nil, wrap("listing items", err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, wrap("scanning item", err)
		}
		out = append(out, *it)
	}
	return out, wrap("listing items", rows.Err())
}

// PrimaryLocation returns the location of the item's earliest inventory
// entry, or nil when the item is not stocked anywhere.
func (tx *Tx) PrimaryLocation(ctx context.Context, itemID int64) (*model.Location, error) {
	var locationID int64
	err := tx.queryRow(ctx,
		`SELECT location_id FROM inventory WHERE item_id = ? ORDER BY created_at, location_id LIMIT 1`, itemID,
	).Scan(&locationID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("getting primary location", err)
	}
	return tx.GetLocation(ctx, locationID)
}

// ItemDetails returns an item with its derived properties.
func (tx *Tx) ItemDetails(ctx context.Context, id int64) (*model.ItemDetails, error) {
	it, err := tx.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	primary, err := tx.PrimaryLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	d := it.Details(primary, tx.now)
	return &d, nil
}

// itemMutation changes an item in memory. It reports false when nothing
// changed, in which case no write happens.
type itemMutation func(it *model.Item) (model.AuditEntry, bool, error)

// mutateItem loads an item, applies fn and persists the result with a
// compare-and-swap on the version it read. expected, when set, must match
// the stored version.
func (tx *Tx) mutateItem(ctx context.Context, id int64, expected *int64, fn itemMutation) (*model.Item, error) {
	it, err := tx.findItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if expected != nil && *expected != it.Version {
		return nil, &apperr.ConflictError{Entity: "item", ID: id, Expected: *expected, Actual: it.Version}
	}

	prev := *it
	entry, ok, err := fn(it)
	if err != nil {
		return nil, err
	}
	if !ok {
		return tx.GetItem(ctx, id)
	}

	if it.SerialNumber != prev.SerialNumber || it.Barcode != prev.Barcode {
		if err := tx.checkItemUnique(ctx, it); err != nil {
			return nil, err
		}
	}
	if it.CategoryID != nil && (prev.CategoryID == nil || *prev.CategoryID != *it.CategoryID) {
		if err := tx.checkCategoryRef(ctx, it.CategoryID); err != nil {
			return nil, err
		}
	}

	res, err := tx.exec(ctx,
		`UPDATE items SET name = ?, description = ?, type = ?, condition = ?, status = ?, brand = ?, model = ?,
			serial_number = ?, barcode = ?, purchase_price = ?, current_value = ?, purchase_date = ?,
			warranty_expiry = ?, weight = ?, dimensions = ?, color = ?, category_id = ?, active = ?,
			version = ?, notes = ?, tags = ?, photo_key = ?, photo_mime = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		it.Name, it.Description, it.Type, it.Condition, it.Status, it.Brand, it.Model,
		nullString(it.SerialNumber), nullString(it.Barcode), amount(it.PurchasePrice), amount(it.CurrentValue),
		it.PurchaseDate, it.WarrantyExpiry, amount(it.Weight), it.Dimensions, it.Color, it.CategoryID,
		it.Active, it.Version, it.Notes, it.Tags, it.PhotoKey, it.PhotoMime, it.UpdatedAt,
		id, prev.Version,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, &apperr.DuplicateError{Entity: "item", Field: "serial_number/barcode", Value: it.SerialNumber + it.Barcode}
		}
		return nil, wrap("updating item", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, wrap("updating item", err)
	}
	if n == 0 {
		actual, err := tx.findItem(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &apperr.ConflictError{Entity: "item", ID: id, Expected: prev.Version, Actual: actual.Version}
	}

	_, err = tx.exec(ctx,
		`INSERT INTO item_events (item_id, version, action, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ItemID, entry.Version, entry.Action, entry.Detail, entry.CreatedAt,
	)
	if err != nil {
		return nil, wrap("recording item event", err)
	}
	return tx.GetItem(ctx, id)
}

func always(fn func(it *model.Item) (model.AuditEntry, error)) itemMutation {
	return func(it *model.Item) (model.AuditEntry, bool, error) {
		e, err := fn(it)
		return e, err == nil, err
	}
}

// UpdateItem applies a partial update to the descriptive fields.
func (tx *Tx) UpdateItem(ctx context.Context, id int64, patch model.ItemPatch, expected *int64) (*model.Item, error) {
	return tx.mutateItem(ctx, id, expected, always(func(it *model.Item) (model.AuditEntry, error) {
		return it.ApplyPatch(patch, tx.now)
	}))
}

// UpdateCondition sets an item's condition, noting the transition.
func (tx *Tx) UpdateCondition(ctx context.Context, id int64, c model.Condition, note string, expected *int64) (*model.Item, error) {
	return tx.mutateItem(ctx, id, expected, always(func(it *model.Item) (model.AuditEntry, error) {
		return it.ChangeCondition(c, note, tx.now)
	}))
}

// UpdateStatus sets an item's status.
func (tx *Tx) UpdateStatus(ctx context.Context, id int64, s model.Status, note string, expected *int64) (*model.Item, error) {
	return tx.mutateItem(ctx, id, expected, always(func(it *model.Item) (model.AuditEntry, error) {
		return it.ChangeStatus(s, note, tx.now)
	}))
}

// UpdateValue sets an item's current value.
func (tx *Tx) UpdateValue(ctx context.Context, id int64, v decimal.Decimal, note string, expected *int64) (*model.Item, error) {
	return tx.mutateItem(ctx, id, expected, always(func(it *model.Item) (model.AuditEntry, error) {
		return it.UpdateValue(v, note, tx.now)
	}))
}

// SoftDeleteItem deactivates an item and marks it disposed. The row and its
// stock records are kept.
func (tx *Tx) SoftDeleteItem(ctx context.Context, id int64, reason string, expected *int64) (*model.Item, error) {
	return tx.mutateItem(ctx, id, expected, always(func(it *model.Item) (model.AuditEntry, error) {
		return it.Deactivate(reason, tx.now), nil
	}))
}

// RestoreItem reactivates an item with the given status, available when
// empty.
func (tx *Tx) RestoreItem(ctx context.Context, id int64, s model.Status, expected *int64) (*model.Item, error) {
	return tx.mutateItem(ctx, id, expected, always(func(it *model.Item) (model.AuditEntry, error) {
		return it.Restore(s, tx.now)
	}))
}

// AddTag adds a tag. Adding a tag the item already has changes nothing.
func (tx *Tx) AddTag(ctx context.Context, id int64, tag string, expected *int64) (*model.Item, bool, error) {
	var changed bool
	it, err := tx.mutateItem(ctx, id, expected, func(it *model.Item) (model.AuditEntry, bool, error) {
		entry, ok, err := it.AddTag(tag, tx.now)
		changed = ok
		return entry, ok, err
	})
	return it, changed, err
}

// RemoveTag removes a tag. Removing a tag the item lacks changes nothing.
func (tx *Tx) RemoveTag(ctx context.Context, id int64, tag string, expected *int64) (*model.Item, bool, error) {
	var changed bool
	it, err := tx.mutateItem(ctx, id, expected, func(it *model.Item) (model.AuditEntry, bool, error) {
		entry, ok, err := it.RemoveTag(tag, tx.now)
		changed = ok
		return entry, ok, err
	})
	return it, changed, err
}

// SetItemPhoto records the blob key and media type of an item's photo.
func (tx *Tx) SetItemPhoto(ctx context.Context, id int64, key, mime string) (*model.Item, error) {
	return tx.mutateItem(ctx, id, nil, always(func(it *model.Item) (model.AuditEntry, error) {
		return it.SetPhoto(key, mime, tx.now), nil
	}))
}

// checkItemUnique returns a DuplicateError when another item already uses
// the serial number or barcode of it.
func (tx *Tx) checkItemUnique(ctx context.Context, it *model.Item) error {
	for _, c := range []struct{ field, value string }{
		{"serial_number", it.SerialNumber},
		{"barcode", it.Barcode},
	} {
		if c.value == "" {
			continue
		}
		var n int
		err := tx.queryRow(ctx,
			`SELECT COUNT(*) FROM items WHERE `+c.field+` = ? AND id <> ?`, c.value, it.ID,
		).Scan(&n)
		if err != nil {
			return wrap("checking item "+c.field, err)
		}
		if n > 0 {
			return &apperr.DuplicateError{Entity: "item", Field: c.field, Value: c.value}
		}
	}
	return nil
}

// CreateItem validates and stores a new item.
func (s *Store) CreateItem(ctx context.Context, in model.ItemInput) (*model.Item, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Item, error) { return tx.CreateItem(ctx, in) })
}

// GetItem returns an item with its history.
func (s *Store) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return s.View().GetItem(ctx, id)
}

// ItemDetails returns an item with its derived properties.
func (s *Store) ItemDetails(ctx context.Context, id int64) (*model.ItemDetails, error) {
	return s.View().ItemDetails(ctx, id)
}

// ItemHistory returns an item's audit entries.
func (s *Store) ItemHistory(ctx context.Context, id int64) ([]model.AuditEntry, error) {
	if _, err := s.View().findItem(ctx, id); err != nil {
		return nil, err
	}
	return s.View().ItemHistory(ctx, id)
}

// ListItems returns items matching filter.
func (s *Store) ListItems(ctx context.Context, f ItemFilter) ([]model.Item, error) {
	return s.View().ListItems(ctx, f)
}

// SearchItemsText matches items by substring.
func (s *Store) SearchItemsText(ctx context.Context, text string, f ItemFilter) ([]model.Item, error) {
	return s.View().SearchItemsText(ctx, text, f)
}

// ItemsByIDs returns items in the order of ids.
func (s *Store) ItemsByIDs(ctx context.Context, ids []int64) ([]model.Item, error) {
	return s.View().ItemsByIDs(ctx, ids)
}

// UpdateItem applies a partial update.
func (s *Store) UpdateItem(ctx context.Context, id int64, patch model.ItemPatch, expected *int64) (*model.Item, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Item, error) { return tx.UpdateItem(ctx, id, patch, expected) })
}

// UpdateCondition sets an item's condition.
func (s *Store) UpdateCondition(ctx context.Context, id int64, c model.Condition, note string, expected *int64) (*model.Item, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Item, error) { return tx.UpdateCondition(ctx, id, c, note, expected) })
}

// UpdateStatus sets an item's status.
func (s *Store) UpdateStatus(ctx context.Context, id int64, st model.Status, note string, expected *int64) (*model.Item, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Item, error) { return tx.UpdateStatus(ctx, id, st, note, expected) })
}

// UpdateValue sets an item's current value.
func (s *Store) UpdateValue(ctx context.Context, id int64, v decimal.Decimal, note string, expected *int64) (*model.Item, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Item, error) { return tx.UpdateValue(ctx, id, v, note, expected) })
}

// SoftDeleteItem deactivates an item.
func (s *Store) SoftDeleteItem(ctx context.Context, id int64, reason string, expected *int64) (*model.Item, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Item, error) { return tx.SoftDeleteItem(ctx, id, reason, expected) })
}

// RestoreItem reactivates an item.
func (s *Store) RestoreItem(ctx context.Context, id int64, st model.Status, expected *int64) (*model.Item, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Item, error) { return tx.RestoreItem(ctx, id, st, expected) })
}

// AddTag adds a tag to an item, reporting whether the item changed.
func (s *Store) AddTag(ctx context.Context, id int64, tag string, expected *int64) (it *model.Item, changed bool, err error) {
	err = s.InTx(ctx, func(tx *Tx) error {
		it, changed, err = tx.AddTag(ctx, id, tag, expected)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return it, changed, nil
}

// RemoveTag removes a tag from an item, reporting whether the item changed.
func (s *Store) RemoveTag(ctx context.Context, id int64, tag string, expected *int64) (it *model.Item, changed bool, err error) {
	err = s.InTx(ctx, func(tx *Tx) error {
		it, changed, err = tx.RemoveTag(ctx, id, tag, expected)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return it, changed, nil
}

// SetItemPhoto records an item's photo.
func (s *Store) SetItemPhoto(ctx context.Context, id int64, key, mime string) (*model.Item, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Item, error) { return tx.SetItemPhoto(ctx, id, key, mime) })
}
