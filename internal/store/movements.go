package store

import (
	"context"
	"strings"

	"github.com/erazemk/hisa/internal/model"
)

// recordMovement appends a row to the movement history. Location paths and
// the item name are copied so the row stays readable after deletes.
func (tx *Tx) recordMovement(ctx context.Context, kind model.MovementKind, it *model.Item, from, to *model.Location, quantity int, note string) error {
	var (
		fromID   *int64
		fromPath string
	)
	if from != nil {
		fromID = &from.ID
		fromPath = from.FullPath
	}

	_, err := tx.exec(ctx,
		`INSERT INTO movements (item_id, kind, from_location_id, to_location_id, from_location_path,
			to_location_path, item_name, quantity, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, kind, fromID, to.ID, fromPath, to.FullPath, it.Name, quantity, strings.TrimSpace(note), tx.now,
	)
	return wrap("recording movement", err)
}

// ListMovements returns movement history in the order it was written.
func (tx *Tx) ListMovements(ctx context.Context, f model.MovementFilter) ([]model.Movement, error) {
	var (
		where []string
		args  []any
	)
	if f.ItemID != 0 {
		where = append(where, `item_id = ?`)
		args = append(args, f.ItemID)
	}
	if f.LocationID != 0 {
		where = append(where, `(from_location_id = ? OR to_location_id = ?)`)
		args = append(args, f.LocationID, f.LocationID)
	}
	if f.Kind != "" {
		where = append(where, `kind = ?`)
		args = append(args, f.Kind)
	}

	query := `SELECT id, item_id, kind, from_location_id, to_location_id, from_location_path, to_location_path,
		item_name, quantity, note, created_at FROM movements`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := tx.query(ctx, query, args...)
	if err != nil {
		return nil, wrap("listing movements", err)
	}
	defer rows.Close()

	var out []model.Movement
	for rows.Next() {
		var m model.Movement
		err := rows.Scan(&m.ID, &m.ItemID, &m.Kind, &m.FromLocationID, &m.ToLocationID, &m.FromLocationPath,
			&m.ToLocationPath, &m.ItemName, &m.Quantity, &m.Note, &m.CreatedAt)
		if err != nil {
			return nil, wrap("scanning movement", err)
		}
		out = append(out, m)
	}
	return out, wrap("listing movements", rows.Err())
}

// ListMovements returns movement history matching f.
func (s *Store) ListMovements(ctx context.Context, f model.MovementFilter) ([]model.Movement, error) {
	return s.View().ListMovements(ctx, f)
}
