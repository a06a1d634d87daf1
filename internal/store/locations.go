package store

import (
	"context"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/model"
)

const locationColumns = `id, name, description, type, parent_id, category_id, created_at, updated_at`

func scanLocation(sc scanner) (*model.Location, error) {
	l := &model.Location{}
	err := sc.Scan(&l.ID, &l.Name, &l.Description, &l.Type, &l.ParentID, &l.CategoryID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// findLocation returns the location with the given ID, or nil when there is
// none. It does not fill the derived fields.
func (tx *Tx) findLocation(ctx context.Context, id int64) (*model.Location, error) {
	l, err := scanLocation(tx.queryRow(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = ?`, id,
	))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("getting location", err)
	}
	return l, nil
}

// lookup walks the tree by keyed queries inside the transaction.
func (tx *Tx) lookup(ctx context.Context) model.LookupFunc {
	return func(id int64) (*model.Location, error) {
		return tx.findLocation(ctx, id)
	}
}

func (tx *Tx) annotate(ctx context.Context, l *model.Location) error {
	ancestors, err := model.Ancestors(tx.lookup(ctx), l.ID)
	if err != nil {
		return err
	}
	l.Depth = len(ancestors)
	l.FullPath = l.Name
	for _, a := range ancestors {
		l.FullPath = a.Name + model.PathSeparator + l.FullPath
	}
	return nil
}

// CreateLocation creates a location under an optional parent.
func (tx *Tx) CreateLocation(ctx context.Context, in model.LocationInput) (*model.Location, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent, err := tx.findLocation(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, apperr.NotFound("location", *in.ParentID)
		}
	}
	if err := tx.checkCategoryRef(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	var id int64
	err := tx.queryRow(ctx,
		`INSERT INTO locations (name, description, type, parent_id, category_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		in.Name, in.Description, in.Type, in.ParentID, in.CategoryID, tx.now, tx.now,
	).Scan(&id)
	if err != nil {
		return nil, wrap("creating location", err)
	}
	return tx.GetLocation(ctx, id)
}

// GetLocation returns a location with its full path and depth.
func (tx *Tx) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	l, err := tx.findLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.NotFound("location", id)
	}
	if err := tx.annotate(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateLocation renames a location or changes its description, type or
// category. Parents change only through ReparentLocation.
func (tx *Tx) UpdateLocation(ctx context.Context, id int64, patch model.LocationPatch) (*model.Location, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	l, err := tx.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !patch.ClearCategory {
		if err := tx.checkCategoryRef(ctx, patch.CategoryID); err != nil {
			return nil, err
		}
	}
	patch.Apply(l)

	_, err = tx.exec(ctx,
		`UPDATE locations SET name = ?, description = ?, type = ?, category_id = ?, updated_at = ? WHERE id = ?`,
		l.Name, l.Description, l.Type, l.CategoryID, tx.now, id,
	)
	if err != nil {
		return nil, wrap("updating location", err)
	}
	return tx.GetLocation(ctx, id)
}

// ReparentLocation moves a location under newParent, or makes it a root when
// newParent is nil. It fails with a CycleError when newParent is the location
// itself or one of its descendants.
func (tx *Tx) ReparentLocation(ctx context.Context, id int64, newParent *int64) (*model.Location, error) {
	if _, err := tx.GetLocation(ctx, id); err != nil {
		return nil, err
	}
	if err := model.CheckReparent(tx.lookup(ctx), id, newParent); err != nil {
		return nil, err
	}

	_, err := tx.exec(ctx,
		`UPDATE locations SET parent_id = ?, updated_at = ? WHERE id = ?`, newParent, tx.now, id)
	if err != nil {
		return nil, wrap("reparenting location", err)
	}
	return tx.GetLocation(ctx, id)
}

// DeleteLocation deletes a location, its whole subtree and every inventory
// entry held anywhere in it. Movement history is kept.
func (tx *Tx) DeleteLocation(ctx context.Context, id int64) (*model.DeleteResult, error) {
	if _, err := tx.GetLocation(ctx, id); err != nil {
		return nil, err
	}

	// Breadth-first, so parents always precede their children.
	subtree := []int64{id}
	for i := 0; i < len(subtree); i++ {
		children, err := tx.childIDs(ctx, subtree[i])
		if err != nil {
			return nil, err
		}
		subtree = append(subtree, children...)
	}

	res, err := tx.exec(ctx,
		`DELETE FROM inventory WHERE location_id IN (`+placeholders(len(subtree))+`)`,
		int64Args(subtree)...,
	)
	if err != nil {
		return nil, wrap("deleting subtree inventory", err)
	}
	entries, err := rowsAffected(res)
	if err != nil {
		return nil, wrap("deleting subtree inventory", err)
	}

	for i := len(subtree) - 1; i >= 0; i-- {
		if _, err := tx.exec(ctx, `DELETE FROM locations WHERE id = ?`, subtree[i]); err != nil {
			return nil, wrap("deleting location", err)
		}
	}

	return &model.DeleteResult{Locations: len(subtree), InventoryEntries: int(entries)}, nil
}

func (tx *Tx) childIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := tx.query(ctx, `SELECT id FROM locations WHERE parent_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, wrap("listing child locations", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var child int64
		if err := rows.Scan(&child); err != nil {
			return nil, wrap("scanning child location", err)
		}
		ids = append(ids, child)
	}
	return ids, wrap("listing child locations", rows.Err())
}

// LocationTree loads every location into an in-memory tree, annotated with
// paths and depths.
func (tx *Tx) LocationTree(ctx context.Context) (*model.Tree, error) {
	rows, err := tx.query(ctx, `SELECT `+locationColumns+` FROM locations`)
	if err != nil {
		return nil, wrap("listing locations", err)
	}
	defer rows.Close()

	var all []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, wrap("scanning location", err)
		}
		all = append(all, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("listing locations", err)
	}

	tree := model.NewTree(all)
	tree.Annotate()
	return tree, nil
}

// ListLocations returns every location depth-first, roots sorted by name.
func (tx *Tx) ListLocations(ctx context.Context) ([]model.Location, error) {
	tree, err := tx.LocationTree(ctx)
	if err != nil {
		return nil, err
	}
	return deref(tree.Flatten()), nil
}

// LocationChildren returns the direct children of a location.
func (tx *Tx) LocationChildren(ctx context.Context, id int64) ([]model.Location, error) {
	tree, err := tx.locationSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return deref(tree.Children(id)), nil
}

// LocationDescendants returns every transitive child of a location once.
func (tx *Tx) LocationDescendants(ctx context.Context, id int64) ([]model.Location, error) {
	tree, err := tx.locationSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return deref(tree.Descendants(id)), nil
}

// LocationAncestors returns the ancestors of a location, nearest first.
func (tx *Tx) LocationAncestors(ctx context.Context, id int64) ([]model.Location, error) {
	ancestors, err := model.Ancestors(tx.lookup(ctx), id)
	if err != nil {
		return nil, err
	}
	out := make([]model.Location, 0, len(ancestors))
	for _, a := range ancestors {
		if err := tx.annotate(ctx, a); err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// LocationRoot returns the root of the tree containing a location.
func (tx *Tx) LocationRoot(ctx context.Context, id int64) (*model.Location, error) {
	root, err := model.Root(tx.lookup(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := tx.annotate(ctx, root); err != nil {
		return nil, err
	}
	return root, nil
}

// LocationPath returns the "/"-joined path of a location.
func (tx *Tx) LocationPath(ctx context.Context, id int64) (string, error) {
	return model.FullPath(tx.lookup(ctx), id)
}

// IsAncestor reports whether a is a proper ancestor of b.
func (tx *Tx) IsAncestor(ctx context.Context, a, b int64) (bool, error) {
	if _, err := tx.GetLocation(ctx, a); err != nil {
		return false, err
	}
	return model.IsAncestorOf(tx.lookup(ctx), a, b)
}

func (tx *Tx) locationSnapshot(ctx context.Context, id int64) (*model.Tree, error) {
	tree, err := tx.LocationTree(ctx)
	if err != nil {
		return nil, err
	}
	if tree.Get(id) == nil {
		return nil, apperr.NotFound("location", id)
	}
	return tree, nil
}

func deref(ls []*model.Location) []model.Location {
	out := make([]model.Location, len(ls))
	for i, l := range ls {
		out[i] = *l
	}
	return out
}

// CreateLocation creates a location.
func (s *Store) CreateLocation(ctx context.Context, in model.LocationInput) (*model.Location, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Location, error) { return tx.CreateLocation(ctx, in) })
}

// GetLocation returns a location with its path and depth.
func (s *Store) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	return s.View().GetLocation(ctx, id)
}

// UpdateLocation changes a location's name, description, type or category.
func (s *Store) UpdateLocation(ctx context.Context, id int64, patch model.LocationPatch) (*model.Location, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Location, error) { return tx.UpdateLocation(ctx, id, patch) })
}

// ReparentLocation moves a location under a new parent.
func (s *Store) ReparentLocation(ctx context.Context, id int64, newParent *int64) (*model.Location, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Location, error) { return tx.ReparentLocation(ctx, id, newParent) })
}

// DeleteLocation deletes a location subtree and its inventory.
func (s *Store) DeleteLocation(ctx context.Context, id int64) (*model.DeleteResult, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.DeleteResult, error) { return tx.DeleteLocation(ctx, id) })
}

// LocationTree returns a snapshot of the whole tree.
func (s *Store) LocationTree(ctx context.Context) (*model.Tree, error) {
	return s.View().LocationTree(ctx)
}

// ListLocations returns every location with paths and depths.
func (s *Store) ListLocations(ctx context.Context) ([]model.Location, error) {
	return s.View().ListLocations(ctx)
}

// LocationChildren returns the direct children of a location.
func (s *Store) LocationChildren(ctx context.Context, id int64) ([]model.Location, error) {
	return s.View().LocationChildren(ctx, id)
}

// LocationDescendants returns the whole subtree below a location.
func (s *Store) LocationDescendants(ctx context.Context, id int64) ([]model.Location, error) {
	return s.View().LocationDescendants(ctx, id)
}

// LocationAncestors returns the ancestors of a location, nearest first.
func (s *Store) LocationAncestors(ctx context.Context, id int64) ([]model.Location, error) {
	return s.View().LocationAncestors(ctx, id)
}

// LocationRoot returns the root above a location.
func (s *Store) LocationRoot(ctx context.Context, id int64) (*model.Location, error) {
	return s.View().LocationRoot(ctx, id)
}

// LocationPath returns the full path of a location.
func (s *Store) LocationPath(ctx context.Context, id int64) (string, error) {
	return s.View().LocationPath(ctx, id)
}

// LocationDepth returns the number of ancestors of a location.
func (s *Store) LocationDepth(ctx context.Context, id int64) (int, error) {
	tx := s.View()
	return model.Depth(tx.lookup(ctx), id)
}

// IsAncestor reports whether a is a proper ancestor of b.
func (s *Store) IsAncestor(ctx context.Context, a, b int64) (bool, error) {
	return s.View().IsAncestor(ctx, a, b)
}

// IsDescendant reports whether a is a proper descendant of b.
func (s *Store) IsDescendant(ctx context.Context, a, b int64) (bool, error) {
	return s.View().IsAncestor(ctx, b, a)
}
