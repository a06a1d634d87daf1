package store

import (
	"context"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/model"
)

const categoryColumns = `id, name, description, color, active, created_at, updated_at`

func scanCategory(sc scanner) (*model.Category, error) {
	c := &model.Category{}
	if err := sc.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCategory creates a category. Names are unique among active
// categories, ignoring case.
func (tx *Tx) CreateCategory(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}
	if err := tx.checkCategoryName(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	var id int64
	err := tx.queryRow(ctx,
		`INSERT INTO categories (name, description, color, active, created_at, updated_at)
		 VALUES (?, ?, ?, TRUE, ?, ?) RETURNING id`,
		in.Name, in.Description, in.Color, tx.now, tx.now,
	).Scan(&id)
	if err != nil {
		return nil, wrap("creating category", err)
	}
	return tx.GetCategory(ctx, id)
}

// GetCategory returns a category by ID, active or not.
func (tx *Tx) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := scanCategory(tx.queryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id,
	))
	if isNoRows(err) {
		return nil, apperr.NotFound("category", id)
	}
	if err != nil {
		return nil, wrap("getting category", err)
	}
	return c, nil
}

// ListCategories returns categories ordered by name. Inactive ones are
// included only when asked for.
func (tx *Tx) ListCategories(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if !includeInactive {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY lower(name), id`

	rows, err := tx.query(ctx, query)
	if err != nil {
		return nil, wrap("listing categories", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, wrap("scanning category", err)
		}
		out = append(out, *c)
	}
	return out, wrap("listing categories", rows.Err())
}

// UpdateCategory changes a category's fields. Empty input fields keep their
// current value.
func (tx *Tx) UpdateCategory(ctx context.Context, id int64, in model.CategoryInput) (*model.Category, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	c, err := tx.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" && in.Name != c.Name {
		if c.Active {
			if err := tx.checkCategoryName(ctx, in.Name, id); err != nil {
				return nil, err
			}
		}
		c.Name = in.Name
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if in.Color != "" {
		c.Color = in.Color
	}

	_, err = tx.exec(ctx,
		`UPDATE categories SET name = ?, description = ?, color = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, c.Color, tx.now, id,
	)
	if err != nil {
		return nil, wrap("updating category", err)
	}
	return tx.GetCategory(ctx, id)
}

// DeleteCategory removes a category. A category still referenced by an item
// or a location is only deactivated.
func (tx *Tx) DeleteCategory(ctx context.Context, id int64) (*model.CategoryDeleteResult, error) {
	if _, err := tx.GetCategory(ctx, id); err != nil {
		return nil, err
	}

	var refs int
	err := tx.queryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM items WHERE category_id = ?) +
		        (SELECT COUNT(*) FROM locations WHERE category_id = ?)`, id, id,
	).Scan(&refs)
	if err != nil {
		return nil, wrap("counting category references", err)
	}

	if refs > 0 {
		_, err = tx.exec(ctx,
			`UPDATE categories SET active = FALSE, updated_at = ? WHERE id = ?`, tx.now, id)
		if err != nil {
			return nil, wrap("deactivating category", err)
		}
		return &model.CategoryDeleteResult{SoftDeleted: true}, nil
	}

	if _, err := tx.exec(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return nil, wrap("deleting category", err)
	}
	return &model.CategoryDeleteResult{}, nil
}

// RestoreCategory reactivates a soft-deleted category.
func (tx *Tx) RestoreCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := tx.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Active {
		return c, nil
	}
	if err := tx.checkCategoryName(ctx, c.Name, id); err != nil {
		return nil, err
	}

	_, err = tx.exec(ctx,
		`UPDATE categories SET active = TRUE, updated_at = ? WHERE id = ?`, tx.now, id)
	if err != nil {
		return nil, wrap("restoring category", err)
	}
	return tx.GetCategory(ctx, id)
}

// checkCategoryName returns a DuplicateError when another active category,
// other than exceptID, already uses name.
func (tx *Tx) checkCategoryName(ctx context.Context, name string, exceptID int64) error {
	var n int
	err := tx.queryRow(ctx,
		`SELECT COUNT(*) FROM categories WHERE active = TRUE AND lower(name) = lower(?) AND id <> ?`,
		name, exceptID,
	).Scan(&n)
	if err != nil {
		return wrap("checking category name", err)
	}
	if n > 0 {
		return &apperr.DuplicateError{Entity: "category", Field: "name", Value: name}
	}
	return nil
}

// checkCategoryRef verifies that an optional category reference points at an
// active category.
func (tx *Tx) checkCategoryRef(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	c, err := tx.GetCategory(ctx, *id)
	if err != nil {
		return err
	}
	if !c.Active {
		return apperr.Invalid("category_id", "category %d is inactive", *id)
	}
	return nil
}

// CreateCategory creates a category.
func (s *Store) CreateCategory(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Category, error) { return tx.CreateCategory(ctx, in) })
}

// GetCategory returns a category by ID.
func (s *Store) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	return s.View().GetCategory(ctx, id)
}

// ListCategories returns categories ordered by name.
func (s *Store) ListCategories(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	return s.View().ListCategories(ctx, includeInactive)
}

// UpdateCategory changes a category's fields.
func (s *Store) UpdateCategory(ctx context.Context, id int64, in model.CategoryInput) (*model.Category, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Category, error) { return tx.UpdateCategory(ctx, id, in) })
}

// DeleteCategory removes or deactivates a category.
func (s *Store) DeleteCategory(ctx context.Context, id int64) (*model.CategoryDeleteResult, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.CategoryDeleteResult, error) { return tx.DeleteCategory(ctx, id) })
}

// RestoreCategory reactivates a category.
func (s *Store) RestoreCategory(ctx context.Context, id int64) (*model.Category, error) {
	return inTx(ctx, s, func(tx *Tx) (*model.Category, error) { return tx.RestoreCategory(ctx, id) })
}
