package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/erazemk/hisa/internal/events"
	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/store"
)

func (s *Service) CreateItem(ctx context.Context, in model.ItemInput) (*model.Item, error) {
	it, err := s.store.CreateItem(ctx, in)
	return s.itemChanged(events.ItemCreated, it, err)
}

// CreateItemWithLocation creates an item and stocks it at a location in one
// transaction. A failed assignment leaves no item behind. A zero quantity
// means one.
func (s *Service) CreateItemWithLocation(ctx context.Context, in model.ItemInput, locationID int64, quantity int, note string) (*model.Item, *model.ItemSummary, error) {
	if quantity == 0 {
		quantity = 1
	}

	var (
		it  *model.Item
		sum *model.ItemSummary
	)
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		if it, err = tx.CreateItem(ctx, in); err != nil {
			return err
		}
		sum, err = tx.AssignLocation(ctx, it.ID, locationID, quantity, note)
		return err
	})
	s.metrics.LedgerOp(string(model.MovementAssign), err)
	if err != nil {
		return nil, nil, err
	}

	s.itemChanged(events.ItemCreated, it, nil)
	s.publish(events.StockChanged, it.ID, sum)
	return it, sum, nil
}

func (s *Service) UpdateItem(ctx context.Context, id int64, patch model.ItemPatch, expected *int64) (*model.Item, error) {
	it, err := s.store.UpdateItem(ctx, id, patch, expected)
	return s.itemChanged(events.ItemUpdated, it, err)
}

func (s *Service) UpdateCondition(ctx context.Context, id int64, c model.Condition, note string, expected *int64) (*model.Item, error) {
	it, err := s.store.UpdateCondition(ctx, id, c, note, expected)
	return s.itemChanged(events.ItemUpdated, it, err)
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, st model.Status, note string, expected *int64) (*model.Item, error) {
	it, err := s.store.UpdateStatus(ctx, id, st, note, expected)
	return s.itemChanged(events.ItemUpdated, it, err)
}

func (s *Service) UpdateValue(ctx context.Context, id int64, v decimal.Decimal, note string, expected *int64) (*model.Item, error) {
	it, err := s.store.UpdateValue(ctx, id, v, note, expected)
	return s.itemChanged(events.ItemUpdated, it, err)
}

// SoftDeleteItem deactivates an item; its vector is removed from the index.
func (s *Service) SoftDeleteItem(ctx context.Context, id int64, reason string, expected *int64) (*model.Item, error) {
	it, err := s.store.SoftDeleteItem(ctx, id, reason, expected)
	return s.itemChanged(events.ItemDeleted, it, err)
}

func (s *Service) RestoreItem(ctx context.Context, id int64, st model.Status, expected *int64) (*model.Item, error) {
	it, err := s.store.RestoreItem(ctx, id, st, expected)
	return s.itemChanged(events.ItemUpdated, it, err)
}

func (s *Service) AddTag(ctx context.Context, id int64, tag string, expected *int64) (*model.Item, error) {
	it, changed, err := s.store.AddTag(ctx, id, tag, expected)
	return s.tagChanged(it, changed, err)
}

func (s *Service) RemoveTag(ctx context.Context, id int64, tag string, expected *int64) (*model.Item, error) {
	it, changed, err := s.store.RemoveTag(ctx, id, tag, expected)
	return s.tagChanged(it, changed, err)
}

// tagChanged publishes only when the tag write changed the item.
func (s *Service) tagChanged(it *model.Item, changed bool, err error) (*model.Item, error) {
	if err != nil || !changed {
		return it, err
	}
	return s.itemChanged(events.ItemUpdated, it, nil)
}
