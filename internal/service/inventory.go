package service

import (
	"context"

	"github.com/erazemk/hisa/internal/events"
	"github.com/erazemk/hisa/internal/model"
)

// ledger records the outcome of a ledger operation and announces the new
// stock summary.
func (s *Service) ledger(kind model.MovementKind, sum *model.ItemSummary, err error) (*model.ItemSummary, error) {
	s.metrics.LedgerOp(string(kind), err)
	if err != nil {
		return nil, err
	}
	s.publish(events.StockChanged, sum.ItemID, sum)
	return sum, nil
}

func (s *Service) AssignLocation(ctx context.Context, itemID, locationID int64, quantity int, note string) (*model.ItemSummary, error) {
	sum, err := s.store.AssignLocation(ctx, itemID, locationID, quantity, note)
	return s.ledger(model.MovementAssign, sum, err)
}

func (s *Service) MoveItem(ctx context.Context, itemID, fromID, toID int64, quantity int, note string) (*model.ItemSummary, error) {
	sum, err := s.store.MoveItem(ctx, itemID, fromID, toID, quantity, note)
	return s.ledger(model.MovementMove, sum, err)
}

func (s *Service) SplitItem(ctx context.Context, itemID, fromID int64, targets []model.SplitTarget, note string) (*model.ItemSummary, error) {
	sum, err := s.store.SplitItem(ctx, itemID, fromID, targets, note)
	return s.ledger(model.MovementSplit, sum, err)
}

func (s *Service) MergeLocations(ctx context.Context, itemID, fromID, toID int64, note string) (*model.ItemSummary, error) {
	sum, err := s.store.MergeLocations(ctx, itemID, fromID, toID, note)
	return s.ledger(model.MovementMerge, sum, err)
}

func (s *Service) AdjustQuantity(ctx context.Context, itemID, locationID int64, delta int, note string) (*model.ItemSummary, error) {
	sum, err := s.store.AdjustQuantity(ctx, itemID, locationID, delta, note)
	return s.ledger(model.MovementAdjust, sum, err)
}
