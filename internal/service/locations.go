package service

import (
	"context"

	"github.com/erazemk/hisa/internal/events"
	"github.com/erazemk/hisa/internal/model"
)

func (s *Service) CreateLocation(ctx context.Context, in model.LocationInput) (*model.Location, error) {
	l, err := s.store.CreateLocation(ctx, in)
	if err != nil {
		return nil, err
	}
	s.publish(events.LocationCreated, l.ID, l)
	return l, nil
}

func (s *Service) UpdateLocation(ctx context.Context, id int64, patch model.LocationPatch) (*model.Location, error) {
	l, err := s.store.UpdateLocation(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.publish(events.LocationUpdated, l.ID, l)
	return l, nil
}

func (s *Service) ReparentLocation(ctx context.Context, id int64, parent *int64) (*model.Location, error) {
	l, err := s.store.ReparentLocation(ctx, id, parent)
	if err != nil {
		return nil, err
	}
	s.publish(events.LocationUpdated, l.ID, l)
	return l, nil
}

// DeleteLocation removes a location with its subtree and their stock.
func (s *Service) DeleteLocation(ctx context.Context, id int64) (*model.DeleteResult, error) {
	res, err := s.store.DeleteLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(events.LocationDeleted, id, res)
	if res.InventoryEntries > 0 {
		s.publish(events.StockChanged, 0, res)
	}
	return res, nil
}

func (s *Service) CreateCategory(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	c, err := s.store.CreateCategory(ctx, in)
	if err != nil {
		return nil, err
	}
	s.publish(events.CategoryChanged, c.ID, c)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in model.CategoryInput) (*model.Category, error) {
	c, err := s.store.UpdateCategory(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.publish(events.CategoryChanged, c.ID, c)
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) (*model.CategoryDeleteResult, error) {
	res, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(events.CategoryChanged, id, res)
	return res, nil
}

func (s *Service) RestoreCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.store.RestoreCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(events.CategoryChanged, c.ID, c)
	return c, nil
}
