package service

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/blob"
	"github.com/erazemk/hisa/internal/events"
	"github.com/erazemk/hisa/internal/imaging"
	"github.com/erazemk/hisa/internal/model"
)

// UploadPhoto normalizes r and stores it as the item's photo, replacing any
// previous one.
func (s *Service) UploadPhoto(ctx context.Context, itemID int64, r io.Reader) (*model.Item, error) {
	if s.blobs == nil {
		return nil, photosDisabled()
	}
	before, err := s.store.View().GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	photo, err := s.photos.Process(r)
	if err != nil {
		var unsupported *imaging.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			return nil, apperr.Invalid("photo", "unsupported format %s, expected JPEG, PNG, GIF or WebP", unsupported.Detected)
		}
		return nil, apperr.Invalid("photo", "%v", err)
	}

	info, err := s.blobs.Put(ctx, photo.Key(itemID), bytes.NewReader(photo.Data), photo.MIME)
	if err != nil {
		return nil, apperr.Infra("storing photo", err)
	}

	it, err := s.store.SetItemPhoto(ctx, itemID, info.Key, info.ContentType)
	if err != nil {
		if info.Key != before.PhotoKey {
			s.deleteBlob(ctx, info.Key)
		}
		return nil, err
	}
	if before.PhotoKey != "" && before.PhotoKey != info.Key {
		s.deleteBlob(ctx, before.PhotoKey)
	}

	s.logger.Info("photo stored", "item_id", itemID, "key", info.Key, "size", info.Size,
		"width", photo.Width, "height", photo.Height)
	return s.itemChanged(events.ItemUpdated, it, nil)
}

// Photo opens an item's photo. The caller closes the reader.
func (s *Service) Photo(ctx context.Context, itemID int64) (blob.Info, io.ReadCloser, error) {
	if s.blobs == nil {
		return blob.Info{}, nil, photosDisabled()
	}
	it, err := s.store.View().GetItem(ctx, itemID)
	if err != nil {
		return blob.Info{}, nil, err
	}
	if it.PhotoKey == "" {
		return blob.Info{}, nil, apperr.NotFound("photo", itemID)
	}

	info, rc, err := s.blobs.Get(ctx, it.PhotoKey)
	if errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn("photo missing from storage", "item_id", itemID, "key", it.PhotoKey)
		return blob.Info{}, nil, apperr.NotFound("photo", itemID)
	}
	if err != nil {
		return blob.Info{}, nil, apperr.Infra("reading photo", err)
	}
	if it.PhotoMime != "" {
		info.ContentType = it.PhotoMime
	}
	return info, rc, nil
}

func (s *Service) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error("deleting photo", "key", key, "error", err)
	}
}
