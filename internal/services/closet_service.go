package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/smartfit/smartfit-backend/internal/events"
	"github.com/smartfit/smartfit-backend/internal/models"
	"github.com/smartfit/smartfit-backend/internal/repository"
	"github.com/smartfit/smartfit-backend/internal/storage"
	"github.com/smartfit/smartfit-backend/internal/utils"
)

// UpdateItemRequest carries a partial metadata update. Empty fields are left unchanged.
type UpdateItemRequest struct {
	Name     string `json:"name" validate:"omitempty,max=255"`
	Category string `json:"category" validate:"omitempty,category"`
	Color    string `json:"color" validate:"omitempty,max=100"`
	Season   string `json:"season" validate:"omitempty,season"`
	Occasion string `json:"occasion" validate:"omitempty,occasion"`
	Style    string `json:"style" validate:"omitempty,max=100"`
	Pattern  string `json:"pattern" validate:"omitempty,max=100"`
}

type ClosetService struct {
	items     repository.ItemRepository
	store     storage.Store
	cache     ClosetCache
	publisher events.Publisher
}

func NewClosetService(items repository.ItemRepository, store storage.Store, cache ClosetCache, publisher events.Publisher) *ClosetService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ClosetService{
		items:     items,
		store:     store,
		cache:     cache,
		publisher: publisher,
	}
}

// List returns the owner's items newest first.
func (s *ClosetService) List(ctx context.Context, ownerID string) ([]models.ClothingItem, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	// Read the version before loading so a concurrent change keeps this list out of the cache.
	var version int64
	cacheable := false
	if s.cache != nil {
		v, err := s.cache.Version(ctx, ownerID)
		if err != nil {
			logrus.WithError(err).WithField("owner_id", ownerID).Warn("Closet cache read failed")
		} else {
			version, cacheable = v, true
			items, hit, err := s.cache.GetItems(ctx, ownerID)
			if err != nil {
				logrus.WithError(err).WithField("owner_id", ownerID).Warn("Closet cache read failed")
			} else if hit {
				return items, nil
			}
		}
	}

	items, err := s.items.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	if cacheable {
		if _, err := s.cache.SetItems(ctx, ownerID, version, items); err != nil {
			logrus.WithError(err).WithField("owner_id", ownerID).Warn("Closet cache write failed")
		}
	}
	return items, nil
}

// Update applies the non-empty fields of req to an item owned by ownerID.
func (s *ClosetService) Update(ctx context.Context, ownerID, itemID string, req *UpdateItemRequest) (*models.ClothingItem, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if _, err := s.ownedItem(ctx, ownerID, itemID); err != nil {
		return nil, err
	}

	changes := updateChanges(req)
	if len(changes) == 0 {
		return s.ownedItem(ctx, ownerID, itemID)
	}

	item, err := s.items.Update(ctx, itemID, changes)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	afterChange(ctx, s.cache, s.publisher, events.NewClosetEvent(events.TypeItemUpdated, ownerID, item.ID))
	return item, nil
}

// Delete removes an item owned by ownerID and then its image. Image removal is best effort.
func (s *ClosetService) Delete(ctx context.Context, ownerID, itemID string) error {
	if ownerID == "" {
		return ErrUnauthenticated
	}

	item, err := s.ownedItem(ctx, ownerID, itemID)
	if err != nil {
		return err
	}

	if err := s.items.Delete(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}

	if item.ImageURL != "" {
		if err := s.store.Remove(context.WithoutCancel(ctx), item.ImageURL); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"item_id": itemID,
				"path":    item.ImageURL,
			}).Warn("Failed to remove item image")
		}
	}

	afterChange(ctx, s.cache, s.publisher, events.NewClosetEvent(events.TypeItemDeleted, ownerID, itemID))
	return nil
}

func (s *ClosetService) ownedItem(ctx context.Context, ownerID, itemID string) (*models.ClothingItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if item.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return item, nil
}

func updateChanges(req *UpdateItemRequest) repository.ItemChanges {
	changes := repository.ItemChanges{}
	if v := strings.TrimSpace(req.Name); v != "" {
		changes["name"] = v
	}
	if v := strings.TrimSpace(req.Category); v != "" {
		changes["category"] = string(models.NormalizeCategory(v))
	}
	if v := strings.TrimSpace(req.Color); v != "" {
		changes["color"] = strings.ToLower(v)
	}
	if season, ok := models.ParseSeason(req.Season); ok {
		changes["season"] = string(season)
	}
	if occasion, ok := models.ParseOccasion(req.Occasion); ok {
		changes["occasion"] = string(occasion)
	}
	if v := strings.TrimSpace(req.Style); v != "" {
		changes["style"] = strings.ToLower(v)
	}
	if v := strings.TrimSpace(req.Pattern); v != "" {
		changes["pattern"] = strings.ToLower(v)
	}
	return changes
}

// afterChange drops the owner's cached list and publishes the event. Both are best effort.
func afterChange(ctx context.Context, cache ClosetCache, publisher events.Publisher, event events.ClosetEvent) {
	ctx = context.WithoutCancel(ctx)
	if cache != nil {
		if err := cache.Invalidate(ctx, event.OwnerID); err != nil {
			logrus.WithError(err).WithField("owner_id", event.OwnerID).Warn("Closet cache invalidation failed")
		}
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("event", event.Type).Warn("Failed to publish closet event")
	}
}
