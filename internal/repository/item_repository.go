package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/smartfit/smartfit-backend/internal/database"
	"github.com/smartfit/smartfit-backend/internal/models"
)

type GormItemRepository struct {
	db *gorm.DB
}

func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

func (r *GormItemRepository) CreateBatch(ctx context.Context, items []*models.ClothingItem) error {
	if len(items) == 0 {
		return nil
	}

	stampBatch(items, time.Now().UTC().Truncate(time.Millisecond))
	err := database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		return fmt.Errorf("create clothing items failed: %w", err)
	}
	return nil
}

func (r *GormItemRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ClothingItem, error) {
	items := []models.ClothingItem{}
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list clothing items failed: %w", err)
	}
	return items, nil
}

func (r *GormItemRepository) GetByID(ctx context.Context, id string) (*models.ClothingItem, error) {
	var item models.ClothingItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get clothing item failed: %w", err)
	}
	return &item, nil
}

func (r *GormItemRepository) Update(ctx context.Context, id string, changes ItemChanges) (*models.ClothingItem, error) {
	var item models.ClothingItem
	err := database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&item).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&item).Updates(map[string]interface{}(changes)).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&item).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update clothing item failed: %w", err)
	}
	return &item, nil
}

func (r *GormItemRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ClothingItem{})
	if result.Error != nil {
		return fmt.Errorf("delete clothing item failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
