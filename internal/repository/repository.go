package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smartfit/smartfit-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// ItemChanges holds column name to value pairs for a partial item update.
type ItemChanges map[string]interface{}

type ItemRepository interface {
	// CreateBatch persists every item or none of them.
	CreateBatch(ctx context.Context, items []*models.ClothingItem) error
	// ListByOwner returns the owner's items newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.ClothingItem, error)
	GetByID(ctx context.Context, id string) (*models.ClothingItem, error)
	Update(ctx context.Context, id string, changes ItemChanges) (*models.ClothingItem, error)
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

// stampBatch gives items without a creation time one millisecond apart in batch order,
// so newest-first listings of a batch are stable in stores with millisecond precision.
func stampBatch(items []*models.ClothingItem, now time.Time) {
	for i, item := range items {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		}
	}
}
