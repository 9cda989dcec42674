package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/smartfit/smartfit-backend/internal/database"
	"github.com/smartfit/smartfit-backend/internal/models"
)

type MongoItemRepository struct {
	coll *mongo.Collection
}

func NewMongoItemRepository(db *mongo.Database) *MongoItemRepository {
	return &MongoItemRepository{coll: db.Collection(database.ClothingItemsCollection)}
}

// CreateBatch inserts the whole batch and removes any inserted documents
// again when the insert fails part way, so no partial batch stays visible.
func (r *MongoItemRepository) CreateBatch(ctx context.Context, items []*models.ClothingItem) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	stampBatch(items, now)
	docs := make([]interface{}, len(items))
	ids := make([]string, len(items))
	for i, item := range items {
		item.EnsureID()
		item.Touch(now)
		if item.DominantColors == nil {
			item.DominantColors = models.StringList{}
		}
		docs[i] = item
		ids[i] = item.ID
	}

	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		if _, cleanupErr := r.coll.DeleteMany(context.WithoutCancel(ctx), bson.M{"_id": bson.M{"$in": ids}}); cleanupErr != nil {
			logrus.WithError(cleanupErr).WithField("count", len(ids)).Error("Failed to roll back partial clothing item insert")
		}
		return fmt.Errorf("create clothing items failed: %w", err)
	}
	return nil
}

func (r *MongoItemRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ClothingItem, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list clothing items failed: %w", err)
	}

	items := []models.ClothingItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode clothing items failed: %w", err)
	}
	return items, nil
}

func (r *MongoItemRepository) GetByID(ctx context.Context, id string) (*models.ClothingItem, error) {
	var item models.ClothingItem
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get clothing item failed: %w", err)
	}
	return &item, nil
}

func (r *MongoItemRepository) Update(ctx context.Context, id string, changes ItemChanges) (*models.ClothingItem, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range changes {
		set[k] = v
	}

	var item models.ClothingItem
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update clothing item failed: %w", err)
	}
	return &item, nil
}

func (r *MongoItemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete clothing item failed: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
