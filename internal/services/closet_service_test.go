package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/smartfit/smartfit-backend/internal/cache"
	"github.com/smartfit/smartfit-backend/internal/database"
	"github.com/smartfit/smartfit-backend/internal/events"
	"github.com/smartfit/smartfit-backend/internal/models"
	"github.com/smartfit/smartfit-backend/internal/repository"
	"github.com/smartfit/smartfit-backend/internal/storage"
)

type ClosetServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *storage.LocalStore
	items     *repository.GormItemRepository
	redis     *miniredis.Miniredis
	publisher *recordingPublisher
	svc       *ClosetService
}

func (s *ClosetServiceTestSuite) SetupTest() {
	s.ctx = context.Background()

	store, err := storage.NewLocalStore(s.T().TempDir(), "")
	s.Require().NoError(err)
	s.store = store
	s.items = repository.NewGormItemRepository(database.NewTestDB(s.T()))
	s.redis = miniredis.RunT(s.T())
	s.publisher = &recordingPublisher{}

	client := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})
	s.T().Cleanup(func() { client.Close() })

	s.svc = NewClosetService(s.items, s.store, cache.NewClosetCache(client, time.Minute), s.publisher)
}

func (s *ClosetServiceTestSuite) seed(owner, name string) *models.ClothingItem {
	path := storage.NewOriginalPath(name + ".jpg")
	_, err := s.store.Save(s.ctx, path, strings.NewReader(name), "image/jpeg")
	s.Require().NoError(err)

	item := &models.ClothingItem{
		OwnerID:  owner,
		Name:     name,
		Category: models.CategoryTop,
		Color:    "red",
		Season:   models.SeasonAll,
		Occasion: models.OccasionCasual,
		Style:    "casual",
		Pattern:  "plain",
		ImageURL: path,
	}
	s.Require().NoError(s.items.CreateBatch(s.ctx, []*models.ClothingItem{item}))
	return item
}

func (s *ClosetServiceTestSuite) exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(s.store.Dir(), strings.TrimPrefix(relPath, storage.RootPrefix)))
	return err == nil
}

func (s *ClosetServiceTestSuite) TestListIsScopedToOwner() {
	s.seed("alice", "shirt")
	s.seed("bob", "coat")
	s.seed("alice", "pants")

	items, err := s.svc.List(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(items, 2)
	for _, item := range items {
		s.Equal("alice", item.OwnerID)
	}

	_, err = s.svc.List(s.ctx, "")
	s.ErrorIs(err, ErrUnauthenticated)
}

func (s *ClosetServiceTestSuite) TestListUsesCacheUntilInvalidated() {
	item := s.seed("alice", "shirt")

	first, err := s.svc.List(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(first, 1)
	s.True(s.redis.Exists("closet:items:alice"))

	name := "linen shirt"
	_, err = s.svc.Update(s.ctx, "alice", item.ID, &UpdateItemRequest{Name: name})
	s.Require().NoError(err)
	s.False(s.redis.Exists("closet:items:alice"))

	second, err := s.svc.List(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(name, second[0].Name)
}

// concurrentWriteRepository runs afterList once, right after a list has been read.
type concurrentWriteRepository struct {
	*repository.GormItemRepository
	afterList func()
}

func (r *concurrentWriteRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ClothingItem, error) {
	items, err := r.GormItemRepository.ListByOwner(ctx, ownerID)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return items, err
}

func (s *ClosetServiceTestSuite) TestListDoesNotCacheListReadBeforeConcurrentChange() {
	s.seed("alice", "shirt")

	client := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})
	defer client.Close()
	closetCache := cache.NewClosetCache(client, time.Minute)

	repo := &concurrentWriteRepository{GormItemRepository: s.items}
	repo.afterList = func() {
		s.seed("alice", "pants")
		s.Require().NoError(closetCache.Invalidate(s.ctx, "alice"))
	}
	svc := NewClosetService(repo, s.store, closetCache, nil)

	stale, err := svc.List(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(stale, 1)
	s.False(s.redis.Exists("closet:items:alice"))

	fresh, err := svc.List(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(fresh, 2)
	s.True(s.redis.Exists("closet:items:alice"))
}

func (s *ClosetServiceTestSuite) TestListSurvivesCacheOutage() {
	s.seed("alice", "shirt")

	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer down.Close()
	svc := NewClosetService(s.items, s.store, cache.NewClosetCache(down, time.Minute), nil)

	items, err := svc.List(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(items, 1)
}

func (s *ClosetServiceTestSuite) TestUpdateAppliesOnlyPresentFields() {
	item := s.seed("alice", "shirt")

	updated, err := s.svc.Update(s.ctx, "alice", item.ID, &UpdateItemRequest{
		Color:    " Navy ",
		Season:   "Summer",
		Category: "outerwear",
		Name:     "   ",
	})
	s.Require().NoError(err)

	s.Equal("shirt", updated.Name)
	s.Equal("navy", updated.Color)
	s.Equal(models.SeasonSummer, updated.Season)
	s.Equal(models.CategoryOuterwear, updated.Category)
	s.Equal(models.OccasionCasual, updated.Occasion)
	s.Equal(item.ImageURL, updated.ImageURL)

	s.Require().Len(s.publisher.events, 1)
	s.Equal(events.TypeItemUpdated, s.publisher.events[0].Type)
}

func (s *ClosetServiceTestSuite) TestUpdateRejectsInvalidEnums() {
	item := s.seed("alice", "shirt")

	_, err := s.svc.Update(s.ctx, "alice", item.ID, &UpdateItemRequest{Occasion: "wedding"})
	s.ErrorIs(err, ErrInvalidInput)

	_, err = s.svc.Update(s.ctx, "alice", item.ID, &UpdateItemRequest{Category: "shirt"})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ClosetServiceTestSuite) TestOtherOwnerCannotMutate() {
	item := s.seed("bob", "coat")

	_, err := s.svc.Update(s.ctx, "alice", item.ID, &UpdateItemRequest{Name: "stolen"})
	s.ErrorIs(err, ErrForbidden)

	err = s.svc.Delete(s.ctx, "alice", item.ID)
	s.ErrorIs(err, ErrForbidden)

	stored, err := s.items.GetByID(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal("coat", stored.Name)
	s.True(s.exists(item.ImageURL))
	s.Empty(s.publisher.events)
}

func (s *ClosetServiceTestSuite) TestUnknownItem() {
	_, err := s.svc.Update(s.ctx, "alice", "missing", &UpdateItemRequest{Name: "x"})
	s.ErrorIs(err, ErrItemNotFound)

	s.ErrorIs(s.svc.Delete(s.ctx, "alice", "missing"), ErrItemNotFound)
}

func (s *ClosetServiceTestSuite) TestDeleteTwice() {
	item := s.seed("alice", "shirt")

	s.Require().NoError(s.svc.Delete(s.ctx, "alice", item.ID))
	s.False(s.exists(item.ImageURL))

	s.ErrorIs(s.svc.Delete(s.ctx, "alice", item.ID), ErrItemNotFound)

	s.Require().Len(s.publisher.events, 1)
	s.Equal(events.TypeItemDeleted, s.publisher.events[0].Type)
	s.Equal([]string{item.ID}, s.publisher.events[0].ItemIDs)
}

func (s *ClosetServiceTestSuite) TestDeleteWithMissingImage() {
	item := s.seed("alice", "shirt")
	s.Require().NoError(s.store.Remove(s.ctx, item.ImageURL))

	s.NoError(s.svc.Delete(s.ctx, "alice", item.ID))
}

func TestClosetServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ClosetServiceTestSuite))
}
