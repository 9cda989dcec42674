package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/smartfit/smartfit-backend/internal/ai"
	"github.com/smartfit/smartfit-backend/internal/database"
	"github.com/smartfit/smartfit-backend/internal/events"
	"github.com/smartfit/smartfit-backend/internal/models"
	"github.com/smartfit/smartfit-backend/internal/repository"
	"github.com/smartfit/smartfit-backend/internal/storage"
)

type recordingPublisher struct {
	events []events.ClosetEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.ClosetEvent) error {
	p.events = append(p.events, event)
	return nil
}

type failingItemRepository struct {
	repository.ItemRepository
}

func (failingItemRepository) CreateBatch(context.Context, []*models.ClothingItem) error {
	return errors.New("disk full")
}

type UploadServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *storage.LocalStore
	items     *repository.GormItemRepository
	publisher *recordingPublisher

	mlCalls   atomic.Int32
	mlStatus  int
	mlBody    string
	mlServer  *httptest.Server
	bgServer  *httptest.Server
	bgFailFor string
}

func (s *UploadServiceTestSuite) SetupTest() {
	s.ctx = context.Background()

	store, err := storage.NewLocalStore(s.T().TempDir(), "http://localhost:5000")
	s.Require().NoError(err)
	s.store = store
	s.items = repository.NewGormItemRepository(database.NewTestDB(s.T()))
	s.publisher = &recordingPublisher{}

	s.mlCalls.Store(0)
	s.mlStatus = http.StatusOK
	s.mlBody = `{"success": true, "clothing_items": []}`
	s.mlServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mlCalls.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.mlStatus)
		io.WriteString(w, s.mlBody)
	}))
	s.T().Cleanup(s.mlServer.Close)

	s.bgFailFor = ""
	s.bgServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, fh, err := r.FormFile("image_file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if s.bgFailFor != "" && fh.Filename == s.bgFailFor {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			io.WriteString(w, `{"errors":[{"title":"Insufficient credits"}]}`)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		io.WriteString(w, "png:"+fh.Filename)
	}))
	s.T().Cleanup(s.bgServer.Close)
}

func (s *UploadServiceTestSuite) newService(withRemoval bool, opts ...UploadServiceOption) *UploadService {
	analyzer := ai.NewAnalysisClient(s.mlServer.URL, 5*time.Second, s.store)
	opts = append(opts, WithUploadPublisher(s.publisher))
	if withRemoval {
		opts = append(opts, WithBackgroundRemover(ai.NewBackgroundRemover("test-key", s.bgServer.URL, 5*time.Second, s.store)))
	}
	return NewUploadService(s.items, s.store, analyzer, opts...)
}

func (s *UploadServiceTestSuite) upload(names ...string) []UploadedFile {
	out := make([]UploadedFile, len(names))
	for i, name := range names {
		path := storage.NewOriginalPath(name)
		n, err := s.store.Save(s.ctx, path, strings.NewReader("jpeg:"+name), "image/jpeg")
		s.Require().NoError(err)
		out[i] = UploadedFile{Path: path, OriginalName: name, ContentType: "image/jpeg", Size: n}
	}
	return out
}

func (s *UploadServiceTestSuite) exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(s.store.Dir(), strings.TrimPrefix(relPath, storage.RootPrefix)))
	return err == nil
}

func (s *UploadServiceTestSuite) processedFiles() []string {
	entries, err := os.ReadDir(filepath.Join(s.store.Dir(), "processed"))
	s.Require().NoError(err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (s *UploadServiceTestSuite) TestShirtAndPantsScenario() {
	s.mlBody = `{"success": true, "clothing_items": [
		{"category": "top", "dominant_color_name": "red"},
		{"category": "bottom", "dominant_color_name": "black"}
	]}`
	files := s.upload("shirt.jpg", "pants.jpg")

	items, err := s.newService(false).Upload(s.ctx, UploadInput{
		OwnerID:  "alice",
		Files:    files,
		Occasion: "Party",
	})
	s.Require().NoError(err)
	s.Require().Len(items, 2)

	s.Equal("shirt", items[0].Name)
	s.Equal(models.CategoryTop, items[0].Category)
	s.Equal("red", items[0].Color)
	s.Equal(models.OccasionParty, items[0].Occasion)
	s.Equal(files[0].Path, items[0].ImageURL)

	s.Equal("pants", items[1].Name)
	s.Equal(models.CategoryBottom, items[1].Category)
	s.Equal("black", items[1].Color)
	s.Equal(models.OccasionParty, items[1].Occasion)
	s.Equal(files[1].Path, items[1].ImageURL)

	s.True(strings.HasPrefix(items[0].ImageURL, "uploads/"))
	s.True(s.exists(items[0].ImageURL))
	s.True(s.exists(items[1].ImageURL))
	s.EqualValues(1, s.mlCalls.Load())

	s.Require().Len(s.publisher.events, 1)
	s.Equal(events.TypeItemsCreated, s.publisher.events[0].Type)
	s.Equal([]string{items[0].ID, items[1].ID}, s.publisher.events[0].ItemIDs)
}

func (s *UploadServiceTestSuite) TestRecordsFollowFileOrder() {
	s.mlBody = `{"success": true, "clothing_items": [
		{"category": "footwear"}, {"category": "accessory"}, {"category": "outerwear"}
	]}`
	files := s.upload("c.jpg", "a.jpg", "b.jpg")

	items, err := s.newService(false).Upload(s.ctx, UploadInput{OwnerID: "alice", Files: files})
	s.Require().NoError(err)

	s.Equal([]string{"c", "a", "b"}, []string{items[0].Name, items[1].Name, items[2].Name})
	s.Equal([]models.Category{models.CategoryFootwear, models.CategoryAccessory, models.CategoryOuterwear},
		[]models.Category{items[0].Category, items[1].Category, items[2].Category})
	for i, item := range items {
		s.Equal(files[i].Path, item.ImageURL)
	}
}

func (s *UploadServiceTestSuite) TestDefaultsWhenNothingMatches() {
	s.mlBody = `{"success": true, "clothing_items": {"top": [{"filename": "other.jpg", "dominant_color_name": "red"}]}}`
	files := s.upload("mystery.jpg")

	items, err := s.newService(false).Upload(s.ctx, UploadInput{OwnerID: "alice", Files: files})
	s.Require().NoError(err)
	s.Require().Len(items, 1)

	item := items[0]
	s.Equal(models.CategoryOthers, item.Category)
	s.Equal("unknown", item.Color)
	s.Equal(models.SeasonAll, item.Season)
	s.Equal(models.OccasionCasual, item.Occasion)
	s.Equal("casual", item.Style)
	s.Equal("plain", item.Pattern)
	s.Empty(item.DominantColors)
}

func (s *UploadServiceTestSuite) TestRequestValuesOverrideAnalysis() {
	s.mlBody = `{"success": true, "clothing_items": [
		{"category": "bottom", "dominant_color_name": "black", "style": "Sporty", "pattern": "Striped", "dominant_colors": ["black", [255, 255, 255]]}
	]}`
	files := s.upload("jeans.jpg")

	items, err := s.newService(false).Upload(s.ctx, UploadInput{
		OwnerID:  "alice",
		Files:    files,
		Name:     "Favourite jeans",
		Category: "Jacket",
		Season:   "WINTER",
	})
	s.Require().NoError(err)

	item := items[0]
	s.Equal("Favourite jeans", item.Name)
	s.Equal(models.CategoryOuterwear, item.Category)
	s.Equal("black", item.Color)
	s.Equal(models.SeasonWinter, item.Season)
	s.Equal("sporty", item.Style)
	s.Equal("striped", item.Pattern)
	s.Equal(models.StringList{"black", "#ffffff"}, item.DominantColors)
}

func (s *UploadServiceTestSuite) TestBackgroundRemovalReplacesOriginal() {
	s.mlBody = `{"success": true, "clothing_items": [{"category": "top"}]}`
	files := s.upload("shirt.jpg")

	items, err := s.newService(true).Upload(s.ctx, UploadInput{OwnerID: "alice", Files: files})
	s.Require().NoError(err)

	item := items[0]
	s.True(strings.HasPrefix(item.ImageURL, storage.ProcessedPrefix))
	s.True(s.exists(item.ImageURL))
	s.False(s.exists(files[0].Path), "superseded original is removed")
}

func (s *UploadServiceTestSuite) TestBackgroundRemovalFailureFallsBackToOriginal() {
	s.mlBody = `{"success": true, "clothing_items": [{"category": "top"}, {"category": "bottom"}]}`
	s.bgFailFor = "pants.jpg"
	files := s.upload("shirt.jpg", "pants.jpg")

	items, err := s.newService(true).Upload(s.ctx, UploadInput{OwnerID: "alice", Files: files})
	s.Require().NoError(err)
	s.Require().Len(items, 2)

	s.True(strings.HasPrefix(items[0].ImageURL, storage.ProcessedPrefix))
	s.Equal(files[1].Path, items[1].ImageURL)
	s.True(s.exists(files[1].Path))
	s.False(s.exists(files[0].Path))
}

func (s *UploadServiceTestSuite) TestAnalysisFailurePersistsNothing() {
	s.mlStatus = http.StatusBadGateway
	s.mlBody = `{"error": "model not loaded"}`
	files := s.upload("shirt.jpg", "pants.jpg")

	items, err := s.newService(true).Upload(s.ctx, UploadInput{OwnerID: "alice", Files: files})
	s.Require().Error(err)
	s.Nil(items)

	var analysisErr *ai.AnalysisError
	s.Require().True(errors.As(err, &analysisErr))
	s.Equal(http.StatusBadGateway, analysisErr.StatusCode)
	s.Contains(analysisErr.Error(), "model not loaded")

	listed, err := s.items.ListByOwner(s.ctx, "alice")
	s.Require().NoError(err)
	s.Empty(listed)

	s.False(s.exists(files[0].Path))
	s.False(s.exists(files[1].Path))
	s.Empty(s.processedFiles())
	s.Empty(s.publisher.events)
}

func (s *UploadServiceTestSuite) TestAnalysisReportedFailure() {
	s.mlBody = `{"success": false, "message": "no clothing detected"}`
	files := s.upload("shirt.jpg")

	_, err := s.newService(false).Upload(s.ctx, UploadInput{OwnerID: "alice", Files: files})

	var analysisErr *ai.AnalysisError
	s.Require().True(errors.As(err, &analysisErr))
	s.Contains(err.Error(), "no clothing detected")
	listed, err := s.items.ListByOwner(s.ctx, "alice")
	s.Require().NoError(err)
	s.Empty(listed)
}

func (s *UploadServiceTestSuite) TestPersistFailureCleansUp() {
	s.mlBody = `{"success": true, "clothing_items": [{"category": "top"}]}`
	files := s.upload("shirt.jpg")

	analyzer := ai.NewAnalysisClient(s.mlServer.URL, 5*time.Second, s.store)
	remover := ai.NewBackgroundRemover("test-key", s.bgServer.URL, 5*time.Second, s.store)
	svc := NewUploadService(failingItemRepository{s.items}, s.store, analyzer, WithBackgroundRemover(remover))

	_, err := svc.Upload(s.ctx, UploadInput{OwnerID: "alice", Files: files})
	s.Require().ErrorIs(err, ErrPersistFailed)

	s.False(s.exists(files[0].Path))
	s.Empty(s.processedFiles())
}

func (s *UploadServiceTestSuite) TestValidationRejectsBeforeAnalysis() {
	svc := s.newService(false)

	_, err := svc.Upload(s.ctx, UploadInput{OwnerID: "alice"})
	s.ErrorIs(err, ErrNoFiles)

	files := s.upload("shirt.jpg")
	_, err = svc.Upload(s.ctx, UploadInput{Files: files})
	s.ErrorIs(err, ErrUnauthenticated)
	s.False(s.exists(files[0].Path))

	files = s.upload("shirt.jpg")
	_, err = svc.Upload(s.ctx, UploadInput{OwnerID: "alice", Files: files, Season: "monsoon"})
	s.ErrorIs(err, ErrInvalidInput)

	s.EqualValues(0, s.mlCalls.Load())
}

func TestUploadServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UploadServiceTestSuite))
}

func TestBuildItemPrecedence(t *testing.T) {
	w := workingImage{file: UploadedFile{OriginalName: "Blue Coat.PNG"}, path: "uploads/x.png"}

	item := buildItem(UploadInput{OwnerID: "bob", Color: " Navy "}, "", "", w, ai.ItemAnalysis{
		Category:          "coat",
		DominantColorName: "blue",
	})

	assert.Equal(t, "Blue Coat", item.Name)
	assert.Equal(t, models.CategoryOuterwear, item.Category)
	assert.Equal(t, "navy", item.Color)
	assert.Equal(t, models.DefaultSeason, item.Season)
	assert.Equal(t, models.DefaultOccasion, item.Occasion)
	assert.Equal(t, "uploads/x.png", item.ImageURL)
	require.NotNil(t, item.DominantColors)
}
