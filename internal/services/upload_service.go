package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smartfit/smartfit-backend/internal/ai"
	"github.com/smartfit/smartfit-backend/internal/events"
	"github.com/smartfit/smartfit-backend/internal/models"
	"github.com/smartfit/smartfit-backend/internal/repository"
	"github.com/smartfit/smartfit-backend/internal/storage"
)

const defaultRemovalConcurrency = 4

// UploadedFile describes an accepted file already written to the image store.
type UploadedFile struct {
	Path         string
	OriginalName string
	ContentType  string
	Size         int64
}

// UploadInput is one upload request. All metadata fields are optional.
type UploadInput struct {
	OwnerID  string
	Files    []UploadedFile
	Name     string
	Category string
	Color    string
	Season   string
	Occasion string
	Style    string
	Pattern  string
}

type Analyzer interface {
	Analyze(ctx context.Context, req ai.AnalysisRequest) (*ai.AnalysisResponse, error)
}

type BackgroundRemover interface {
	Enabled() bool
	Remove(ctx context.Context, img ai.ImageRef) (*ai.ProcessedImage, error)
}

type ClosetCache interface {
	GetItems(ctx context.Context, ownerID string) ([]models.ClothingItem, bool, error)
	Version(ctx context.Context, ownerID string) (int64, error)
	SetItems(ctx context.Context, ownerID string, version int64, items []models.ClothingItem) (bool, error)
	Invalidate(ctx context.Context, ownerID string) error
}

type UploadService struct {
	items       repository.ItemRepository
	store       storage.Store
	analyzer    Analyzer
	remover     BackgroundRemover
	cache       ClosetCache
	publisher   events.Publisher
	concurrency int
}

type UploadServiceOption func(*UploadService)

func WithBackgroundRemover(remover BackgroundRemover) UploadServiceOption {
	return func(s *UploadService) {
		s.remover = remover
	}
}

func WithUploadCache(cache ClosetCache) UploadServiceOption {
	return func(s *UploadService) {
		s.cache = cache
	}
}

func WithUploadPublisher(publisher events.Publisher) UploadServiceOption {
	return func(s *UploadService) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithRemovalConcurrency bounds the number of simultaneous background removal calls per request.
func WithRemovalConcurrency(n int) UploadServiceOption {
	return func(s *UploadService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewUploadService(items repository.ItemRepository, store storage.Store, analyzer Analyzer, opts ...UploadServiceOption) *UploadService {
	s := &UploadService{
		items:       items,
		store:       store,
		analyzer:    analyzer,
		publisher:   events.NopPublisher{},
		concurrency: defaultRemovalConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// workingImage is the image that ends up on a record: the processed derivative when
// background removal succeeded, the original otherwise.
type workingImage struct {
	file      UploadedFile
	path      string
	processed bool
}

// Upload turns a batch of stored files into persisted clothing items, returned in file order.
// Files written for this request that no persisted item references are removed before returning.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (items []*models.ClothingItem, err error) {
	produced := make([]string, 0, len(in.Files)*2)
	for _, f := range in.Files {
		produced = append(produced, f.Path)
	}
	var producedMu sync.Mutex

	defer func() {
		s.cleanup(ctx, in.OwnerID, produced, items)
	}()

	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, ErrUnauthenticated
	}
	if len(in.Files) == 0 {
		return nil, ErrNoFiles
	}

	season, occasion, err := parseUploadEnums(in)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"owner_id": in.OwnerID,
		"files":    len(in.Files),
	})
	start := time.Now()

	working := s.removeBackgrounds(ctx, in.Files, func(path string) {
		producedMu.Lock()
		produced = append(produced, path)
		producedMu.Unlock()
	})

	refs := make([]ai.ImageRef, len(working))
	for i, w := range working {
		contentType := w.file.ContentType
		if w.processed {
			contentType = "image/png"
		}
		refs[i] = ai.ImageRef{Path: w.path, OriginalName: w.file.OriginalName, ContentType: contentType}
	}

	resp, err := s.analyzer.Analyze(ctx, ai.AnalysisRequest{
		Images:   refs,
		Occasion: string(occasion),
		Season:   string(season),
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
	})
	if err != nil {
		log.WithError(err).Error("Outfit analysis failed")
		return nil, err
	}

	analyses := matchAnalysisToFile(resp.ClothingItems, in.Files)
	drafts := make([]*models.ClothingItem, len(working))
	for i, w := range working {
		drafts[i] = buildItem(in, season, occasion, w, analyses[i])
	}

	if err := s.items.CreateBatch(ctx, drafts); err != nil {
		log.WithError(err).Error("Failed to save uploaded items")
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	items = drafts

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	s.afterChange(ctx, events.NewClosetEvent(events.TypeItemsCreated, in.OwnerID, ids...))

	log.WithFields(logrus.Fields{
		"shape":    resp.ClothingItems.Shape.String(),
		"duration": time.Since(start).String(),
	}).Info("Outfits uploaded")
	return items, nil
}

// removeBackgrounds runs background removal for every file concurrently.
// A failed removal keeps the original image for that file.
func (s *UploadService) removeBackgrounds(ctx context.Context, files []UploadedFile, onProduced func(string)) []workingImage {
	working := make([]workingImage, len(files))
	for i, f := range files {
		working[i] = workingImage{file: f, path: f.Path}
	}
	if s.remover == nil || !s.remover.Enabled() {
		return working
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range files {
		g.Go(func() error {
			f := files[i]
			processed, err := s.remover.Remove(ctx, ai.ImageRef{
				Path:         f.Path,
				OriginalName: f.OriginalName,
				ContentType:  f.ContentType,
			})
			if err != nil {
				entry := logrus.WithError(err).WithField("file", f.OriginalName)
				var failure *ai.RemovalFailure
				if errors.As(err, &failure) {
					entry = entry.WithField("kind", failure.Kind)
				}
				entry.Warn("Background removal failed, using original image")
				return nil
			}
			onProduced(processed.Path)
			working[i] = workingImage{file: f, path: processed.Path, processed: true}
			return nil
		})
	}
	_ = g.Wait()
	return working
}

// cleanup removes every produced file that no persisted item points at.
func (s *UploadService) cleanup(ctx context.Context, ownerID string, produced []string, persisted []*models.ClothingItem) {
	referenced := make(map[string]bool, len(persisted))
	for _, item := range persisted {
		referenced[item.ImageURL] = true
	}

	ctx = context.WithoutCancel(ctx)
	for _, path := range produced {
		if referenced[path] {
			continue
		}
		if err := s.store.Remove(ctx, path); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"owner_id": ownerID,
				"path":     path,
			}).Warn("Failed to remove unused upload")
		}
	}
}

func (s *UploadService) afterChange(ctx context.Context, event events.ClosetEvent) {
	afterChange(ctx, s.cache, s.publisher, event)
}

func parseUploadEnums(in UploadInput) (models.Season, models.Occasion, error) {
	var season models.Season
	if strings.TrimSpace(in.Season) != "" {
		parsed, ok := models.ParseSeason(in.Season)
		if !ok {
			return "", "", fmt.Errorf("%w: unknown season %q", ErrInvalidInput, in.Season)
		}
		season = parsed
	}

	var occasion models.Occasion
	if strings.TrimSpace(in.Occasion) != "" {
		parsed, ok := models.ParseOccasion(in.Occasion)
		if !ok {
			return "", "", fmt.Errorf("%w: unknown occasion %q", ErrInvalidInput, in.Occasion)
		}
		occasion = parsed
	}
	return season, occasion, nil
}

// buildItem applies request value, then analysis value, then default for each field.
func buildItem(in UploadInput, season models.Season, occasion models.Occasion, w workingImage, a ai.ItemAnalysis) *models.ClothingItem {
	category := models.NormalizeCategory(in.Category)
	if category == "" {
		category = models.NormalizeCategory(a.Category)
	}
	if category == "" {
		category = models.DefaultCategory
	}
	if season == "" {
		season = models.DefaultSeason
	}
	if occasion == "" {
		occasion = models.DefaultOccasion
	}

	return &models.ClothingItem{
		OwnerID:        in.OwnerID,
		Name:           firstNonEmpty(strings.TrimSpace(in.Name), fileStem(w.file.OriginalName), "item"),
		Category:       category,
		Color:          lowerFirst(in.Color, a.DominantColorName, models.DefaultColor),
		Season:         season,
		Occasion:       occasion,
		Style:          lowerFirst(in.Style, a.Style, models.DefaultStyle),
		Pattern:        lowerFirst(in.Pattern, a.Pattern, models.DefaultPattern),
		DominantColors: models.StringList(append([]string{}, a.DominantColors...)),
		ImageURL:       w.path,
	}
}

func fileStem(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func lowerFirst(values ...string) string {
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}
