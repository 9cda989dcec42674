// internal/handlers/outfit.go
package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartfit/smartfit-backend/internal/ai"
	"github.com/smartfit/smartfit-backend/internal/i18n"
	"github.com/smartfit/smartfit-backend/internal/middleware"
	"github.com/smartfit/smartfit-backend/internal/models"
	"github.com/smartfit/smartfit-backend/internal/services"
	"github.com/smartfit/smartfit-backend/internal/storage"
	"github.com/smartfit/smartfit-backend/internal/utils"
)

type OutfitHandler struct {
	uploadService *services.UploadService
	closetService *services.ClosetService
	store         storage.Store
}

func NewOutfitHandler(uploadService *services.UploadService, closetService *services.ClosetService, store storage.Store) *OutfitHandler {
	return &OutfitHandler{
		uploadService: uploadService,
		closetService: closetService,
		store:         store,
	}
}

// outfitView is a stored item plus the address its image is served from.
type outfitView struct {
	models.ClothingItem
	ImageFullURL string `json:"imageFullUrl"`
}

func (h *OutfitHandler) view(item models.ClothingItem) outfitView {
	return outfitView{ClothingItem: item, ImageFullURL: h.store.URL(item.ImageURL)}
}

// POST /api/outfits
func (h *OutfitHandler) Upload(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, _ := utils.GetUserIDFromContext(c)

	// The client may go away during a slow analysis; the batch still completes.
	ctx := context.WithoutCancel(c.Request.Context())
	items, err := h.uploadService.Upload(ctx, services.UploadInput{
		OwnerID:  userID,
		Files:    middleware.UploadedFiles(c),
		Name:     c.PostForm("name"),
		Category: c.PostForm("category"),
		Color:    c.PostForm("color"),
		Season:   c.PostForm("season"),
		Occasion: c.PostForm("occasion"),
		Style:    c.PostForm("style"),
		Pattern:  c.PostForm("pattern"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	outfits := make([]outfitView, len(items))
	for i, item := range items {
		outfits[i] = h.view(*item)
	}
	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOutfitUploaded, len(outfits)),
		"outfits": outfits,
	})
}

// GET /api/outfits
func (h *OutfitHandler) List(c *gin.Context) {
	userID, _ := utils.GetUserIDFromContext(c)

	items, err := h.closetService.List(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	outfits := make([]outfitView, len(items))
	for i, item := range items {
		outfits[i] = h.view(item)
	}
	utils.SuccessResponse(c, gin.H{
		"outfits": outfits,
	})
}

// PUT /api/outfits/:id
func (h *OutfitHandler) Update(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, _ := utils.GetUserIDFromContext(c)

	id, ok := itemID(c)
	if !ok {
		return
	}

	var req services.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	item, err := h.closetService.Update(context.WithoutCancel(c.Request.Context()), userID, id, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOutfitUpdated),
		"outfit":  h.view(*item),
	})
}

// DELETE /api/outfits/:id
func (h *OutfitHandler) Delete(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, _ := utils.GetUserIDFromContext(c)

	id, ok := itemID(c)
	if !ok {
		return
	}

	if err := h.closetService.Delete(context.WithoutCancel(c.Request.Context()), userID, id); err != nil {
		h.writeError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOutfitDeleted),
	})
}

func itemID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyOutfitInvalidID), nil)
		return "", false
	}
	return id, true
}

func (h *OutfitHandler) writeError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var analysisErr *ai.AnalysisError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		utils.UnauthorizedResponse(c, "")
	case errors.Is(err, services.ErrNoFiles):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyOutfitNoFiles), nil)
	case errors.Is(err, services.ErrInvalidInput):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, services.ErrItemNotFound):
		utils.NotFoundResponse(c, "outfit")
	case errors.As(err, &analysisErr):
		utils.UpstreamErrorResponse(c, i18n.T(lang, i18n.KeyOutfitAnalysisFail, analysisErr.Error()), analysisErr.Error())
	case errors.Is(err, services.ErrPersistFailed):
		logrus.WithError(err).Error("Failed to persist outfits")
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyOutfitSaveFail))
	default:
		logrus.WithError(err).Error("Outfit request failed")
		utils.InternalErrorResponse(c, "")
	}
}
