// internal/middleware/intake.go
package middleware

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"

	"github.com/smartfit/smartfit-backend/internal/i18n"
	"github.com/smartfit/smartfit-backend/internal/services"
	"github.com/smartfit/smartfit-backend/internal/storage"
	"github.com/smartfit/smartfit-backend/internal/utils"
)

const (
	UploadedFilesKey = "uploaded_files"

	imageField      = "item_images"
	imageFieldAlias = "images"
	sniffLen        = 512
	formOverhead    = 1 << 20
)

var allowedImageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// IntakeOptions bounds one multipart upload.
type IntakeOptions struct {
	MaxFiles    int
	MaxFileSize int64
}

type intakeError struct {
	key  string
	args []interface{}
}

// ImageIntake validates the uploaded images and writes them to the store. The handler
// receives the stored files in submission order under UploadedFilesKey.
// A rejected request is answered with 400 and leaves no stored files behind.
func ImageIntake(store storage.Store, opts IntakeOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(opts.MaxFiles)*opts.MaxFileSize+formOverhead)
		form, err := c.MultipartForm()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.AbortWithError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
					i18n.T(lang, i18n.KeyFileTooLarge, "upload", opts.MaxFileSize>>20), nil)
				return
			}
			utils.AbortWithError(c, http.StatusBadRequest, "BAD_REQUEST", i18n.T(lang, i18n.KeyOutfitNoFiles), nil)
			return
		}
		defer form.RemoveAll()

		headers := form.File[imageField]
		if len(headers) == 0 {
			headers = form.File[imageFieldAlias]
		}
		if len(headers) == 0 {
			utils.AbortWithError(c, http.StatusBadRequest, "NO_FILES", i18n.T(lang, i18n.KeyOutfitNoFiles), nil)
			return
		}
		if len(headers) > opts.MaxFiles {
			utils.AbortWithError(c, http.StatusBadRequest, "TOO_MANY_FILES",
				i18n.T(lang, i18n.KeyFileTooMany, opts.MaxFiles), nil)
			return
		}

		ctx := c.Request.Context()
		saved := make([]services.UploadedFile, 0, len(headers))
		for _, fh := range headers {
			file, ierr := acceptImage(ctx, store, fh, opts)
			if ierr != nil {
				discard(ctx, store, saved)
				utils.AbortWithError(c, http.StatusBadRequest, "INVALID_FILE", i18n.T(lang, ierr.key, ierr.args...), nil)
				return
			}
			saved = append(saved, file)
		}

		c.Set(UploadedFilesKey, saved)
		c.Next()
	}
}

func acceptImage(ctx context.Context, store storage.Store, fh *multipart.FileHeader, opts IntakeOptions) (services.UploadedFile, *intakeError) {
	name := filepath.Base(fh.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedImageExtensions[ext] {
		return services.UploadedFile{}, &intakeError{key: i18n.KeyFileInvalidType, args: []interface{}{ext}}
	}
	if fh.Size > opts.MaxFileSize {
		return services.UploadedFile{}, &intakeError{key: i18n.KeyFileTooLarge, args: []interface{}{name, opts.MaxFileSize >> 20}}
	}

	src, err := fh.Open()
	if err != nil {
		return services.UploadedFile{}, &intakeError{key: i18n.KeyFileUploadFail}
	}
	defer src.Close()

	contentType, err := sniffImage(src)
	if err != nil {
		return services.UploadedFile{}, &intakeError{key: i18n.KeyFileNotImage, args: []interface{}{name}}
	}

	path := storage.NewOriginalPath(name)
	n, err := store.Save(ctx, path, src, contentType)
	if err != nil {
		logrus.WithError(err).WithField("file", name).Error("Failed to store uploaded file")
		return services.UploadedFile{}, &intakeError{key: i18n.KeyFileUploadFail}
	}

	return services.UploadedFile{
		Path:         path,
		OriginalName: name,
		ContentType:  contentType,
		Size:         n,
	}, nil
}

// sniffImage checks that src holds a decodable image and rewinds it.
func sniffImage(src multipart.File) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unexpected content type %s", contentType)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if _, _, err := image.DecodeConfig(src); err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return contentType, nil
}

func discard(ctx context.Context, store storage.Store, files []services.UploadedFile) {
	ctx = context.WithoutCancel(ctx)
	for _, f := range files {
		if err := store.Remove(ctx, f.Path); err != nil {
			logrus.WithError(err).WithField("path", f.Path).Warn("Failed to remove rejected upload")
		}
	}
}

// UploadedFiles returns the files stored by ImageIntake.
func UploadedFiles(c *gin.Context) []services.UploadedFile {
	if v, ok := c.Get(UploadedFilesKey); ok {
		if files, ok := v.([]services.UploadedFile); ok {
			return files
		}
	}
	return nil
}
