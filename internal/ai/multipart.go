package ai

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/smartfit/smartfit-backend/internal/storage"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeImagePart copies a stored image into a multipart file part.
func writeImagePart(ctx context.Context, mw *multipart.Writer, store storage.Store, field string, img ImageRef) error {
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(img.OriginalName)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part for %s: %w", img.OriginalName, err)
	}

	src, err := store.Open(ctx, img.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", img.Path, err)
	}
	defer src.Close()

	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", img.Path, err)
	}
	return nil
}

// streamMultipart runs write in a goroutine and returns the body reader and content type.
func streamMultipart(write func(mw *multipart.Writer) error) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := write(mw)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}
