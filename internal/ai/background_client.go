package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/smartfit/smartfit-backend/internal/storage"
)

const (
	removalFileField = "image_file"
	maxRemovalBody   = 25 << 20
)

// ProcessedImage is a stored background-removed derivative.
type ProcessedImage struct {
	Path string
	Size int64
}

type BackgroundRemover struct {
	apiKey     string
	url        string
	httpClient *http.Client
	store      storage.Store
}

// NewBackgroundRemover returns nil when no API key is configured, which disables the feature.
func NewBackgroundRemover(apiKey, url string, timeout time.Duration, store storage.Store) *BackgroundRemover {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return &BackgroundRemover{
		apiKey:     apiKey,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
	}
}

func (r *BackgroundRemover) Enabled() bool {
	return r != nil && r.apiKey != ""
}

// Remove sends one image to the removal API and stores the result.
// Every failure is returned as *RemovalFailure.
func (r *BackgroundRemover) Remove(ctx context.Context, img ImageRef) (*ProcessedImage, error) {
	if !r.Enabled() {
		return nil, &RemovalFailure{Kind: FailureStatus, Message: "background removal is not configured"}
	}

	body, contentType := streamMultipart(func(mw *multipart.Writer) error {
		if err := writeImagePart(ctx, mw, r.store, removalFileField, img); err != nil {
			return err
		}
		return mw.WriteField("size", "auto")
	})
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return nil, &RemovalFailure{Kind: FailureNetwork, Message: "build request failed", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Api-Key", r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &RemovalFailure{Kind: FailureNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemovalBody))
	if err != nil {
		return nil, &RemovalFailure{Kind: FailureNetwork, StatusCode: resp.StatusCode, Message: "read response failed", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemovalFailure{Kind: FailureStatus, StatusCode: resp.StatusCode, Message: upstreamMessage(raw)}
	}
	if isJSON(resp.Header.Get("Content-Type")) {
		return nil, &RemovalFailure{Kind: FailureJSONBody, StatusCode: resp.StatusCode, Message: upstreamMessage(raw)}
	}
	if len(raw) == 0 {
		return nil, &RemovalFailure{Kind: FailureStatus, StatusCode: resp.StatusCode, Message: "empty image body"}
	}

	path := storage.NewProcessedPath(img.OriginalName)
	n, err := r.store.Save(ctx, path, bytes.NewReader(raw), "image/png")
	if err != nil {
		return nil, &RemovalFailure{Kind: FailureStorage, Message: fmt.Sprintf("save %s failed", path), Err: err}
	}

	return &ProcessedImage{Path: path, Size: n}, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
