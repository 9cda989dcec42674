package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartfit/smartfit-backend/internal/storage"
)

const (
	analyzePath       = "/analyze"
	maxAnalysisBody   = 10 << 20
	maxErrorSnippet   = 512
	defaultOccasion   = "casual"
	defaultSeason     = "all"
	analysisFileField = "files"
)

// AnalysisRequest is one batch sent to the analysis service.
type AnalysisRequest struct {
	Images   []ImageRef
	Occasion string
	Season   string
	Name     string
	Category string
}

type AnalysisClient struct {
	baseURL    string
	httpClient *http.Client
	store      storage.Store
}

func NewAnalysisClient(baseURL string, timeout time.Duration, store storage.Store) *AnalysisClient {
	return &AnalysisClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
	}
}

// Analyze posts the whole batch in one request. Any failure is returned as *AnalysisError.
func (c *AnalysisClient) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error) {
	start := time.Now()

	body, contentType := streamMultipart(func(mw *multipart.Writer) error {
		for _, img := range req.Images {
			if err := writeImagePart(ctx, mw, c.store, analysisFileField, img); err != nil {
				return err
			}
		}
		return writeAnalysisFields(mw, req)
	})
	defer body.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, body)
	if err != nil {
		return nil, &AnalysisError{Message: "build request failed", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &AnalysisError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalysisBody))
	if err != nil {
		return nil, &AnalysisError{StatusCode: resp.StatusCode, Message: "read response failed", Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"files":    len(req.Images),
		"duration": time.Since(start).Milliseconds(),
	}).Debug("Analysis service responded")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AnalysisError{StatusCode: resp.StatusCode, Message: upstreamMessage(raw)}
	}

	var parsed AnalysisResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &AnalysisError{StatusCode: resp.StatusCode, Message: "malformed analysis response", Err: err}
	}
	if parsed.Failed() {
		msg := parsed.ErrorText()
		if msg == "" {
			msg = parsed.Message
		}
		if msg == "" {
			msg = "analysis reported failure"
		}
		return nil, &AnalysisError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &parsed, nil
}

func writeAnalysisFields(mw *multipart.Writer, req AnalysisRequest) error {
	fields := [][2]string{
		{"occasion", orDefault(req.Occasion, defaultOccasion)},
		{"season", orDefault(req.Season, defaultSeason)},
	}
	if req.Name != "" {
		fields = append(fields, [2]string{"name", req.Name})
	}
	if req.Category != "" {
		fields = append(fields, [2]string{"category", req.Category})
	}

	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	return nil
}

// upstreamMessage extracts error or message from a JSON error body, falling back to raw text.
func upstreamMessage(raw []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		resp := AnalysisResponse{Error: body.Error}
		if text := resp.ErrorText(); text != "" {
			return text
		}
		if body.Message != "" {
			return body.Message
		}
	}

	text := strings.TrimSpace(string(raw))
	if len(text) > maxErrorSnippet {
		text = text[:maxErrorSnippet]
	}
	if text == "" {
		text = "empty response body"
	}
	return text
}

func transportMessage(err error) string {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "analysis service timed out"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "analysis service timed out"
	}
	return "analysis service unreachable"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
