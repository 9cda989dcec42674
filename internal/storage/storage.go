package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// RootPrefix starts every stored image path. Records keep these relative paths only.
	RootPrefix      = "uploads/"
	ProcessedPrefix = RootPrefix + "processed/"
)

var ErrInvalidPath = errors.New("invalid storage path")

// Store holds uploaded originals and processed derivatives addressed by relative path.
type Store interface {
	Save(ctx context.Context, relPath string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	// Remove deletes the object. A missing object is not an error.
	Remove(ctx context.Context, relPath string) error
	// URL resolves a relative path to a client-reachable address.
	URL(relPath string) string
}

// NewOriginalPath returns a collision-free path for an uploaded original.
func NewOriginalPath(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s%d-%s%s", RootPrefix, time.Now().UnixNano(), uuid.New().String()[:8], ext)
}

// NewProcessedPath returns the path for a background-removed derivative of originalName.
func NewProcessedPath(originalName string) string {
	base := filepath.Base(originalName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = sanitize(stem)
	if stem == "" {
		stem = "image"
	}
	return fmt.Sprintf("%sbg_removed_%d_%s_%s.png", ProcessedPrefix, time.Now().UnixNano(), uuid.New().String()[:8], stem)
}

// cleanRelPath validates relPath and returns it relative to RootPrefix.
func cleanRelPath(relPath string) (string, error) {
	if !strings.HasPrefix(relPath, RootPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	rest := strings.TrimPrefix(relPath, RootPrefix)
	cleaned := path.Clean("/" + rest)[1:]
	if cleaned == "" || cleaned != rest || strings.Contains(rest, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return cleaned, nil
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	return b.String()
}
