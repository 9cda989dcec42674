package ai

import (
	"fmt"
)

// ImageRef points at a stored image that is sent to an external service.
type ImageRef struct {
	Path         string
	OriginalName string
	ContentType  string
}

// AnalysisError is a hard failure of the analysis call. It aborts the whole batch.
type AnalysisError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AnalysisError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("ml analysis failed (status %d): %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("ml analysis failed: %s", msg)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

type FailureKind string

const (
	FailureStatus   FailureKind = "status"
	FailureJSONBody FailureKind = "json_body"
	FailureNetwork  FailureKind = "network"
	FailureStorage  FailureKind = "storage"
)

// RemovalFailure is a soft failure of background removal. Callers fall back to the original image.
type RemovalFailure struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Err        error
}

func (f *RemovalFailure) Error() string {
	msg := f.Message
	if f.Err != nil {
		if msg == "" {
			msg = f.Err.Error()
		} else {
			msg += ": " + f.Err.Error()
		}
	}
	if f.StatusCode > 0 {
		return fmt.Sprintf("background removal %s failure (status %d): %s", f.Kind, f.StatusCode, msg)
	}
	return fmt.Sprintf("background removal %s failure: %s", f.Kind, msg)
}

func (f *RemovalFailure) Unwrap() error {
	return f.Err
}
