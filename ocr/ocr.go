// Package ocr produces word-level text with pixel-exact boxes and groups
// words into line phrases.
package ocr

import (
	"context"
	"errors"
	"fmt"

	"profile_teardown/model"
)

// Extractor runs text recognition over an image file.
type Extractor interface {
	Extract(ctx context.Context, imagePath string) ([]model.OCRElement, error)
}

// MissingDependencyError reports that no recognition backend is installed.
// It is an environment precondition and is never retried.
type MissingDependencyError struct {
	Backend string
	Err     error
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("ocr backend %q not available: %v", e.Backend, e.Err)
}

func (e *MissingDependencyError) Unwrap() error { return e.Err }

// IsMissingDependency reports whether err carries a MissingDependencyError.
func IsMissingDependency(err error) bool {
	var md *MissingDependencyError
	return errors.As(err, &md)
}
