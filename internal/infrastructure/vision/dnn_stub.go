//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"photo-classifier/config"
	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

// GoCVClassifier заглушка (без OpenCV)
type GoCVClassifier struct{}

// NewGoCVClassifier возвращает ошибку, если сборка без тега gocv.
func NewGoCVClassifier(spec config.ModelSpec) (*GoCVClassifier, error) {
	_ = spec
	return nil, errNoGoCV
}

func (c *GoCVClassifier) Classify(ctx context.Context, img *entity.SourceImage) ([]entity.Classification, error) {
	return nil, errNoGoCV
}

func (c *GoCVClassifier) Close() error { return nil }

// GoCVDetector заглушка (без OpenCV)
type GoCVDetector struct{}

// NewGoCVDetector возвращает ошибку, если сборка без тега gocv.
func NewGoCVDetector(spec config.ModelSpec) (*GoCVDetector, error) {
	_ = spec
	return nil, errNoGoCV
}

func (d *GoCVDetector) Detect(ctx context.Context, img *entity.SourceImage) ([]entity.Detection, error) {
	return nil, errNoGoCV
}

func (d *GoCVDetector) Close() error { return nil }

// NewAnnotator без OpenCV рисовать нечем, поэтому подсветки нет.
func NewAnnotator() port.BoxAnnotator {
	return nil
}
