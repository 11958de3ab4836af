package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"photo-classifier/internal/domain/entity"
)

type fakeClassifier struct {
	out   []entity.Classification
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, img *entity.SourceImage) ([]entity.Classification, error) {
	f.calls++
	return f.out, f.err
}

type fakeDetector struct {
	out   []entity.Detection
	err   error
	calls int
}

func (f *fakeDetector) Detect(ctx context.Context, img *entity.SourceImage) ([]entity.Detection, error) {
	f.calls++
	return f.out, f.err
}

type fakeAnnotator struct {
	rows []entity.PredictionRow
}

func (f *fakeAnnotator) Annotate(img *entity.SourceImage, rows []entity.PredictionRow) ([]byte, error) {
	f.rows = rows
	return []byte("jpeg"), nil
}

// gatedBackend блокирует первый вызов до release, остальные отвечают сразу.
type gatedBackend struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *gatedBackend) Predict(ctx context.Context, img *entity.SourceImage) ([]entity.PredictionRow, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()

	if n == 1 {
		close(b.started)
		<-b.release
		return []entity.PredictionRow{{ID: "0", Description: "stale", Probability: 0.1}}, nil
	}
	return []entity.PredictionRow{{ID: "0", Description: "fresh", Probability: 0.9}}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{B: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decoded(t *testing.T) *entity.SourceImage {
	t.Helper()
	img, err := entity.DecodeImage(pngBytes(t, 8, 8))
	require.NoError(t, err)
	return img
}
