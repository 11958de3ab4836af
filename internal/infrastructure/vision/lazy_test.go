package vision

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
)

type stubClassifier struct {
	closed bool
}

func (s *stubClassifier) Classify(ctx context.Context, img *entity.SourceImage) ([]entity.Classification, error) {
	return []entity.Classification{{ClassName: "cat", Probability: 0.92}}, nil
}

func (s *stubClassifier) Close() error {
	s.closed = true
	return nil
}

func TestLazyClassifier_LoadsOnce(t *testing.T) {
	var loads int
	var mu sync.Mutex
	stub := &stubClassifier{}
	lazy := NewLazyClassifier(entity.ModelMobileNetV2, func() (port.ImageClassifier, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return stub, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = lazy.Classify(context.Background(), nil)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, loads)

	out, err := lazy.Classify(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "cat", out[0].ClassName)

	require.NoError(t, lazy.Close())
	require.True(t, stub.closed)
}

func TestLazyDetector_RetriesAfterFailure(t *testing.T) {
	attempts := 0
	lazy := NewLazyDetector(entity.ModelCocoSSD, func() (port.ObjectDetector, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("weights not found")
		}
		return detectorFunc(func() []entity.Detection {
			return []entity.Detection{{Class: "person", Score: 0.88}}
		}), nil
	})

	_, err := lazy.Detect(context.Background(), nil)
	require.Error(t, err)

	out, err := lazy.Detect(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "person", out[0].Class)
	require.Equal(t, 2, attempts)
}

type detectorFunc func() []entity.Detection

func (f detectorFunc) Detect(ctx context.Context, img *entity.SourceImage) ([]entity.Detection, error) {
	return f(), nil
}
