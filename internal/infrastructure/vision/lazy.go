package vision

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
	"photo-classifier/internal/metrics"
)

// Lazy загружает модель при первом обращении и держит её до Close.
// Неудачная загрузка не кэшируется: следующий вызов попробует снова.
type Lazy[T any] struct {
	model entity.ModelChoice
	load  func() (T, error)

	mu     sync.Mutex
	value  T
	loaded bool
}

func NewLazy[T any](model entity.ModelChoice, load func() (T, error)) *Lazy[T] {
	return &Lazy[T]{model: model, load: load}
}

// Get возвращает загруженную модель
func (l *Lazy[T]) Get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.value, nil
	}

	log.Printf("Loading model %s", l.model.Title())
	value, err := l.load()
	if err != nil {
		metrics.ModelLoads.WithLabelValues(string(l.model), "error").Inc()
		var zero T
		return zero, fmt.Errorf("load %s: %w", l.model, err)
	}

	metrics.ModelLoads.WithLabelValues(string(l.model), "ok").Inc()
	l.value = value
	l.loaded = true
	return value, nil
}

// Close освобождает модель, если она была загружена и умеет закрываться
func (l *Lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		return nil
	}
	l.loaded = false
	if c, ok := any(l.value).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// LazyClassifier откладывает загрузку классификатора до первого запроса
type LazyClassifier struct {
	*Lazy[port.ImageClassifier]
}

func NewLazyClassifier(model entity.ModelChoice, load func() (port.ImageClassifier, error)) *LazyClassifier {
	return &LazyClassifier{Lazy: NewLazy(model, load)}
}

func (c *LazyClassifier) Classify(ctx context.Context, img *entity.SourceImage) ([]entity.Classification, error) {
	classifier, err := c.Get()
	if err != nil {
		return nil, err
	}
	return classifier.Classify(ctx, img)
}

// LazyDetector откладывает загрузку детектора до первого запроса
type LazyDetector struct {
	*Lazy[port.ObjectDetector]
}

func NewLazyDetector(model entity.ModelChoice, load func() (port.ObjectDetector, error)) *LazyDetector {
	return &LazyDetector{Lazy: NewLazy(model, load)}
}

func (d *LazyDetector) Detect(ctx context.Context, img *entity.SourceImage) ([]entity.Detection, error) {
	detector, err := d.Get()
	if err != nil {
		return nil, err
	}
	return detector.Detect(ctx, img)
}

var (
	_ port.ImageClassifier = (*LazyClassifier)(nil)
	_ port.ObjectDetector  = (*LazyDetector)(nil)
)
