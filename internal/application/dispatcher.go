package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
	"photo-classifier/internal/metrics"
)

// InferenceDispatcher выбирает бэкенд по модели и возвращает строки таблицы.
// Набор бэкендов фиксируется при создании, поэтому диспетчер безопасен для параллельного вызова.
type InferenceDispatcher struct {
	backends map[entity.ModelChoice]port.InferenceBackend
}

// NewInferenceDispatcher создаёт диспетчер с заданными бэкендами.
func NewInferenceDispatcher(backends map[entity.ModelChoice]port.InferenceBackend) *InferenceDispatcher {
	registered := make(map[entity.ModelChoice]port.InferenceBackend, len(backends))
	for model, backend := range backends {
		if backend != nil {
			registered[model] = backend
		}
	}
	return &InferenceDispatcher{backends: registered}
}

// Models возвращает модели, для которых есть бэкенд
func (d *InferenceDispatcher) Models() []entity.ModelChoice {
	models := make([]entity.ModelChoice, 0, len(d.backends))
	for _, m := range entity.Models() {
		if _, ok := d.backends[m]; ok {
			models = append(models, m)
		}
	}
	return models
}

// Supports сообщает, зарегистрирована ли модель
func (d *InferenceDispatcher) Supports(model entity.ModelChoice) bool {
	_, ok := d.backends[model]
	return ok
}

// Run запускает распознавание. Порядок строк совпадает с порядком выдачи модели.
func (d *InferenceDispatcher) Run(ctx context.Context, img *entity.SourceImage, model entity.ModelChoice) ([]entity.PredictionRow, error) {
	if img.Empty() {
		return nil, entity.ErrNoImage
	}

	backend, ok := d.backends[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownModel, model)
	}

	log.Printf("Using %s", model.Title())

	start := time.Now()
	rows, err := backend.Predict(ctx, img)
	metrics.InferenceDuration.WithLabelValues(string(model)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InferenceTotal.WithLabelValues(string(model), "error").Inc()
		return nil, fmt.Errorf("%s inference: %w", model, err)
	}

	metrics.InferenceTotal.WithLabelValues(string(model), "ok").Inc()
	metrics.PredictionRows.WithLabelValues(string(model)).Observe(float64(len(rows)))
	log.Printf("Predictions (%s): %d rows", model, len(rows))

	return rows, nil
}
