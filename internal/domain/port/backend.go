package port

import (
	"context"

	"photo-classifier/internal/domain/entity"
)

// InferenceBackend общий интерфейс для всех моделей: изображение на входе, строки таблицы на выходе.
type InferenceBackend interface {
	Predict(ctx context.Context, img *entity.SourceImage) ([]entity.PredictionRow, error)
}
