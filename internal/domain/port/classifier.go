package port

import (
	"context"

	"photo-classifier/internal/domain/entity"
)

// ImageClassifier интерфейс классификатора изображения (MobileNet)
type ImageClassifier interface {
	// Classify возвращает top-k классов, отсортированных по вероятности
	Classify(ctx context.Context, img *entity.SourceImage) ([]entity.Classification, error)
}
