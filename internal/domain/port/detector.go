package port

import (
	"context"

	"photo-classifier/internal/domain/entity"
)

// ObjectDetector интерфейс детектора объектов (COCO-SSD)
type ObjectDetector interface {
	// Detect возвращает найденные объекты, отсортированные по уверенности
	Detect(ctx context.Context, img *entity.SourceImage) ([]entity.Detection, error)
}

// BoxAnnotator рисует рамки найденных объектов поверх изображения
type BoxAnnotator interface {
	// Annotate возвращает JPEG с подсвеченными объектами
	Annotate(img *entity.SourceImage, rows []entity.PredictionRow) ([]byte, error)
}
