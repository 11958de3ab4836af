package app

import (
	"context"

	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
)

// ClassifierBackend приводит выдачу классификатора к строкам таблицы
type ClassifierBackend struct {
	classifier port.ImageClassifier
}

func NewClassifierBackend(classifier port.ImageClassifier) *ClassifierBackend {
	return &ClassifierBackend{classifier: classifier}
}

func (b *ClassifierBackend) Predict(ctx context.Context, img *entity.SourceImage) ([]entity.PredictionRow, error) {
	predictions, err := b.classifier.Classify(ctx, img)
	if err != nil {
		return nil, err
	}
	return entity.RowsFromClassifications(predictions), nil
}

// DetectorBackend приводит выдачу детектора к строкам таблицы
type DetectorBackend struct {
	detector port.ObjectDetector
}

func NewDetectorBackend(detector port.ObjectDetector) *DetectorBackend {
	return &DetectorBackend{detector: detector}
}

func (b *DetectorBackend) Predict(ctx context.Context, img *entity.SourceImage) ([]entity.PredictionRow, error) {
	detections, err := b.detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	return entity.RowsFromDetections(detections), nil
}

var (
	_ port.InferenceBackend = (*ClassifierBackend)(nil)
	_ port.InferenceBackend = (*DetectorBackend)(nil)
)
