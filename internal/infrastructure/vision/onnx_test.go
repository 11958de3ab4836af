package vision

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"photo-classifier/config"
	"photo-classifier/internal/domain/entity"
)

func TestONNXClassifier_ClassifyAfterClose(t *testing.T) {
	c := &ONNXClassifier{spec: config.ModelSpec{InputSize: 4, Scale: 1.0 / 127.5, TopK: 3}}
	require.NoError(t, c.Close())

	img := &entity.SourceImage{Image: image.NewRGBA(image.Rect(0, 0, 8, 8))}
	_, err := c.Classify(context.Background(), img)
	require.ErrorIs(t, err, ErrClassifierClosed)

	// повторный Close безопасен
	require.NoError(t, c.Close())
}
