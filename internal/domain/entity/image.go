package entity

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// SourceImage декодированное изображение вместе с исходными байтами.
// Заменяется целиком при каждой новой загрузке.
type SourceImage struct {
	Data   []byte
	Image  image.Image
	Format string
}

// DecodeImage декодирует байты изображения (JPEG, PNG, GIF).
func DecodeImage(data []byte) (*SourceImage, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	return &SourceImage{Data: data, Image: img, Format: format}, nil
}

// Empty сообщает, что изображения нет
func (s *SourceImage) Empty() bool {
	return s == nil || s.Image == nil
}

// Size возвращает ширину и высоту изображения
func (s *SourceImage) Size() (width, height int) {
	if s.Empty() {
		return 0, 0
	}
	b := s.Image.Bounds()
	return b.Dx(), b.Dy()
}
