package vision

import (
	"image"

	"github.com/nfnt/resize"

	"photo-classifier/config"
)

// nchwInput приводит изображение к квадрату InputSize и раскладывает каналы RGB в формате NCHW:
// значение = (пиксель - mean[c]) * scale, пиксель в диапазоне 0..255.
func nchwInput(img image.Image, spec config.ModelSpec) []float32 {
	size := uint(spec.InputSize)
	resized := resize.Resize(size, size, img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			i := y*width + x
			data[i] = float32((float64(r>>8) - spec.Mean[0]) * spec.Scale)
			data[plane+i] = float32((float64(g>>8) - spec.Mean[1]) * spec.Scale)
			data[2*plane+i] = float32((float64(b>>8) - spec.Mean[2]) * spec.Scale)
		}
	}

	return data
}
