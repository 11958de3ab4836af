package entity

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseModelChoice(t *testing.T) {
	cases := map[string]ModelChoice{
		"MOBILENET_V2": ModelMobileNetV2,
		"mobilenet":    ModelMobileNetV2,
		"COCO_SSD":     ModelCocoSSD,
		" coco ":       ModelCocoSSD,
	}
	for in, want := range cases {
		got, err := ParseModelChoice(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}

	_, err := ParseModelChoice("resnet")
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestModelChoiceTitle(t *testing.T) {
	require.Equal(t, "MobileNet V2", ModelMobileNetV2.Title())
	require.Equal(t, "Coco SSD", ModelCocoSSD.Title())
	require.False(t, ModelChoice("X").Valid())
}

func TestDecodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	src, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "png", src.Format)
	w, h := src.Size()
	require.Equal(t, 4, w)
	require.Equal(t, 3, h)
}

func TestDecodeImage_Errors(t *testing.T) {
	_, err := DecodeImage(nil)
	require.ErrorIs(t, err, ErrNoImage)

	_, err = DecodeImage([]byte("not an image"))
	require.ErrorIs(t, err, ErrDecodeImage)

	var empty *SourceImage
	require.True(t, empty.Empty())
}
