//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"gocv.io/x/gocv"

	"photo-classifier/config"
	"photo-classifier/internal/domain/entity"
	"photo-classifier/internal/domain/port"
)

// GoCVClassifier классификатор на OpenCV DNN (MobileNet V2)
type GoCVClassifier struct {
	spec   config.ModelSpec
	labels []string

	mu  sync.Mutex // gocv.Net не потокобезопасен
	net gocv.Net
}

// NewGoCVClassifier загружает веса и метки классификатора.
func NewGoCVClassifier(spec config.ModelSpec) (*GoCVClassifier, error) {
	labels, err := LoadLabels(spec.Labels)
	if err != nil {
		return nil, err
	}
	net, err := readNet(spec)
	if err != nil {
		return nil, err
	}
	return &GoCVClassifier{spec: spec, labels: labels, net: net}, nil
}

// Classify возвращает top-k классов
func (c *GoCVClassifier) Classify(ctx context.Context, img *entity.SourceImage) ([]entity.Classification, error) {
	mat, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob := blobFor(mat, c.spec)
	defer blob.Close()

	c.mu.Lock()
	c.net.SetInput(blob, "")
	prob := c.net.Forward("")
	c.mu.Unlock()
	defer prob.Close()

	data, err := prob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	probs := make([]float32, len(data))
	copy(probs, data)
	if c.spec.ApplySoftmax {
		probs = softmax(probs)
	}

	return topK(probs, c.labels, c.spec.TopK, c.spec.LabelOffset), nil
}

func (c *GoCVClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

// GoCVDetector детектор объектов на OpenCV DNN (SSD MobileNet V2, COCO)
type GoCVDetector struct {
	spec   config.ModelSpec
	labels []string

	mu  sync.Mutex
	net gocv.Net
}

// NewGoCVDetector загружает веса, описание графа и метки детектора.
func NewGoCVDetector(spec config.ModelSpec) (*GoCVDetector, error) {
	labels, err := LoadLabels(spec.Labels)
	if err != nil {
		return nil, err
	}
	net, err := readNet(spec)
	if err != nil {
		return nil, err
	}
	return &GoCVDetector{spec: spec, labels: labels, net: net}, nil
}

// Detect возвращает объекты с рамками в пикселях исходного изображения
func (d *GoCVDetector) Detect(ctx context.Context, img *entity.SourceImage) ([]entity.Detection, error) {
	mat, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob := blobFor(mat, d.spec)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	return parseSSD(data, ssdParams{
		Width:          mat.Cols(),
		Height:         mat.Rows(),
		ScoreThreshold: d.spec.ScoreThreshold,
		MaxDetections:  d.spec.MaxDetections,
		LabelOffset:    d.spec.LabelOffset,
		Labels:         d.labels,
	}), nil
}

func (d *GoCVDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// GoCVAnnotator рисует рамки детектора поверх фото
type GoCVAnnotator struct{}

// NewAnnotator возвращает аннотатор на OpenCV
func NewAnnotator() port.BoxAnnotator {
	return &GoCVAnnotator{}
}

// Annotate рисует прямоугольники и подписи вокруг объектов и возвращает новую картинку.
func (a *GoCVAnnotator) Annotate(img *entity.SourceImage, rows []entity.PredictionRow) ([]byte, error) {
	mat, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	green := color.RGBA{G: 255, A: 255}
	for _, row := range rows {
		if row.Box == nil {
			continue
		}
		b := row.Box
		rect := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
		gocv.Rectangle(&mat, rect, green, 2)

		label := fmt.Sprintf("%s %d%%", row.Description, row.Percent())
		gocv.PutText(&mat, label, image.Pt(b.X, maxInt(b.Y-6, 12)), gocv.FontHersheySimplex, 0.5, green, 1)
	}

	out, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func readNet(spec config.ModelSpec) (gocv.Net, error) {
	net := gocv.ReadNet(spec.Model, spec.Config)
	if net.Empty() {
		return net, fmt.Errorf("failed to read network %s", spec.Model)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return net, err
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return net, err
	}
	return net, nil
}

func blobFor(mat gocv.Mat, spec config.ModelSpec) gocv.Mat {
	mean := gocv.NewScalar(spec.Mean[0], spec.Mean[1], spec.Mean[2], 0)
	size := image.Pt(spec.InputSize, spec.InputSize)
	return gocv.BlobFromImage(mat, spec.Scale, size, mean, spec.SwapRB, false)
}

// toMat превращает изображение в BGR gocv.Mat: сначала из исходных байтов, иначе из image.Image.
func toMat(img *entity.SourceImage) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), entity.ErrNoImage
	}
	if len(img.Data) > 0 {
		mat, err := gocv.IMDecode(img.Data, gocv.IMReadColor)
		if err == nil && !mat.Empty() {
			return mat, nil
		}
		if !mat.Empty() {
			mat.Close()
		}
	}
	mat, err := gocv.ImageToMatRGB(img.Image)
	if err != nil || mat.Empty() {
		return gocv.NewMat(), errors.New("failed to convert image")
	}
	return mat, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
