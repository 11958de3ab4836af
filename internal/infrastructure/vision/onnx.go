package vision

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"photo-classifier/config"
	"photo-classifier/internal/domain/entity"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// ErrClassifierClosed возвращается при вызове Classify после Close
var ErrClassifierClosed = errors.New("onnx classifier is closed")

// initONNXRuntime поднимает окружение onnxruntime один раз на процесс
func initONNXRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			ortErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	})
	return ortErr
}

// ONNXClassifier классификатор на onnxruntime (MobileNet V2 в формате ONNX)
type ONNXClassifier struct {
	spec   config.ModelSpec
	labels []string

	mu           sync.Mutex // тензоры сессии переиспользуются между вызовами
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNXClassifier создаёт сессию с входом [1,3,S,S] и выходом [1,классы].
func NewONNXClassifier(spec config.ModelSpec, libPath string) (*ONNXClassifier, error) {
	if err := initONNXRuntime(libPath); err != nil {
		return nil, err
	}

	labels, err := LoadLabels(spec.Labels)
	if err != nil {
		return nil, err
	}

	size := int64(spec.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	classes := int64(len(labels) + spec.LabelOffset)
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, classes))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(spec.Model,
		[]string{spec.InputName}, []string{spec.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		spec:         spec,
		labels:       labels,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Classify возвращает top-k классов
func (c *ONNXClassifier) Classify(ctx context.Context, img *entity.SourceImage) ([]entity.Classification, error) {
	if img.Empty() {
		return nil, entity.ErrNoImage
	}
	input := nchwInput(img.Image, c.spec)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, ErrClassifierClosed
	}
	copy(c.inputTensor.GetData(), input)
	if err := c.session.Run(); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	probs := make([]float32, len(c.outputTensor.GetData()))
	copy(probs, c.outputTensor.GetData())
	c.mu.Unlock()

	if c.spec.ApplySoftmax {
		probs = softmax(probs)
	}

	return topK(probs, c.labels, c.spec.TopK, c.spec.LabelOffset), nil
}

// Close освобождает сессию и тензоры. Окружение onnxruntime живёт до конца процесса.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	return nil
}
