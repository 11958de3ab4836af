package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"photo-classifier/internal/domain/entity"
)

// ModelSpec описывает файлы и параметры предобработки одной модели
type ModelSpec struct {
	Model          string     `yaml:"model"`  // веса (.onnx, .pb, .caffemodel)
	Config         string     `yaml:"config"` // описание графа для OpenCV, если нужно
	Labels         string     `yaml:"labels"` // по одной метке на строку
	InputSize      int        `yaml:"input_size"`
	Mean           [3]float64 `yaml:"mean"`
	Scale          float64    `yaml:"scale"`
	SwapRB         bool       `yaml:"swap_rb"`
	TopK           int        `yaml:"top_k"`
	ScoreThreshold float64    `yaml:"score_threshold"`
	MaxDetections  int        `yaml:"max_detections"`
	// LabelOffset сдвиг индекса класса: у TF SSD класс 0 это фон
	LabelOffset int `yaml:"label_offset"`
	// для ONNX: имена входа и выхода графа и нужен ли softmax поверх логитов
	InputName    string `yaml:"input_name"`
	OutputName   string `yaml:"output_name"`
	ApplySoftmax bool   `yaml:"apply_softmax"`

	// справочные поля, только для логов
	Version int     `yaml:"version"`
	Alpha   float64 `yaml:"alpha"`
	Base    string  `yaml:"base"`
}

// Manifest набор моделей из models.yaml
type Manifest struct {
	Models map[entity.ModelChoice]ModelSpec
}

type manifestFile struct {
	Models map[string]yaml.Node `yaml:"models"`
}

// LoadManifest читает models.yaml. Относительные пути считаются от каталога файла.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models config: %w", err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	manifest.resolvePaths(filepath.Dir(path))
	return manifest, nil
}

// ParseManifest разбирает YAML и подставляет значения по умолчанию.
func ParseManifest(data []byte) (*Manifest, error) {
	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse models config: %w", err)
	}

	manifest := &Manifest{Models: make(map[entity.ModelChoice]ModelSpec, len(file.Models))}
	for name, node := range file.Models {
		model, err := entity.ParseModelChoice(name)
		if err != nil {
			return nil, fmt.Errorf("models config: %w", err)
		}
		// значения по умолчанию заполняются до разбора, явные нули из файла их перекрывают
		spec := defaultSpec(model)
		if err := node.Decode(&spec); err != nil {
			return nil, fmt.Errorf("models config: %s: %w", model, err)
		}
		if spec.Model == "" {
			return nil, fmt.Errorf("models config: %s: model path is required", model)
		}
		manifest.Models[model] = spec
	}

	return manifest, nil
}

// Spec возвращает параметры модели
func (m *Manifest) Spec(model entity.ModelChoice) (ModelSpec, bool) {
	spec, ok := m.Models[model]
	return spec, ok
}

func (m *Manifest) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for model, spec := range m.Models {
		spec.Model = resolve(spec.Model)
		spec.Config = resolve(spec.Config)
		spec.Labels = resolve(spec.Labels)
		m.Models[model] = spec
	}
}

func defaultSpec(model entity.ModelChoice) ModelSpec {
	spec := ModelSpec{
		Scale:      1.0 / 127.5,
		Mean:       [3]float64{127.5, 127.5, 127.5},
		InputName:  "input",
		OutputName: "output",
	}

	switch model {
	case entity.ModelMobileNetV2:
		spec.InputSize = 224
		spec.TopK = 3
		spec.Version = 2
		spec.Alpha = 1.0
	case entity.ModelCocoSSD:
		spec.InputSize = 300
		spec.ScoreThreshold = 0.5
		spec.MaxDetections = 20
		spec.Base = "mobilenet_v2"
	}

	return spec
}
