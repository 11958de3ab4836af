package entity

import (
	"fmt"
	"strings"
)

// ModelChoice выбранная пользователем модель
type ModelChoice string

const (
	ModelMobileNetV2 ModelChoice = "MOBILENET_V2" // классификатор всего изображения
	ModelCocoSSD     ModelChoice = "COCO_SSD"     // детектор объектов
)

// DefaultModel используется, пока пользователь ничего не выбрал
const DefaultModel = ModelMobileNetV2

// Models возвращает все поддерживаемые модели в порядке отображения
func Models() []ModelChoice {
	return []ModelChoice{ModelMobileNetV2, ModelCocoSSD}
}

// ParseModelChoice разбирает имя модели, допускает короткие варианты.
func ParseModelChoice(s string) (ModelChoice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mobilenet_v2", "mobilenet", "mobilenetv2":
		return ModelMobileNetV2, nil
	case "coco_ssd", "coco", "cocossd", "coco-ssd":
		return ModelCocoSSD, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

// Title возвращает человекочитаемое название модели
func (m ModelChoice) Title() string {
	switch m {
	case ModelMobileNetV2:
		return "MobileNet V2"
	case ModelCocoSSD:
		return "Coco SSD"
	}
	return string(m)
}

func (m ModelChoice) Valid() bool {
	return m == ModelMobileNetV2 || m == ModelCocoSSD
}
