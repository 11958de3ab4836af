package entity

import (
	"math"
	"strconv"
)

// Classification — один результат классификатора.
type Classification struct {
	ClassName   string
	Probability float64
}

// Box ограничивающая рамка объекта в пикселях исходного изображения
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection — один результат детектора.
type Detection struct {
	Class string
	Score float64
	Box   Box
}

// PredictionRow строка таблицы результатов
type PredictionRow struct {
	ID          string  `json:"id"`          // позиция в выдаче модели
	Description string  `json:"description"` // метка класса
	Probability float64 `json:"probability"` // уверенность в [0,1]
	Box         *Box    `json:"box,omitempty"`
}

// Percent возвращает уверенность в процентах, округлённую до целого.
func (r PredictionRow) Percent() int {
	p := math.Round(r.Probability * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}

// RowsFromClassifications переводит выдачу классификатора в строки таблицы.
// Порядок сохраняется как есть.
func RowsFromClassifications(predictions []Classification) []PredictionRow {
	rows := make([]PredictionRow, 0, len(predictions))
	for i, p := range predictions {
		rows = append(rows, PredictionRow{
			ID:          strconv.Itoa(i),
			Description: p.ClassName,
			Probability: p.Probability,
		})
	}
	return rows
}

// RowsFromDetections переводит выдачу детектора в строки таблицы.
func RowsFromDetections(detections []Detection) []PredictionRow {
	rows := make([]PredictionRow, 0, len(detections))
	for i, d := range detections {
		box := d.Box
		rows = append(rows, PredictionRow{
			ID:          strconv.Itoa(i),
			Description: d.Class,
			Probability: d.Score,
			Box:         &box,
		})
	}
	return rows
}
