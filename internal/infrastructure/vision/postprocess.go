package vision

import (
	"math"
	"sort"

	"photo-classifier/internal/domain/entity"
)

// ssdStride количество значений на одну детекцию в выходе DetectionOutput:
// [imageId, classId, score, left, top, right, bottom], координаты нормированы.
const ssdStride = 7

// softmax переводит логиты в вероятности
func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// topK возвращает k самых вероятных классов по убыванию вероятности.
// offset вычитается из индекса выхода перед поиском метки.
func topK(probs []float32, labels []string, k, offset int) []entity.Classification {
	if k <= 0 || k > len(probs) {
		k = len(probs)
	}

	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})

	out := make([]entity.Classification, 0, k)
	for _, i := range idx[:k] {
		out = append(out, entity.Classification{
			ClassName:   labelAt(labels, i-offset),
			Probability: clamp01(float64(probs[i])),
		})
	}
	return out
}

// ssdParams параметры разбора выхода SSD
type ssdParams struct {
	Width, Height  int
	ScoreThreshold float64
	MaxDetections  int
	LabelOffset    int
	Labels         []string
}

// parseSSD разбирает плоский выход SSD в детекции, отсортированные по score.
func parseSSD(raw []float32, p ssdParams) []entity.Detection {
	detections := make([]entity.Detection, 0, len(raw)/ssdStride)
	for i := 0; i+ssdStride <= len(raw); i += ssdStride {
		score := float64(raw[i+2])
		if score < p.ScoreThreshold {
			continue
		}

		classID := int(raw[i+1]) - p.LabelOffset
		left := clampInt(int(float64(raw[i+3])*float64(p.Width)), 0, p.Width)
		top := clampInt(int(float64(raw[i+4])*float64(p.Height)), 0, p.Height)
		right := clampInt(int(float64(raw[i+5])*float64(p.Width)), 0, p.Width)
		bottom := clampInt(int(float64(raw[i+6])*float64(p.Height)), 0, p.Height)
		if right <= left || bottom <= top {
			continue
		}

		detections = append(detections, entity.Detection{
			Class: labelAt(p.Labels, classID),
			Score: clamp01(score),
			Box: entity.Box{
				X:      left,
				Y:      top,
				Width:  right - left,
				Height: bottom - top,
			},
		})
	}

	sort.SliceStable(detections, func(a, b int) bool {
		return detections[a].Score > detections[b].Score
	})
	if p.MaxDetections > 0 && len(detections) > p.MaxDetections {
		detections = detections[:p.MaxDetections]
	}
	return detections
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
