package server

import (
	"photo-classifier/internal/domain/entity"
)

type rowResponse struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Probability float64     `json:"probability"`
	Percent     int         `json:"percent"`
	Box         *entity.Box `json:"box,omitempty"`
}

type predictResponse struct {
	Model entity.ModelChoice `json:"model"`
	Rows  []rowResponse      `json:"rows"`
}

type sessionResponse struct {
	ID         string             `json:"id"`
	Model      entity.ModelChoice `json:"model"`
	State      entity.UserState   `json:"state"`
	Run        uint64             `json:"run"`
	Ran        bool               `json:"ran"`
	Superseded bool               `json:"superseded,omitempty"`
	Rows       []rowResponse      `json:"rows"`
}

type modelResponse struct {
	ID    entity.ModelChoice `json:"id"`
	Title string             `json:"title"`
}

type selectModelRequest struct {
	Model string `json:"model"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func toRows(rows []entity.PredictionRow) []rowResponse {
	out := make([]rowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowResponse{
			ID:          r.ID,
			Description: r.Description,
			Probability: r.Probability,
			Percent:     r.Percent(),
			Box:         r.Box,
		})
	}
	return out
}
