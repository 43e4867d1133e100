package dto

import (
	"time"

	"batchmark/internal/domain"
)

type SubmitRequest struct {
	Jobs      []domain.ImageJob       `json:"jobs"`
	Template  string                  `json:"template,omitempty"`
	Watermark *domain.WatermarkConfig `json:"watermark_config,omitempty"`
	Output    *domain.OutputConfig    `json:"output_config,omitempty"`
}

type BatchResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Succeeded int       `json:"succeeded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FailureResponse struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type TemplateListResponse struct {
	Templates []string `json:"templates"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
