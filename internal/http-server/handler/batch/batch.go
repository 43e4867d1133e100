package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"batchmark/internal/domain"
	"batchmark/internal/http-server/handler/batch/dto"
	"batchmark/internal/repository/batches"
	"batchmark/internal/repository/template"

	"github.com/go-chi/chi/v5"
	"github.com/wb-go/wbf/zlog"
)

const maxMemory = 32 << 20

type BatchHandler struct {
	usecase     batchUsecase
	logger      *zlog.Zerolog
	maxUpload   int64
	previewSize int
}

func NewBatchHandler(usecase batchUsecase, logger *zlog.Zerolog, maxUpload int64, previewSize int) *BatchHandler {
	return &BatchHandler{
		usecase:     usecase,
		logger:      logger,
		maxUpload:   maxUpload,
		previewSize: previewSize,
	}
}

func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	wm, out, err := h.resolveConfigs(&req)
	if err != nil {
		h.handleSubmitError(w, err)
		return
	}

	batch, err := h.usecase.Submit(ctx, req.Jobs, wm, out)
	if err != nil {
		h.handleSubmitError(w, err)
		return
	}

	h.logger.Info().
		Str("batch_id", batch.ID).
		Int("jobs", batch.Total).
		Msg("Batch submitted")

	h.respondJSON(w, http.StatusAccepted, toBatchResponse(batch))
}

func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "Batch ID is required", nil)
		return
	}

	batch, err := h.usecase.GetBatch(ctx, id)
	if err != nil {
		h.handleLookupError(w, err, id)
		return
	}

	h.respondJSON(w, http.StatusOK, toBatchResponse(batch))
}

func (h *BatchHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.usecase.ListBatches(ctx, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list batches")
		h.respondError(w, http.StatusInternalServerError, "Failed to list batches", err)
		return
	}

	resp := make([]dto.BatchResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toBatchResponse(&list[i]))
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) ListFailures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "Batch ID is required", nil)
		return
	}

	failures, err := h.usecase.ListFailures(ctx, id)
	if err != nil {
		h.handleLookupError(w, err, id)
		return
	}

	resp := make([]dto.FailureResponse, 0, len(failures))
	for _, f := range failures {
		resp = append(resp, dto.FailureResponse{
			Path:    f.Path,
			Kind:    string(f.Kind),
			Message: f.Message,
		})
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// Preview accepts a multipart form with an image under "file" and the
// watermark settings as a JSON string under "config". It answers with the
// watermarked preview as PNG and puts the applied scale factor in the
// X-Preview-Scale header.
func (h *BatchHandler) Preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse multipart form")
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required", nil)
		return
	}
	defer file.Close()

	wm := domain.DefaultWatermarkConfig()
	if raw := r.FormValue("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &wm); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid watermark config", nil)
			return
		}
	}

	maxSize := h.previewSize
	if v := r.FormValue("max_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxSize = n
		}
	}

	data, scale, err := h.usecase.Preview(file, wm, maxSize)
	if err != nil {
		h.handlePreviewError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Preview-Scale", strconv.FormatFloat(scale, 'f', -1, 64))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to stream preview")
	}
}

func (h *BatchHandler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl domain.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.usecase.SaveTemplate(tpl); err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			h.respondError(w, http.StatusBadRequest, "Invalid template", err)
			return
		}
		h.logger.Error().Err(err).Str("template", tpl.Name).Msg("Failed to save template")
		h.respondError(w, http.StatusInternalServerError, "Failed to save template", err)
		return
	}

	h.logger.Info().Str("template", tpl.Name).Msg("Template saved")
	w.WriteHeader(http.StatusCreated)
}

func (h *BatchHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "Template name is required", nil)
		return
	}

	tpl, err := h.usecase.LoadTemplate(name)
	if err != nil {
		h.handleTemplateError(w, err, name)
		return
	}

	h.respondJSON(w, http.StatusOK, tpl)
}

func (h *BatchHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := h.usecase.ListTemplates()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list templates")
		h.respondError(w, http.StatusInternalServerError, "Failed to list templates", err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.TemplateListResponse{Templates: names})
}

func (h *BatchHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "Template name is required", nil)
		return
	}

	if err := h.usecase.DeleteTemplate(name); err != nil {
		h.handleTemplateError(w, err, name)
		return
	}

	h.logger.Info().Str("template", name).Msg("Template deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *BatchHandler) resolveConfigs(req *dto.SubmitRequest) (domain.WatermarkConfig, domain.OutputConfig, error) {
	wm := domain.DefaultWatermarkConfig()
	out := domain.DefaultOutputConfig()

	if req.Template != "" {
		tpl, err := h.usecase.LoadTemplate(req.Template)
		if err != nil {
			return wm, out, fmt.Errorf("failed to load template: %w", err)
		}
		wm = tpl.Watermark
		out = tpl.Output
	}

	// Explicit configs override the template.
	if req.Watermark != nil {
		wm = *req.Watermark
	}
	if req.Output != nil {
		out = *req.Output
	}
	return wm, out, nil
}

func (h *BatchHandler) handleSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		h.respondError(w, http.StatusBadRequest, "Invalid batch configuration", err)
	case errors.Is(err, template.ErrTemplateNotFound):
		h.respondError(w, http.StatusNotFound, "Template not found", nil)
	default:
		h.logger.Error().Err(err).Msg("Batch submission failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to submit batch", err)
	}
}

func (h *BatchHandler) handleLookupError(w http.ResponseWriter, err error, batchID string) {
	switch {
	case errors.Is(err, batches.ErrBatchNotFound):
		h.respondError(w, http.StatusNotFound, "Batch not found", nil)
	default:
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("Batch lookup failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to get batch", err)
	}
}

func (h *BatchHandler) handlePreviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		h.respondError(w, http.StatusBadRequest, "Invalid watermark config", err)
	case errors.Is(err, domain.ErrUnsupportedImageFormat):
		h.respondError(w, http.StatusUnsupportedMediaType, "Unsupported image format", nil)
	case errors.Is(err, domain.ErrInvalidImageDimensions):
		h.respondError(w, http.StatusBadRequest, "Invalid image dimensions", err)
	default:
		h.logger.Error().Err(err).Msg("Preview failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to render preview", err)
	}
}

func (h *BatchHandler) handleTemplateError(w http.ResponseWriter, err error, name string) {
	switch {
	case errors.Is(err, template.ErrTemplateNotFound):
		h.respondError(w, http.StatusNotFound, "Template not found", nil)
	default:
		h.logger.Error().Err(err).Str("template", name).Msg("Template operation failed")
		h.respondError(w, http.StatusInternalServerError, "Template operation failed", err)
	}
}

func toBatchResponse(b *domain.Batch) dto.BatchResponse {
	return dto.BatchResponse{
		ID:        b.ID,
		Status:    string(b.Status),
		Total:     b.Total,
		Completed: b.Completed,
		Succeeded: b.Succeeded,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (h *BatchHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Interface("data", data).Msg("Failed to encode response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *BatchHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil {
		response.Details = err.Error()
	}

	h.respondJSON(w, status, response)
}
