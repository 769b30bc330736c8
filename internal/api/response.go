package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"churn_service/internal/core"
	"churn_service/internal/domain/repository"
	"churn_service/internal/ingest"
)

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	requestIDHeader            = "X-Request-Id"
)

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// writeJSON encodes body before touching the response, so an unencodable
// value becomes a 500 envelope instead of a success status with no body.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		requestID := w.Header().Get(requestIDHeader)
		h.logger.Error("Failed to encode response",
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.Error(err))
		status = http.StatusInternalServerError
		payload, _ = json.Marshal(ErrorResponse{
			Status: "error",
			Error:  ErrorPayload{Code: "internal_error", Message: "failed to encode response", RequestID: requestID},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(payload, '\n')); err != nil {
		h.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (h *Handler) writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	h.writeJSON(w, status, SuccessResponse{Status: "success", Message: message, Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	h.writeJSON(w, status, ErrorResponse{
		Status: "error",
		Error:  ErrorPayload{Code: code, Message: message, RequestID: requestID},
	})
}

func mapDomainError(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	var rowErr *ingest.RowError
	switch {
	case errors.Is(err, core.ErrIdenticalDataset):
		return http.StatusConflict, "identical_dataset"
	case errors.Is(err, core.ErrInvalidComparison):
		return http.StatusUnprocessableEntity, "invalid_comparison"
	case errors.Is(err, repository.ErrSnapshotNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrSnapshotExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, core.ErrEmptyDataset), errors.Is(err, ingest.ErrMissingColumn), errors.As(err, &rowErr):
		return http.StatusBadRequest, "invalid_dataset"
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, core.ErrNoModels):
		return http.StatusNotFound, "no_models"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
