package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/ocrserver/internal/models"
)

// Recognizer turns raw image bytes into text
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (string, error)
}

type Handler struct {
	recognizer   Recognizer
	maxBodyBytes int64
}

const defaultMaxBodyBytes = 10 * 1024 * 1024

// New returns handlers bound to an already initialized recognizer
func New(recognizer Recognizer, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{
		recognizer:   recognizer,
		maxBodyBytes: maxBodyBytes,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Warn(message, "status", code)
	}
	h.writeJSON(w, code, models.ErrorResponse{Detail: message})
}
