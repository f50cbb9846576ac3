package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/ocrserver/internal/models"
	"github.com/lehigh-university-libraries/ocrserver/internal/ocr"
	"github.com/lehigh-university-libraries/ocrserver/internal/payload"
)

const previewLen = 64

func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.RootStatus{Message: "OCR service is running"})
}

func (h *Handler) HandleOCRStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.OCRStatus{Status: "OCR endpoint is working"})
}

// HandleOCR decodes the posted image and returns the recognized text
func (h *Handler) HandleOCR(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var request models.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, fmt.Sprintf("Request body too large (max %d bytes)", maxErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.Image == "" {
		h.writeError(w, "image is required", http.StatusBadRequest)
		return
	}

	slog.Info("Received image", "length", len(request.Image))
	slog.Debug("Received image payload", "preview", preview(request.Image))

	imageBytes, err := payload.Decode(request.Image)
	if err != nil {
		h.writeError(w, decodeDetail(err), statusFor(err))
		return
	}

	result, err := h.recognizer.Recognize(r.Context(), imageBytes)
	if err != nil {
		h.writeError(w, recognitionDetail(err), statusFor(err))
		return
	}

	slog.Info("OCR result", "result", result)
	h.writeJSON(w, http.StatusOK, models.RecognitionResult{Result: result})
}

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, payload.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, ocr.ErrRecognition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func recognitionDetail(err error) string {
	if errors.Is(err, ocr.ErrEmptyResult) {
		return "OCR recognition failed, no result returned."
	}
	return err.Error()
}

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[:previewLen] + "..."
}

func decodeDetail(err error) string {
	cause := strings.TrimPrefix(err.Error(), payload.ErrDecode.Error())
	return "Base64 decoding failed" + cause
}
