package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// NewRouter registers the OCR routes. Wrong methods on known paths get 405
// from mux.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(accessLog)

	router.HandleFunc("/", h.HandleRoot).Methods(http.MethodGet)
	router.HandleFunc("/ocr", h.HandleOCRStatus).Methods(http.MethodGet)
	router.HandleFunc("/ocr/", h.HandleOCRStatus).Methods(http.MethodGet)
	router.HandleFunc("/ocr", h.HandleOCR).Methods(http.MethodPost)
	router.HandleFunc("/ocr/", h.HandleOCR).Methods(http.MethodPost)
	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	}).Methods(http.MethodGet)

	slog.Debug("Registered all API routes")
	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}
