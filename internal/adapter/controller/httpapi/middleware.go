package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// jsonContentTypeMiddleware ensures request has JSON Content-Type for POST requests
func jsonContentTypeMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			contentType := r.Header.Get("Content-Type")
			if !strings.HasPrefix(contentType, "application/json") {
				respondError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next(w, r)
	}
}

// loggingMiddleware logs incoming requests
func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(lrw, r)

		s.logger.Info("%s %s - %d (%v)", r.Method, r.URL.Path, lrw.statusCode, time.Since(start))
	}
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Hijack delegates to the underlying ResponseWriter so WebSocket upgrades work
// through the logging middleware.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := lrw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondTriageError maps a use case error onto a status code
func respondTriageError(w http.ResponseWriter, err error) {
	var te triage.Error
	if !errors.As(err, &te) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, statusForCode(te.Code), ErrorResponse{
		Error:   te.Error(),
		Code:    te.Code,
		Details: te.Details,
	})
}

func statusForCode(code string) int {
	switch code {
	case triage.ErrInvalidRequest.Code, triage.ErrUnknownDecision.Code:
		return http.StatusBadRequest
	case triage.ErrNothingToResume.Code, triage.ErrApprovalNotFound.Code:
		return http.StatusNotFound
	case triage.ErrRunCompleted.Code:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
