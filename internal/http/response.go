package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ngocanhtran/product-catalog/internal/http/apierr"
)

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding response", slog.Any("error", err))
	}
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorResponse(w, r, err, apierr.New(err))
}

// writeFormError is writeError plus an echo of the submitted values so the
// form can be re-rendered with the original input.
func (s *Service) writeFormError(w http.ResponseWriter, r *http.Request, err error, values map[string]string) {
	res := apierr.New(err)
	res.Values = values
	s.writeErrorResponse(w, r, err, res)
}

func (s *Service) writeErrorResponse(w http.ResponseWriter, r *http.Request, err error, res apierr.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response", slog.Any("error", err))
	}
}
