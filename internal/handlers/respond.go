package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"contours/internal/dto"
	"contours/internal/logger"
	"contours/internal/repository"
	"contours/internal/services"
	"contours/internal/services/session"
	"contours/internal/services/storage"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError maps err to a status code and writes it as an ErrorResponse.
func writeError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()}, logger)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidIndex),
		errors.Is(err, session.ErrNotAnnotated),
		errors.Is(err, services.ErrInvalidImage),
		errors.Is(err, services.ErrUnknownLayer),
		errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnsavedChanges),
		errors.Is(err, session.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConnection),
		errors.Is(err, repository.ErrQuery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
