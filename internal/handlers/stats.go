package handlers

import (
	"net/http"

	"contours/internal/logger"
	"contours/internal/repository"
)

// StatsHandler returns statistics about stored annotations.
func StatsHandler(repo repository.AnnotationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		stats, err := repo.GetStats()
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats, logger)
	}
}
