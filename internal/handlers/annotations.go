package handlers

import (
	"net/http"
	"strconv"

	"contours/internal/dto"
	"contours/internal/logger"
	"contours/internal/services"
)

// AddAnnotationsHandler annotates regions: body {"indices":[...]}.
func AddAnnotationsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return indicesHandler(manager.Add, manager, logger)
}

// RemoveAnnotationsHandler drops annotations: body {"indices":[...]}.
func RemoveAnnotationsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return indicesHandler(manager.Remove, manager, logger)
}

// SelectionHandler replaces the highlighted regions: body {"indices":[...]}.
func SelectionHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return indicesHandler(manager.Select, manager, logger)
}

func indicesHandler(op func([]int) error, manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.IndicesRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body: " + err.Error()}, logger)
			return
		}

		if err := op(req.Indices); err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, manager.Snapshot(), logger)
	}
}

// RelabelHandler renames one annotation: body {"index":n,"label":"..."}.
func RelabelHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.RelabelRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body: " + err.Error()}, logger)
			return
		}

		if err := manager.Relabel(req.Index, req.Label); err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, manager.Snapshot(), logger)
	}
}

// SaveAnnotationsHandler persists the annotations of the open image.
func SaveAnnotationsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		if err := manager.Save(); err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, manager.Snapshot(), logger)
	}
}

// ContoursVisibleHandler toggles outlines and highlights: POST ?show=true|false
func ContoursVisibleHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		show, err := strconv.ParseBool(r.URL.Query().Get("show"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "show must be true or false"}, logger)
			return
		}

		manager.SetShowContours(show)
		writeJSON(w, http.StatusOK, manager.Snapshot(), logger)
	}
}
