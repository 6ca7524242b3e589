package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"contours/internal/dto"
	"contours/internal/logger"
	"contours/internal/services"
)

const maxUploadSize = 32 << 20

// ImagesHandler lists stored images (GET) or uploads and opens a new one (POST,
// multipart field "image", optional form value force=true).
func ImagesHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			images, err := manager.ListImages()
			if err != nil {
				writeError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, images, logger)

		case http.MethodPost:
			uploadImage(manager, logger, w, r)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func uploadImage(manager *services.Manager, logger *logger.Logger, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: fmt.Sprintf("invalid upload: %v", err)}, logger)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "image file is required"}, logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: fmt.Sprintf("failed to read upload: %v", err)}, logger)
		return
	}

	if _, err := manager.UploadImage(header.Filename, data, parseBool(r.FormValue("force"))); err != nil {
		writeError(w, err, logger)
		return
	}
	writeJSON(w, http.StatusCreated, manager.Snapshot(), logger)
}

// OpenImageHandler opens a stored image: POST /api/images/open?name=&force=
func OpenImageHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		q := r.URL.Query()
		name := q.Get("name")
		if name == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "name parameter is required"}, logger)
			return
		}

		if err := manager.OpenImage(name, parseBool(q.Get("force"))); err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, manager.Snapshot(), logger)
	}
}

// CloseImageHandler unloads the open image: POST /api/images/close?force=
func CloseImageHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		if err := manager.CloseImage(parseBool(r.URL.Query().Get("force"))); err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, manager.Snapshot(), logger)
	}
}

// SessionHandler returns the current session snapshot.
func SessionHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, manager.Snapshot(), logger)
	}
}

// OverlayHandler serves one rendered layer as PNG: GET /api/overlay?layer=
func OverlayHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		layer := r.URL.Query().Get("layer")
		if layer == "" {
			layer = services.LayerComposite
		}

		data, err := manager.Overlay(layer)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(data)
	}
}

// parseBool treats anything strconv cannot parse as false.
func parseBool(s string) bool {
	v, err := strconv.ParseBool(s)
	return err == nil && v
}
