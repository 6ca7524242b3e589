package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"contours/internal/config"
	"contours/internal/handlers"
	"contours/internal/logger"
	"contours/internal/middleware"
	"contours/internal/repository"
	"contours/internal/services"
)

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware when enabled.
func SetupRoutes(manager *services.Manager, repo repository.AnnotationRepository, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Images and session
	mux.HandleFunc("/api/images", handlers.ImagesHandler(manager, logger))
	mux.HandleFunc("/api/images/open", handlers.OpenImageHandler(manager, logger))
	mux.HandleFunc("/api/images/close", handlers.CloseImageHandler(manager, logger))
	mux.HandleFunc("/api/session", handlers.SessionHandler(manager, logger))
	mux.HandleFunc("/api/overlay", handlers.OverlayHandler(manager, logger))
	mux.HandleFunc("/api/surface", handlers.SurfaceWebsocketHandler(manager, logger))

	// Annotation editing
	mux.HandleFunc("/api/annotations/add", handlers.AddAnnotationsHandler(manager, logger))
	mux.HandleFunc("/api/annotations/remove", handlers.RemoveAnnotationsHandler(manager, logger))
	mux.HandleFunc("/api/annotations/relabel", handlers.RelabelHandler(manager, logger))
	mux.HandleFunc("/api/annotations/save", handlers.SaveAnnotationsHandler(manager, logger))
	mux.HandleFunc("/api/annotations/stats", handlers.StatsHandler(repo, logger))
	mux.HandleFunc("/api/selection", handlers.SelectionHandler(manager, logger))
	mux.HandleFunc("/api/contours/visible", handlers.ContoursVisibleHandler(manager, logger))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		file := level + ".log"
		mux.HandleFunc("/logs/"+level, handlers.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+level+"/clear", handlers.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handlers.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)

	// Automatic HTML handler mapping for example: /login -> /static/login.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	if !cfg.AuthEnabled {
		return mux
	}
	return middleware.AuthMiddleware(cfg.Password, mux)
}
