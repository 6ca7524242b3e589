package app

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"contours/internal/config"
	"contours/internal/logger"
	"contours/internal/repository/sqlite"
	"contours/internal/routes"
	"contours/internal/services"
	"contours/internal/services/storage"
	"contours/internal/services/vision/cv"
	"contours/internal/services/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	repository *sqlite.AnnotationRepository
	hubService *websocket.HubService
	manager    *services.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	repo := sqlite.NewAnnotationRepository(db)

	extractor := cv.NewContourExtractor(cfg.DetectionParams())
	log.Info("Detection params: %+v", extractor.Params())
	images := storage.NewImageService(cfg.ImageDirectory, log)
	hub := websocket.NewHubService(log)

	mng := services.NewManager(extractor, repo, images, hub, cfg, log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		repository: repo,
		hubService: hub,
		manager:    mng,
	}, nil
}

func (a *App) Run() error {
	defer a.db.Close()

	go a.hubService.Run()
	defer a.hubService.Stop()

	router := routes.SetupRoutes(a.manager, a.repository, a.config, a.logger)

	fmt.Printf("🖍️  Contour Annotation Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Images: %s\n", a.config.ImageDirectory)
	fmt.Printf("🗄️  Database: %s\n", a.config.DatabasePath)

	return http.ListenAndServe(fmt.Sprintf(":%d", a.config.Port), router)
}
