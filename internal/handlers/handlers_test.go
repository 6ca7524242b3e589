package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"contours/internal/config"
	"contours/internal/dto"
	"contours/internal/logger"
	"contours/internal/models"
	"contours/internal/repository"
	"contours/internal/repository/sqlite"
	"contours/internal/services"
	"contours/internal/services/session"
	"contours/internal/services/storage"
	"contours/internal/services/vision"
)

// ========================================
// Test Setup Helpers
// ========================================

type stubExtractor struct{}

func (stubExtractor) Extract(vision.PixelBuffer) ([]vision.Region, error) {
	return []vision.Region{
		{image.Pt(1, 1), image.Pt(1, 8), image.Pt(8, 8), image.Pt(8, 1)},
		{image.Pt(12, 1), image.Pt(12, 8), image.Pt(18, 8), image.Pt(18, 1)},
		{image.Pt(1, 12), image.Pt(1, 18), image.Pt(8, 18), image.Pt(8, 12)},
	}, nil
}

type testEnv struct {
	manager *services.Manager
	repo    *sqlite.AnnotationRepository
	db      *sqlite.DB
	logger  *logger.Logger
	cfg     *config.Config
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Password:       "secret",
		ImageDirectory: filepath.Join(dir, "images"),
		LogDirectory:   filepath.Join(dir, "logs"),
		MaxImageHeight: 800,
	}
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewAnnotationRepository(db)
	images := storage.NewImageService(cfg.ImageDirectory, log)
	mng := services.NewManager(stubExtractor{}, repo, images, nil, cfg, log)

	return &testEnv{manager: mng, repo: repo, db: db, logger: log, cfg: cfg}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(5, 5, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, data []byte, force bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(data)
	if force {
		mw.WriteField("force", "true")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) dto.SessionState {
	t.Helper()
	var state dto.SessionState
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode session state: %v", err)
	}
	return state
}

func (e *testEnv) upload(t *testing.T, name string) {
	t.Helper()
	rr := httptest.NewRecorder()
	ImagesHandler(e.manager, e.logger).ServeHTTP(rr, uploadRequest(t, name, testPNG(t), false))
	if rr.Code != http.StatusCreated {
		t.Fatalf("Upload of %s failed: %d %s", name, rr.Code, rr.Body.String())
	}
}

// ========================================
// Images
// ========================================

func TestImagesHandler_UploadAndList(t *testing.T) {
	env := setupTestEnv(t)
	handler := ImagesHandler(env.manager, env.logger)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, uploadRequest(t, "leaf.png", testPNG(t), false))
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	state := decodeState(t, rr)
	if state.Image != "leaf.png" || len(state.Regions) != 3 {
		t.Errorf("Unexpected state after upload: %+v", state)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var images []storage.StoredImage
	json.NewDecoder(rr.Body).Decode(&images)
	if len(images) != 1 || images[0].Name != "leaf.png" {
		t.Errorf("Expected stored leaf.png, got %+v", images)
	}
}

func TestImagesHandler_BadUploads(t *testing.T) {
	env := setupTestEnv(t)
	handler := ImagesHandler(env.manager, env.logger)

	tests := []struct {
		name     string
		req      *http.Request
		expected int
	}{
		{"not multipart", httptest.NewRequest(http.MethodPost, "/api/images", strings.NewReader("x")), http.StatusBadRequest},
		{"not an image", uploadRequest(t, "a.png", []byte("garbage"), false), http.StatusBadRequest},
		{"bad extension", uploadRequest(t, "a.gif", testPNG(t), false), http.StatusBadRequest},
		{"wrong method", httptest.NewRequest(http.MethodDelete, "/api/images", nil), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, tt.req)
		if rr.Code != tt.expected {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.expected, rr.Code)
		}
	}
}

func TestOpenImageHandler(t *testing.T) {
	env := setupTestEnv(t)
	env.upload(t, "a.png")
	env.upload(t, "b.png")
	handler := OpenImageHandler(env.manager, env.logger)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/images/open?name=a.png", nil))
	if rr.Code != http.StatusOK || decodeState(t, rr).Image != "a.png" {
		t.Fatalf("Expected a.png to open, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/images/open", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Missing name: expected %d, got %d", http.StatusBadRequest, rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/images/open?name=missing.png", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Missing image: expected %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestOpenImageHandler_UnsavedChanges(t *testing.T) {
	env := setupTestEnv(t)
	env.upload(t, "a.png")
	env.upload(t, "b.png")
	env.manager.Add([]int{0})

	rr := httptest.NewRecorder()
	OpenImageHandler(env.manager, env.logger).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/images/open?name=a.png", nil))
	if rr.Code != http.StatusConflict {
		t.Fatalf("Expected status %d, got %d", http.StatusConflict, rr.Code)
	}

	rr = httptest.NewRecorder()
	OpenImageHandler(env.manager, env.logger).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/images/open?name=a.png&force=true", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Forced open: expected %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestCloseImageHandler(t *testing.T) {
	env := setupTestEnv(t)
	env.upload(t, "a.png")
	env.manager.Add([]int{0})
	handler := CloseImageHandler(env.manager, env.logger)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/images/close", nil))
	if rr.Code != http.StatusConflict {
		t.Fatalf("Expected status %d, got %d", http.StatusConflict, rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/images/close?force=true", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Forced close: expected %d, got %d", http.StatusOK, rr.Code)
	}
	state := decodeState(t, rr)
	if state.Loaded || state.Image != "" || len(state.Regions) != 0 {
		t.Errorf("Expected unloaded session, got %+v", state)
	}

	rr = httptest.NewRecorder()
	OverlayHandler(env.manager, env.logger).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/overlay", nil))
	if rr.Code != http.StatusConflict {
		t.Errorf("Overlay after close: expected %d, got %d", http.StatusConflict, rr.Code)
	}
}

// ========================================
// Annotations
// ========================================

func TestAnnotationFlow(t *testing.T) {
	env := setupTestEnv(t)
	env.upload(t, "fruit.png")

	steps := []struct {
		name     string
		handler  http.HandlerFunc
		req      *http.Request
		expected int
	}{
		{"add", AddAnnotationsHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/api/annotations/add", `{"indices":[1,2]}`), http.StatusOK},
		{"add again", AddAnnotationsHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/api/annotations/add", `{"indices":[1]}`), http.StatusOK},
		{"relabel", RelabelHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/api/annotations/relabel", `{"index":1,"label":"Apple"}`), http.StatusOK},
		{"remove", RemoveAnnotationsHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/api/annotations/remove", `{"indices":[2]}`), http.StatusOK},
		{"save", SaveAnnotationsHandler(env.manager, env.logger), httptest.NewRequest(http.MethodPost, "/api/annotations/save", nil), http.StatusOK},
	}

	for _, step := range steps {
		rr := httptest.NewRecorder()
		step.handler.ServeHTTP(rr, step.req)
		if rr.Code != step.expected {
			t.Fatalf("%s: expected status %d, got %d: %s", step.name, step.expected, rr.Code, rr.Body.String())
		}
		t.Logf("%s: ok", step.name)
	}

	entries, err := env.repo.Fetch("fruit.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(entries) != 1 || entries[0] != (models.AnnotationEntry{Number: 1, Name: "Apple"}) {
		t.Errorf("Expected stored {1: Apple}, got %v", entries)
	}

	state := env.manager.Snapshot()
	if state.Dirty {
		t.Error("Expected clean state after save")
	}
	if len(state.Annotations) != 1 || state.Annotations[0].Color != vision.ColorFor(1, 255).Hex() {
		t.Errorf("Unexpected annotations: %+v", state.Annotations)
	}
}

func TestAnnotationHandlers_Errors(t *testing.T) {
	env := setupTestEnv(t)

	rr := httptest.NewRecorder()
	AddAnnotationsHandler(env.manager, env.logger).ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/annotations/add", `{"indices":[0]}`))
	if rr.Code != http.StatusConflict {
		t.Errorf("Add without image: expected %d, got %d", http.StatusConflict, rr.Code)
	}

	env.upload(t, "a.png")

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		req      *http.Request
		expected int
	}{
		{"invalid index", AddAnnotationsHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/", `{"indices":[3]}`), http.StatusBadRequest},
		{"bad json", AddAnnotationsHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/", `{"indices":`), http.StatusBadRequest},
		{"unknown field", RemoveAnnotationsHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/", `{"idx":[0]}`), http.StatusBadRequest},
		{"not annotated", RelabelHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/", `{"index":0,"label":"x"}`), http.StatusBadRequest},
		{"wrong method", SaveAnnotationsHandler(env.manager, env.logger), httptest.NewRequest(http.MethodGet, "/", nil), http.StatusMethodNotAllowed},
		{"bad show", ContoursVisibleHandler(env.manager, env.logger), httptest.NewRequest(http.MethodPost, "/?show=maybe", nil), http.StatusBadRequest},
		{"bad selection", SelectionHandler(env.manager, env.logger), jsonRequest(http.MethodPost, "/", `{"indices":[-1]}`), http.StatusBadRequest},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		tt.handler.ServeHTTP(rr, tt.req)
		if rr.Code != tt.expected {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.expected, rr.Code)
		}
	}
}

func TestSaveHandler_StoreFailure(t *testing.T) {
	env := setupTestEnv(t)
	env.upload(t, "a.png")
	env.manager.Add([]int{0})
	env.db.Close()

	rr := httptest.NewRecorder()
	SaveAnnotationsHandler(env.manager, env.logger).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/annotations/save", nil))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("Expected status %d, got %d", http.StatusBadGateway, rr.Code)
	}
	if !env.manager.Snapshot().Dirty {
		t.Error("Failed save must leave the session dirty")
	}
}

func TestSelectionAndVisibility(t *testing.T) {
	env := setupTestEnv(t)
	env.upload(t, "a.png")

	rr := httptest.NewRecorder()
	SelectionHandler(env.manager, env.logger).ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/selection", `{"indices":[2]}`))
	if state := decodeState(t, rr); len(state.Selection) != 1 || state.Selection[0] != 2 {
		t.Errorf("Expected selection [2], got %v", state.Selection)
	}

	rr = httptest.NewRecorder()
	ContoursVisibleHandler(env.manager, env.logger).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/contours/visible?show=false", nil))
	if state := decodeState(t, rr); state.ShowContours {
		t.Error("Expected contours hidden")
	}
}

func TestOverlayHandler(t *testing.T) {
	env := setupTestEnv(t)
	handler := OverlayHandler(env.manager, env.logger)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/overlay", nil))
	if rr.Code != http.StatusConflict {
		t.Errorf("Overlay without image: expected %d, got %d", http.StatusConflict, rr.Code)
	}

	env.upload(t, "a.png")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/overlay?layer=outlines", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if _, err := png.Decode(rr.Body); err != nil {
		t.Errorf("Response is not a PNG: %v", err)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/overlay?layer=bogus", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Unknown layer: expected %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	env := setupTestEnv(t)
	env.repo.Put("a.png", map[int]string{0: "leaf", 1: "leaf"})

	rr := httptest.NewRecorder()
	StatsHandler(env.repo, env.logger).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/annotations/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var stats models.AnnotationStats
	json.NewDecoder(rr.Body).Decode(&stats)
	if stats.AnnotatedImages != 1 || stats.LabelCounts["leaf"] != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

// ========================================
// Error mapping and logs
// ========================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{&session.InvalidIndexError{Index: 4, Count: 2}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", session.ErrNotAnnotated), http.StatusBadRequest},
		{services.ErrUnsavedChanges, http.StatusConflict},
		{session.ErrNotLoaded, http.StatusConflict},
		{fmt.Errorf("%w: closed", repository.ErrConnection), http.StatusBadGateway},
		{fmt.Errorf("%w: bad", repository.ErrQuery), http.StatusBadGateway},
		{fmt.Errorf("read: %w", os.ErrNotExist), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.expected {
			t.Errorf("statusFor(%v) = %d, expected %d", tt.err, got, tt.expected)
		}
	}
}

func TestLogHandlers(t *testing.T) {
	env := setupTestEnv(t)
	env.logger.Warning("region 9 not detected")

	rr := httptest.NewRecorder()
	ShowLogsHandler(env.logger, "warning.log").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "region 9 not detected") {
		t.Errorf("Unexpected log response: %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	ClearLogsHandler(env.logger, "warning.log").ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	data, _ := os.ReadFile(filepath.Join(env.cfg.LogDirectory, "warning.log"))
	if len(data) != 0 {
		t.Errorf("Expected cleared warning log, got %q", data)
	}
}

func TestParseClick(t *testing.T) {
	event, err := parseClick([]byte(`{"button":"secondary","x":4,"y":7}`))
	if err != nil {
		t.Fatalf("parseClick failed: %v", err)
	}
	if event.Pos != image.Pt(4, 7) || event.Button.String() != "secondary" {
		t.Errorf("Unexpected event: %+v", event)
	}

	if _, err := parseClick([]byte(`{"button":"middle"}`)); err == nil {
		t.Error("Expected error for unknown button")
	}
	if _, err := parseClick([]byte(`nope`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
