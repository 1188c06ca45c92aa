package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dinkesmg/dinkes-media-storage/internal/api/handlers"
	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/config"
	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
	"github.com/dinkesmg/dinkes-media-storage/internal/service"
	"github.com/dinkesmg/dinkes-media-storage/internal/storage/filestore"
)

// memAssetRepo — in-memory реестр ассетов для сквозного теста маршрутов.
type memAssetRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*model.Asset
}

func (m *memAssetRepo) Create(_ context.Context, a *model.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now().UTC()
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *memAssetRepo) match(a *model.Asset, project string, mediaTypes []string) bool {
	return a.ProjectName == project &&
		(len(mediaTypes) == 0 || slices.Contains(mediaTypes, a.MediaType))
}

func (m *memAssetRepo) ListByProject(_ context.Context, project string, mediaTypes []string) ([]*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Asset
	for _, a := range m.items {
		if m.match(a, project, mediaTypes) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAssetRepo) GetByID(_ context.Context, id int64, project string, mediaTypes []string) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || !m.match(a, project, mediaTypes) {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAssetRepo) GetByToken(_ context.Context, token, project string) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.DownloadToken != nil && *a.DownloadToken == token && a.ProjectName == project {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAssetRepo) Delete(_ context.Context, id int64, project string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.ProjectName != project {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// memProjectRepo — in-memory справочник проектов.
type memProjectRepo struct {
	mu     sync.Mutex
	byName map[string]*model.Project
}

func (m *memProjectRepo) Create(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[p.Name]; ok {
		return repository.ErrDuplicate
	}
	p.CreatedAt = time.Now().UTC()
	cp := *p
	m.byName[p.Name] = &cp
	return nil
}

func (m *memProjectRepo) GetByName(_ context.Context, name string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProjectRepo) GetByAPIKey(_ context.Context, apiKey string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byName {
		if p.APIKey == apiKey {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProjectRepo) RotateKey(_ context.Context, name, newKey string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.APIKey = newKey
	cp := *p
	return &cp, nil
}

// testStack — полное дерево маршрутов над in-memory зависимостями.
type testStack struct {
	router http.Handler
	tenant *service.TenantService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		BaseURL:      "https://media.example.org",
		MaxImageSize: 2 << 20,
		MaxPDFSize:   3 << 20,
	}

	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}

	assetRepo := &memAssetRepo{items: make(map[int64]*model.Asset)}
	projectRepo := &memProjectRepo{byName: make(map[string]*model.Project)}

	tenants := service.NewTenantService(projectRepo, 128, time.Minute, logger)
	uploads := service.NewUploadService(cfg, store, assetRepo, logger)
	assets := service.NewAssetService(store, assetRepo, logger)
	downloads := service.NewDownloadService(store, assetRepo, logger)

	h := Handlers{
		Files:    handlers.NewFilesHandler(cfg, uploads, assets, logger),
		PDFs:     handlers.NewPDFsHandler(cfg, uploads, assets, downloads, logger),
		Projects: handlers.NewProjectsHandler(tenants, logger),
		Health:   handlers.NewHealthHandler(nil),
	}

	return &testStack{
		router: newRouter(logger, h, middleware.NewAPIKeyAuth(tenants, logger), store),
		tenant: tenants,
	}
}

// createProject создаёт проект через API и возвращает его API-ключ.
func (ts *testStack) createProject(t *testing.T, name string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"name": name})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader(body))
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("ошибка создания проекта: статус %d, тело %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	return resp.APIKey
}

// multipartUpload собирает multipart-запрос с полем file.
func multipartUpload(t *testing.T, url, apiKey, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("ошибка создания multipart-поля: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("ошибка записи multipart-данных: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("ошибка записи поля %s: %v", k, err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if apiKey != "" {
		req.Header.Set(middleware.HeaderAPIKey, apiKey)
	}
	return req
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatalf("ошибка кодирования JPEG: %v", err)
	}
	return buf.Bytes()
}

var testPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// TestRoutes_RequireAPIKey проверяет, что бизнес-маршруты закрыты gate'ом.
func TestRoutes_RequireAPIKey(t *testing.T) {
	ts := newTestStack(t)

	for _, path := range []string{"/files", "/pdfs-api"} {
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: ожидался статус 401, получен %d", path, rec.Code)
		}
	}
}

// TestRoutes_ImageLifecycle проверяет жизненный цикл публичного изображения:
// загрузка → статика → список → удаление.
func TestRoutes_ImageLifecycle(t *testing.T) {
	ts := newTestStack(t)
	apiKey := ts.createProject(t, "clinic-a")

	// Загрузка
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, multipartUpload(t, "/files/upload", apiKey, "фото.jpg", testJPEG(t), nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("ошибка загрузки: статус %d, тело %s", rec.Code, rec.Body.String())
	}

	var up struct {
		ID        int64   `json:"id"`
		IsPrivate bool    `json:"is_private"`
		URL       *string `json:"url"`
		Token     *string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&up); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	if up.IsPrivate || up.URL == nil || up.Token != nil {
		t.Fatalf("неожиданный ответ загрузки: %+v", up)
	}

	// Файл доступен через статику без аутентификации
	serverName := (*up.URL)[len("https://media.example.org/images/"):]
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/"+serverName, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("статика: ожидался статус 200, получен %d", rec.Code)
	}

	// Листинг публичного раздела закрыт
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("листинг раздела: ожидался статус 404, получен %d", rec.Code)
	}

	// Список проекта
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(middleware.HeaderAPIKey, apiKey)
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("список: ожидался статус 200, получен %d", rec.Code)
	}
	var list []json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("ошибка декодирования списка: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ожидался 1 ассет, получено %d", len(list))
	}

	// Удаление
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/files/1", nil)
	req.Header.Set(middleware.HeaderAPIKey, apiKey)
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("удаление: ожидался статус 200, получен %d", rec.Code)
	}

	// Файл исчез из статики
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/"+serverName, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("файл доступен после удаления: статус %d", rec.Code)
	}
}

// TestRoutes_PrivatePDFDownload проверяет скачивание приватного PDF по токену
// и cross-tenant изоляцию токена.
func TestRoutes_PrivatePDFDownload(t *testing.T) {
	ts := newTestStack(t)
	keyA := ts.createProject(t, "clinic-a")
	keyB := ts.createProject(t, "clinic-b")

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, multipartUpload(t, "/pdfs-api/upload", keyA, "договор.pdf", testPDF,
		map[string]string{"is_private": "true"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("ошибка загрузки: статус %d, тело %s", rec.Code, rec.Body.String())
	}

	var up struct {
		Token       *string `json:"token"`
		URL         *string `json:"url"`
		DownloadURL *string `json:"download_url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&up); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	if up.Token == nil || up.URL != nil || up.DownloadURL == nil {
		t.Fatalf("неожиданный ответ загрузки: %+v", up)
	}

	// Скачивание владельцем
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pdfs-api/download/"+*up.Token, nil)
	req.Header.Set(middleware.HeaderAPIKey, keyA)
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("скачивание: ожидался статус 200, получен %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), testPDF) {
		t.Error("содержимое скачанного PDF не совпадает")
	}

	// Тот же токен с ключом другого проекта — 404
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/pdfs-api/download/"+*up.Token, nil)
	req.Header.Set(middleware.HeaderAPIKey, keyB)
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("чужой токен: ожидался статус 404, получен %d", rec.Code)
	}
}

// TestRoutes_DeleteUnknownID проверяет success=false для несуществующего id.
func TestRoutes_DeleteUnknownID(t *testing.T) {
	ts := newTestStack(t)
	apiKey := ts.createProject(t, "clinic-a")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/files/999", nil)
	req.Header.Set(middleware.HeaderAPIKey, apiKey)
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	if resp.Success {
		t.Error("ожидалось success=false для несуществующего id")
	}
}

// TestRoutes_HealthLive проверяет liveness probe.
func TestRoutes_HealthLive(t *testing.T) {
	ts := newTestStack(t)

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
}

// TestRoutes_ProjectRotation проверяет ротацию ключа через API:
// старый ключ перестаёт действовать.
func TestRoutes_ProjectRotation(t *testing.T) {
	ts := newTestStack(t)
	oldKey := ts.createProject(t, "clinic-a")

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/projects/clinic-a/api-key", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ротация: ожидался статус 200, получен %d", rec.Code)
	}
	var resp struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}

	// Старый ключ — 401, новый работает
	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(middleware.HeaderAPIKey, oldKey)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("старый ключ: ожидался статус 401, получен %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(middleware.HeaderAPIKey, resp.APIKey)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("новый ключ: ожидался статус 200, получен %d", rec.Code)
	}
}
