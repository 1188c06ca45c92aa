package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/storage/filestore"
)

func newDownloadStack(t *testing.T) (*DownloadService, *fakeAssetRepo, *filestore.Store) {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}
	repo := newFakeAssetRepo()
	return NewDownloadService(store, repo, testLogger()), repo, store
}

// TestServeByToken_Success проверяет выдачу приватного файла по токену.
func TestServeByToken_Success(t *testing.T) {
	svc, repo, store := newDownloadStack(t)
	a := seedAsset(t, repo, store, "clinic-a", model.VisibilityPrivate, model.MimePDF, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pdfs-api/download/"+*a.DownloadToken, nil)

	if serr := svc.ServeByToken(rec, req, *a.DownloadToken, "clinic-a"); serr != nil {
		t.Fatalf("ошибка скачивания: %v", serr)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != model.MimePDF {
		t.Errorf("Content-Type: ожидался %s, получен %s", model.MimePDF, got)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Errorf("Content-Disposition без attachment: %s", cd)
	}
	if rec.Body.String() != "содержимое" {
		t.Error("тело ответа не совпадает с содержимым файла")
	}
}

// TestServeByToken_EncodesOriginalFilename проверяет URL-кодирование
// оригинального имени в Content-Disposition.
func TestServeByToken_EncodesOriginalFilename(t *testing.T) {
	svc, repo, store := newDownloadStack(t)
	a := seedAsset(t, repo, store, "clinic-a", model.VisibilityPrivate, model.MimePDF, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	if serr := svc.ServeByToken(rec, req, *a.DownloadToken, "clinic-a"); serr != nil {
		t.Fatalf("ошибка скачивания: %v", serr)
	}

	// Оригинальное имя кириллическое ("исходник") — в заголовке только
	// процентное кодирование, сырых не-ASCII байт быть не должно
	cd := rec.Header().Get("Content-Disposition")
	for _, r := range cd {
		if r > 127 {
			t.Fatalf("Content-Disposition содержит не-ASCII символы: %s", cd)
		}
	}
	if !strings.Contains(cd, "%D0%B8%D1%81%D1%85%D0%BE%D0%B4%D0%BD%D0%B8%D0%BA") {
		t.Errorf("оригинальное имя не закодировано: %s", cd)
	}
}

// TestServeByToken_UnknownToken проверяет 404 для несуществующего токена.
func TestServeByToken_UnknownToken(t *testing.T) {
	svc, _, _ := newDownloadStack(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	serr := svc.ServeByToken(rec, req, "нет-такого-токена", "clinic-a")
	if serr == nil {
		t.Fatal("ожидалась ошибка")
	}
	if serr.StatusCode != http.StatusNotFound {
		t.Errorf("ожидался статус 404, получен %d", serr.StatusCode)
	}
}

// TestServeByToken_CrossProject проверяет, что действительный токен чужого
// проекта неотличим от несуществующего.
func TestServeByToken_CrossProject(t *testing.T) {
	svc, repo, store := newDownloadStack(t)
	a := seedAsset(t, repo, store, "clinic-a", model.VisibilityPrivate, model.MimePDF, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	serr := svc.ServeByToken(rec, req, *a.DownloadToken, "clinic-b")
	if serr == nil {
		t.Fatal("ожидалась ошибка для чужого проекта")
	}
	if serr.StatusCode != http.StatusNotFound {
		t.Errorf("ожидался статус 404, получен %d", serr.StatusCode)
	}
}

// TestServeByToken_MissingFile проверяет деградацию: запись без файла — 404,
// а не пустой успешный ответ.
func TestServeByToken_MissingFile(t *testing.T) {
	svc, repo, store := newDownloadStack(t)
	a := seedAsset(t, repo, store, "clinic-a", model.VisibilityPrivate, model.MimePDF, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	serr := svc.ServeByToken(rec, req, *a.DownloadToken, "clinic-a")
	if serr == nil {
		t.Fatal("ожидалась ошибка при отсутствии файла")
	}
	if serr.StatusCode != http.StatusNotFound {
		t.Errorf("ожидался статус 404, получен %d", serr.StatusCode)
	}
}
