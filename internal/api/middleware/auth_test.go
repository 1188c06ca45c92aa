package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
)

// fakeResolver — TenantResolver с фиксированной таблицей ключей.
type fakeResolver struct {
	keys map[string]string
}

func (f *fakeResolver) Resolve(_ context.Context, apiKey string) (string, error) {
	if name, ok := f.keys[apiKey]; ok {
		return name, nil
	}
	return "", repository.ErrNotFound
}

// brokenResolver — имитация сбоя инфраструктуры при разрешении ключа.
type brokenResolver struct{}

func (brokenResolver) Resolve(context.Context, string) (string, error) {
	return "", errors.New("БД недоступна")
}

func testAuth(resolver TenantResolver) *APIKeyAuth {
	return NewAPIKeyAuth(resolver, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// echoProject — обработчик, возвращающий проект из контекста.
func echoProject(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(ProjectFromContext(r.Context())))
}

// TestAPIKeyAuth_ValidKey проверяет пропуск запроса с действительным ключом
// и установку scope проекта в контекст.
func TestAPIKeyAuth_ValidKey(t *testing.T) {
	auth := testAuth(&fakeResolver{keys: map[string]string{"secret-key": "clinic-a"}})
	handler := auth.Middleware()(http.HandlerFunc(echoProject))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(HeaderAPIKey, "secret-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if rec.Body.String() != "clinic-a" {
		t.Errorf("scope проекта не установлен: %q", rec.Body.String())
	}
}

// TestAPIKeyAuth_MissingHeader проверяет 401 без заголовка.
func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	auth := testAuth(&fakeResolver{})
	handler := auth.Middleware()(http.HandlerFunc(echoProject))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался статус 401, получен %d", rec.Code)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	if body.Error.Code != "UNAUTHORIZED" {
		t.Errorf("ожидался код UNAUTHORIZED, получен %s", body.Error.Code)
	}
}

// TestAPIKeyAuth_UnknownKey проверяет 401 для неизвестного ключа.
func TestAPIKeyAuth_UnknownKey(t *testing.T) {
	auth := testAuth(&fakeResolver{keys: map[string]string{"secret-key": "clinic-a"}})
	handler := auth.Middleware()(http.HandlerFunc(echoProject))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(HeaderAPIKey, "wrong-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestAPIKeyAuth_ResolverFailure проверяет 500 при сбое инфраструктуры:
// сбой БД не должен выглядеть как недействительный ключ.
func TestAPIKeyAuth_ResolverFailure(t *testing.T) {
	auth := testAuth(brokenResolver{})
	handler := auth.Middleware()(http.HandlerFunc(echoProject))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(HeaderAPIKey, "any-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("ожидался статус 500, получен %d", rec.Code)
	}
}

// TestProjectFromContext_Empty проверяет пустой scope без middleware.
func TestProjectFromContext_Empty(t *testing.T) {
	if got := ProjectFromContext(context.Background()); got != "" {
		t.Errorf("ожидался пустой scope, получен %q", got)
	}
}
