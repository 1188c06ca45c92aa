// projects.go — административные обработчики управления проектами.
// API-ключ возвращается в открытом виде только при создании и ротации.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/dinkesmg/dinkes-media-storage/internal/api/errors"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
	"github.com/dinkesmg/dinkes-media-storage/internal/service"
)

// projectNameRe — допустимые имена проектов: строчные латинские буквы,
// цифры, дефис и подчёркивание, 2-64 символа.
var projectNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,63}$`)

// ProjectsHandler — обработчик административных endpoints проектов.
type ProjectsHandler struct {
	tenants *service.TenantService
	logger  *slog.Logger
}

// NewProjectsHandler создаёт обработчик endpoints проектов.
func NewProjectsHandler(tenants *service.TenantService, logger *slog.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		tenants: tenants,
		logger:  logger.With(slog.String("component", "projects_handler")),
	}
}

// createProjectRequest — тело запроса создания проекта.
type createProjectRequest struct {
	Name string `json:"name"`
}

// projectResponse — представление проекта в ответах.
// APIKey присутствует только в ответах создания и ротации.
type projectResponse struct {
	Name      string `json:"name"`
	APIKey    string `json:"api_key,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Create — POST /projects. Создаёт проект и выдаёт API-ключ.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if !projectNameRe.MatchString(req.Name) {
		apierrors.ValidationError(w, "Недопустимое имя проекта: строчные латинские буквы, цифры, '-', '_', 2-64 символа")
		return
	}

	p, err := h.tenants.CreateProject(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			apierrors.WriteError(w, http.StatusConflict, "DUPLICATE", "Проект с таким именем уже существует")
			return
		}
		h.logger.Error("Ошибка создания проекта",
			slog.String("project", req.Name),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось создать проект")
		return
	}

	writeJSON(w, http.StatusCreated, projectResponse{
		Name:      p.Name,
		APIKey:    p.APIKey,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Get — GET /projects/{name}. Возвращает проект без API-ключа.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	p, err := h.tenants.GetProject(r.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Проект не найден")
			return
		}
		h.logger.Error("Ошибка получения проекта",
			slog.String("project", name),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось получить проект")
		return
	}

	writeJSON(w, http.StatusOK, projectResponse{
		Name:      p.Name,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// RotateKey — PATCH /projects/{name}/api-key. Атомарно заменяет API-ключ;
// старый ключ перестаёт действовать немедленно.
func (h *ProjectsHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	p, err := h.tenants.RotateKey(r.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Проект не найден")
			return
		}
		h.logger.Error("Ошибка ротации API-ключа",
			slog.String("project", name),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось заменить API-ключ")
		return
	}

	writeJSON(w, http.StatusOK, projectResponse{
		Name:      p.Name,
		APIKey:    p.APIKey,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	})
}
