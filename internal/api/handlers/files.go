// files.go — обработчики API изображений (/files).
// Все endpoints работают в scope проекта, разрешённого middleware
// аутентификации; выборки ограничены MIME-типами изображений.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/dinkesmg/dinkes-media-storage/internal/api/errors"
	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/config"
	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
	"github.com/dinkesmg/dinkes-media-storage/internal/service"
)

// imageMediaTypes — scope выборок endpoints изображений.
var imageMediaTypes = []string{model.MimeJPEG, model.MimePNG}

// uploadResponse — ответ на загрузку ассета.
type uploadResponse struct {
	Message   string  `json:"message"`
	ID        int64   `json:"id"`
	IsPrivate bool    `json:"is_private"`
	URL       *string `json:"url"`
	Token     *string `json:"token"`
	// DownloadURL — готовая ссылка скачивания по токену (только PDF)
	DownloadURL *string `json:"download_url,omitempty"`
}

// deleteResponse — ответ на удаление ассета.
type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FilesHandler — обработчик endpoints изображений.
type FilesHandler struct {
	cfg     *config.Config
	uploads *service.UploadService
	assets  *service.AssetService
	logger  *slog.Logger
}

// NewFilesHandler создаёт обработчик endpoints изображений.
func NewFilesHandler(cfg *config.Config, uploads *service.UploadService, assets *service.AssetService, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		cfg:     cfg,
		uploads: uploads,
		assets:  assets,
		logger:  logger.With(slog.String("component", "files_handler")),
	}
}

// Upload — POST /files/upload. Multipart: file (обязательно),
// is_private (опционально), uploaded_by (опционально).
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := readUpload(w, r, h.cfg.MaxImageSize)
	if !ok {
		return
	}

	asset, serr := h.uploads.Upload(r.Context(), service.UploadParams{
		Data:             data,
		OriginalFilename: filename,
		Category:         model.CategoryImage,
		Private:          parseFlag(r.FormValue("is_private")),
		Project:          middleware.ProjectFromContext(r.Context()),
		UploadedBy:       r.FormValue("uploaded_by"),
	})
	if serr != nil {
		serr.Write(w)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:   "Изображение загружено",
		ID:        asset.ID,
		IsPrivate: asset.IsPrivate(),
		URL:       asset.URL,
		Token:     asset.DownloadToken,
	})
}

// List — GET /files. Все изображения проекта, новые первыми.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.List(r.Context(), middleware.ProjectFromContext(r.Context()), imageMediaTypes)
	if err != nil {
		h.logger.Error("Ошибка получения списка изображений", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Не удалось получить список файлов")
		return
	}
	if assets == nil {
		assets = []*model.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

// Get — GET /files/{id}. Чужой или несуществующий id — 404.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	asset, err := h.assets.Get(r.Context(), id, middleware.ProjectFromContext(r.Context()), imageMediaTypes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		h.logger.Error("Ошибка получения изображения",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось получить файл")
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// Delete — DELETE /files/{id}. Неизвестный id — success=false, HTTP 200.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	found, serr := h.assets.Delete(r.Context(), id, middleware.ProjectFromContext(r.Context()), imageMediaTypes)
	if serr != nil {
		serr.Write(w)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, deleteResponse{Success: false, Message: "Файл не найден"})
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "Файл удалён"})
}

// parseID извлекает числовой path-параметр id; при ошибке ответ записан.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный идентификатор файла")
		return 0, false
	}
	return id, true
}
