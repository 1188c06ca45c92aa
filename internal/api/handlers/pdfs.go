// pdfs.go — обработчики API PDF-документов (/pdfs-api).
// Повторяют контракт endpoints изображений с двумя отличиями:
// выборки ограничены application/pdf и при наличии download-токена
// ответ загрузки содержит готовую ссылку скачивания.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/dinkesmg/dinkes-media-storage/internal/api/errors"
	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/config"
	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
	"github.com/dinkesmg/dinkes-media-storage/internal/service"
)

// pdfMediaTypes — scope выборок endpoints PDF.
var pdfMediaTypes = []string{model.MimePDF}

// PDFsHandler — обработчик endpoints PDF-документов.
type PDFsHandler struct {
	cfg       *config.Config
	uploads   *service.UploadService
	assets    *service.AssetService
	downloads *service.DownloadService
	logger    *slog.Logger
}

// NewPDFsHandler создаёт обработчик endpoints PDF.
func NewPDFsHandler(
	cfg *config.Config,
	uploads *service.UploadService,
	assets *service.AssetService,
	downloads *service.DownloadService,
	logger *slog.Logger,
) *PDFsHandler {
	return &PDFsHandler{
		cfg:       cfg,
		uploads:   uploads,
		assets:    assets,
		downloads: downloads,
		logger:    logger.With(slog.String("component", "pdfs_handler")),
	}
}

// Upload — POST /pdfs-api/upload.
func (h *PDFsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := readUpload(w, r, h.cfg.MaxPDFSize)
	if !ok {
		return
	}

	asset, serr := h.uploads.Upload(r.Context(), service.UploadParams{
		Data:             data,
		OriginalFilename: filename,
		Category:         model.CategoryPDF,
		Private:          parseFlag(r.FormValue("is_private")),
		Project:          middleware.ProjectFromContext(r.Context()),
		UploadedBy:       r.FormValue("uploaded_by"),
	})
	if serr != nil {
		serr.Write(w)
		return
	}

	resp := uploadResponse{
		Message:   "PDF загружен",
		ID:        asset.ID,
		IsPrivate: asset.IsPrivate(),
		URL:       asset.URL,
		Token:     asset.DownloadToken,
	}
	if asset.DownloadToken != nil {
		u := h.cfg.BaseURL + "/pdfs-api/download/" + *asset.DownloadToken
		resp.DownloadURL = &u
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List — GET /pdfs-api. Все PDF проекта, новые первыми.
func (h *PDFsHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.List(r.Context(), middleware.ProjectFromContext(r.Context()), pdfMediaTypes)
	if err != nil {
		h.logger.Error("Ошибка получения списка PDF", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Не удалось получить список файлов")
		return
	}
	if assets == nil {
		assets = []*model.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

// Get — GET /pdfs-api/{id}.
func (h *PDFsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	asset, err := h.assets.Get(r.Context(), id, middleware.ProjectFromContext(r.Context()), pdfMediaTypes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		h.logger.Error("Ошибка получения PDF",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось получить файл")
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// Delete — DELETE /pdfs-api/{id}.
func (h *PDFsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	found, serr := h.assets.Delete(r.Context(), id, middleware.ProjectFromContext(r.Context()), pdfMediaTypes)
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

// Download — GET /pdfs-api/download/{token}. Стриминг приватного файла.
func (h *PDFsHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		apierrors.ValidationError(w, "Токен скачивания не указан")
		return
	}

	if serr := h.downloads.ServeByToken(w, r, token, middleware.ProjectFromContext(r.Context())); serr != nil {
		serr.Write(w)
	}
}
