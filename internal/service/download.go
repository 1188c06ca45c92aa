// download.go — выдача приватных файлов по download-токену.
//
// Токен ищется только в рамках проекта аутентифицированного запроса:
// действительный токен чужого проекта неотличим от несуществующего.
// Запись без физического файла — деградация хранилища; клиент получает
// 404, инцидент фиксируется в логе.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
	"github.com/dinkesmg/dinkes-media-storage/internal/storage/filestore"
)

// DownloadService — сервис скачивания приватных ассетов по токену.
type DownloadService struct {
	store  *filestore.Store
	assets repository.AssetRepository
	logger *slog.Logger
}

// NewDownloadService создаёт сервис скачивания.
func NewDownloadService(store *filestore.Store, assets repository.AssetRepository, logger *slog.Logger) *DownloadService {
	return &DownloadService{
		store:  store,
		assets: assets,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// ServeByToken отдаёт файл по download-токену, записывая ответ напрямую.
// Возвращает *Error для всех путей отказа; при nil ответ уже записан.
func (s *DownloadService) ServeByToken(w http.ResponseWriter, r *http.Request, token, project string) *Error {
	a, err := s.assets.GetByToken(r.Context(), token, project)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.OperationsTotal.WithLabelValues("download", "not_found").Inc()
			return errNotFound("Файл не найден")
		}
		s.logger.Error("Ошибка поиска ассета по токену",
			slog.String("project", project),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("download", "error").Inc()
		return errInternal("Не удалось получить файл")
	}

	f, err := s.store.Open(a.Visibility, a.Category(), a.FilenameServer)
	if err != nil {
		// Метаданные есть, файла нет: не маскируем деградацию пустым ответом
		s.logger.Error("Файл ассета отсутствует на диске",
			slog.Int64("id", a.ID),
			slog.String("project", project),
			slog.String("filename_server", a.FilenameServer),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("download", "missing_file").Inc()
		return errNotFound("Файл не найден")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.logger.Error("Ошибка stat файла ассета",
			slog.Int64("id", a.ID),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("download", "error").Inc()
		return errInternal("Не удалось получить файл")
	}

	w.Header().Set("Content-Type", a.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(
		`attachment; filename="%s"; filename*=UTF-8''%s`,
		url.PathEscape(a.FilenameOriginal), url.PathEscape(a.FilenameOriginal),
	))

	// ServeContent: Range-запросы, If-Modified-Since, корректный обрыв
	// при раннем отключении клиента
	http.ServeContent(w, r, a.FilenameServer, info.ModTime(), f)

	middleware.OperationsTotal.WithLabelValues("download", "success").Inc()
	return nil
}
