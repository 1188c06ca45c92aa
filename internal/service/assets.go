// assets.go — операции над зарегистрированными ассетами: список,
// получение по id, удаление.
//
// Сага удаления: scoped-поиск записи → удаление файла (толерантно к уже
// отсутствующему) → удаление метаданных. Путь файла восстанавливается из
// сохранённых visibility и media_type записи — единственного источника
// истины о разделе; разделы не перебираются.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
	"github.com/dinkesmg/dinkes-media-storage/internal/storage/filestore"
)

// AssetService — сервис чтения и удаления ассетов.
type AssetService struct {
	store  *filestore.Store
	assets repository.AssetRepository
	logger *slog.Logger
}

// NewAssetService создаёт сервис ассетов.
func NewAssetService(store *filestore.Store, assets repository.AssetRepository, logger *slog.Logger) *AssetService {
	return &AssetService{
		store:  store,
		assets: assets,
		logger: logger.With(slog.String("component", "asset_service")),
	}
}

// List возвращает ассеты проекта, новые первыми.
// mediaTypes ограничивает выборку категорией endpoint'а (nil = все).
func (s *AssetService) List(ctx context.Context, project string, mediaTypes []string) ([]*model.Asset, error) {
	return s.assets.ListByProject(ctx, project, mediaTypes)
}

// Get возвращает ассет по id в рамках проекта.
// Чужой или несуществующий ассет — repository.ErrNotFound.
func (s *AssetService) Get(ctx context.Context, id int64, project string, mediaTypes []string) (*model.Asset, error) {
	return s.assets.GetByID(ctx, id, project, mediaTypes)
}

// Delete удаляет ассет: сначала файл, затем метаданные.
// Возвращает (false, nil), если ассет не найден в рамках проекта —
// идемпотентный повтор не ошибка. После частичного сбоя (файл удалён,
// запись осталась) повтор завершает сагу: отсутствующий файл толерантен.
func (s *AssetService) Delete(ctx context.Context, id int64, project string, mediaTypes []string) (bool, *Error) {
	a, err := s.assets.GetByID(ctx, id, project, mediaTypes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		s.logger.Error("Ошибка поиска ассета при удалении",
			slog.Int64("id", id),
			slog.String("project", project),
			slog.String("error", err.Error()),
		)
		return false, errInternal("Не удалось удалить файл")
	}

	// Удаление файла до метаданных: осиротевшая запись хуже осиротевшего
	// файла, повтор по записи доводит сагу до конца
	if err := s.store.Delete(a.Visibility, a.Category(), a.FilenameServer); err != nil {
		s.logger.Error("Ошибка удаления файла",
			slog.Int64("id", id),
			slog.String("filename_server", a.FilenameServer),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return false, errInternal("Не удалось удалить файл")
	}

	if err := s.assets.Delete(ctx, id, project); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Параллельное удаление успело раньше — результат достигнут
			return false, nil
		}
		s.logger.Error("Ошибка удаления записи ассета",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return false, errInternal("Не удалось удалить файл")
	}

	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	s.logger.Info("Ассет удалён",
		slog.Int64("id", id),
		slog.String("project", project),
		slog.String("filename_server", a.FilenameServer),
	)
	return true, nil
}
