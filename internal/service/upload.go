// upload.go — сага загрузки ассета.
//
// Порядок шагов фиксированный: лимит размера → sniff по magic-байтам →
// нормализация (только изображения) → запись файла на диск → вставка
// метаданных. Файл пишется ДО метаданных: при сбое вставки файл удаляется
// (компенсация), поэтому записи-сироты без файла невозможны по этому пути.
// Осиротевший файл без записи — худший из двух исходов допустимого сбоя,
// он не виден через API приватных разделов.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/config"
	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/normalize"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
	"github.com/dinkesmg/dinkes-media-storage/internal/sniff"
	"github.com/dinkesmg/dinkes-media-storage/internal/storage/filestore"
)

// UploadParams — параметры загрузки ассета.
type UploadParams struct {
	// Data — полное содержимое файла
	Data []byte
	// OriginalFilename — имя файла от клиента (только для отображения)
	OriginalFilename string
	// Category — категория endpoint'а: image или pdf
	Category model.Category
	// Private — флаг приватности из формы
	Private bool
	// Project — проект-владелец (из контекста аутентификации)
	Project string
	// UploadedBy — опциональная атрибуция загрузившего
	UploadedBy string
}

// UploadService — сервис загрузки ассетов.
type UploadService struct {
	cfg    *config.Config
	store  *filestore.Store
	assets repository.AssetRepository
	logger *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
func NewUploadService(cfg *config.Config, store *filestore.Store, assets repository.AssetRepository, logger *slog.Logger) *UploadService {
	return &UploadService{
		cfg:    cfg,
		store:  store,
		assets: assets,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Upload выполняет сагу загрузки и возвращает созданный ассет.
func (s *UploadService) Upload(ctx context.Context, p UploadParams) (*model.Asset, *Error) {
	// Шаг 1: лимит размера — до любой работы с содержимым
	if serr := s.checkSize(p); serr != nil {
		middleware.OperationsTotal.WithLabelValues("upload", "rejected").Inc()
		return nil, serr
	}

	// Шаг 2: sniff — истинный тип по magic-байтам
	mediaType, err := s.detect(p)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("upload", "rejected").Inc()
		return nil, errInvalidContent(err.Error())
	}

	// Шаг 3: нормализация изображений (автоповорот, очистка метаданных,
	// ограничение разрешения). PDF сохраняется байт-в-байт.
	data := p.Data
	if p.Category == model.CategoryImage {
		data, err = normalize.Image(p.Data, mediaType)
		if err != nil {
			s.logger.Error("Ошибка нормализации изображения",
				slog.String("project", p.Project),
				slog.String("media_type", mediaType),
				slog.String("error", err.Error()),
			)
			middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
			return nil, errProcessing("Не удалось обработать изображение")
		}
	}

	visibility := model.VisibilityPublic
	if p.Private {
		visibility = model.VisibilityPrivate
	}
	serverName := filestore.NewServerName(mediaType)

	// Шаг 4: запись файла в раздел (атомарно, tmp → fsync → rename)
	if err := s.store.Save(visibility, p.Category, serverName, data); err != nil {
		s.logger.Error("Ошибка записи файла в хранилище",
			slog.String("project", p.Project),
			slog.String("filename_server", serverName),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, errInternal("Не удалось сохранить файл")
	}

	asset := &model.Asset{
		ProjectName:      p.Project,
		FilenameOriginal: p.OriginalFilename,
		FilenameServer:   serverName,
		MediaType:        mediaType,
		ByteSize:         int64(len(data)),
		Visibility:       visibility,
	}
	if p.UploadedBy != "" {
		asset.UploadedBy = &p.UploadedBy
	}

	// Ровно одна ссылка на способ доступа: URL для public, токен для private
	if visibility == model.VisibilityPublic {
		u := s.publicURL(p.Category, serverName)
		asset.URL = &u
	} else {
		token := uuid.New().String()
		asset.DownloadToken = &token
	}

	// Шаг 5: вставка метаданных; при сбое — компенсирующее удаление файла
	if err := s.assets.Create(ctx, asset); err != nil {
		if delErr := s.store.Delete(visibility, p.Category, serverName); delErr != nil {
			s.logger.Error("Компенсация не удалась: файл остался без записи",
				slog.String("filename_server", serverName),
				slog.String("error", delErr.Error()),
			)
		}
		s.logger.Error("Ошибка создания записи ассета",
			slog.String("project", p.Project),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, errInternal("Не удалось зарегистрировать файл")
	}

	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()
	middleware.AssetsTotal.WithLabelValues(string(visibility), string(p.Category)).Inc()
	s.logger.Info("Ассет загружен",
		slog.Int64("id", asset.ID),
		slog.String("project", p.Project),
		slog.String("filename_server", serverName),
		slog.String("media_type", mediaType),
		slog.Int64("byte_size", asset.ByteSize),
		slog.String("visibility", string(visibility)),
	)

	return asset, nil
}

// checkSize проверяет лимит размера для категории.
func (s *UploadService) checkSize(p UploadParams) *Error {
	limit := s.cfg.MaxPDFSize
	what := "PDF"
	if p.Category == model.CategoryImage {
		limit = s.cfg.MaxImageSize
		what = "изображения"
	}
	if int64(len(p.Data)) > limit {
		return errFileTooLarge(fmt.Sprintf(
			"Размер файла %d байт превышает лимит %s %d байт", len(p.Data), what, limit,
		))
	}
	return nil
}

// detect определяет MIME-тип по содержимому с allow-list категории.
func (s *UploadService) detect(p UploadParams) (string, error) {
	if p.Category == model.CategoryImage {
		return sniff.DetectImage(p.Data)
	}
	return sniff.DetectPDF(p.Data)
}

// publicURL строит публичный URL ассета из базового URL и серверного имени.
func (s *UploadService) publicURL(cat model.Category, serverName string) string {
	prefix := "/pdfs/"
	if cat == model.CategoryImage {
		prefix = "/images/"
	}
	return s.cfg.BaseURL + prefix + serverName
}
