// Точка входа Media Storage — мультитенантный сервис хранения медиафайлов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// инициализирует хранилище на диске, репозитории, сервисный слой и API
// handlers, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dinkesmg/dinkes-media-storage/internal/api/handlers"
	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/config"
	"github.com/dinkesmg/dinkes-media-storage/internal/database"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
	"github.com/dinkesmg/dinkes-media-storage/internal/server"
	"github.com/dinkesmg/dinkes-media-storage/internal/service"
	"github.com/dinkesmg/dinkes-media-storage/internal/storage/filestore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Media Storage запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("MS_DEPHEALTH_GROUP") == "" {
		logger.Warn("MS_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилище на диске: четыре раздела public/private × images/pdfs
	store, err := filestore.New(cfg.StorageDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Хранилище инициализировано", slog.String("root", store.Root()))

	// 6. Repositories
	projectRepo := repository.NewProjectRepository(pool)
	assetRepo := repository.NewAssetRepository(pool)

	// 7. Services
	tenantsSvc := service.NewTenantService(projectRepo, cfg.TenantCacheSize, cfg.TenantCacheTTL, logger)
	uploadSvc := service.NewUploadService(cfg, store, assetRepo, logger)
	assetsSvc := service.NewAssetService(store, assetRepo, logger)
	downloadSvc := service.NewDownloadService(store, assetRepo, logger)

	// 8. Мониторинг зависимостей (не критичен для запуска)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"media-storage",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseDSN(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 9. API handlers
	h := server.Handlers{
		Files:    handlers.NewFilesHandler(cfg, uploadSvc, assetsSvc, logger),
		PDFs:     handlers.NewPDFsHandler(cfg, uploadSvc, assetsSvc, downloadSvc, logger),
		Projects: handlers.NewProjectsHandler(tenantsSvc, logger),
		Health:   handlers.NewHealthHandler(database.NewReadinessChecker(pool)),
	}

	// 10. Аутентификация по API-ключу
	auth := middleware.NewAPIKeyAuth(tenantsSvc, logger)

	// 11. Запуск HTTP-сервера (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, h, auth, store)
	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Media Storage остановлен")
}
