// Пакет server — HTTP-сервер Media Storage с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/dinkesmg/dinkes-media-storage/internal/api/handlers"
	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/config"
	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/storage/filestore"
)

// Handlers — набор обработчиков, монтируемых на router.
type Handlers struct {
	Files    *handlers.FilesHandler
	PDFs     *handlers.PDFsHandler
	Projects *handlers.ProjectsHandler
	Health   *handlers.HealthHandler
}

// Server — HTTP-сервер Media Storage.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
//
// Схема маршрутов:
//   - /files, /pdfs-api — бизнес-API за аутентификацией по x-api-key
//   - /images/*, /pdfs/* — статика публичных разделов, без аутентификации
//   - /projects — административные операции
//   - /health/*, /metrics — инфраструктурные endpoints
func New(
	cfg *config.Config,
	logger *slog.Logger,
	h Handlers,
	auth *middleware.APIKeyAuth,
	store *filestore.Store,
) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      newRouter(logger, h, auth, store),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// newRouter собирает дерево маршрутов и middleware.
func newRouter(
	logger *slog.Logger,
	h Handlers,
	auth *middleware.APIKeyAuth,
	store *filestore.Store,
) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Бизнес-API: каждый запрос проходит через gate аутентификации
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware())

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", h.Files.Upload)
			r.Get("/", h.Files.List)
			r.Get("/{id}", h.Files.Get)
			r.Delete("/{id}", h.Files.Delete)
		})

		r.Route("/pdfs-api", func(r chi.Router) {
			r.Post("/upload", h.PDFs.Upload)
			r.Get("/", h.PDFs.List)
			r.Get("/download/{token}", h.PDFs.Download)
			r.Get("/{id}", h.PDFs.Get)
			r.Delete("/{id}", h.PDFs.Delete)
		})
	})

	// Статика публичных разделов. Приватные разделы через статику
	// недоступны в принципе: на них нет маршрутов
	publicImages := http.StripPrefix("/images/",
		http.FileServer(http.Dir(store.Dir(model.VisibilityPublic, model.CategoryImage))))
	publicPDFs := http.StripPrefix("/pdfs/",
		http.FileServer(http.Dir(store.Dir(model.VisibilityPublic, model.CategoryPDF))))
	router.Handle("/images/*", noListing(publicImages))
	router.Handle("/pdfs/*", noListing(publicPDFs))

	// Администрирование проектов
	router.Route("/projects", func(r chi.Router) {
		r.Post("/", h.Projects.Create)
		r.Get("/{name}", h.Projects.Get)
		r.Patch("/{name}/api-key", h.Projects.RotateKey)
	})

	// Инфраструктурные endpoints
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)

	return router
}

// noListing закрывает авто-листинг директорий http.FileServer:
// перечень публичных файлов — не часть API.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
