// tenants.go — справочник тенантов: разрешение API-ключей в проекты
// и административные операции над проектами.
//
// Разрешение ключа стоит на горячем пути каждого аутентифицированного
// запроса, поэтому результаты кэшируются в LRU с TTL. Ротация ключа
// инвалидирует запись кэша немедленно; на других репликах старый ключ
// доживает максимум TTL.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dinkesmg/dinkes-media-storage/internal/api/middleware"
	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
)

// apiKeyBytes — длина API-ключа в байтах до hex-кодирования.
const apiKeyBytes = 16

// TenantService — сервис тенантов: аутентификация по API-ключу
// и управление проектами.
type TenantService struct {
	projects repository.ProjectRepository
	// cache: API-ключ → имя проекта. Отрицательные результаты не кэшируются.
	cache  *lru.LRU[string, string]
	logger *slog.Logger
}

// NewTenantService создаёт сервис тенантов с LRU-кэшем API-ключей.
func NewTenantService(projects repository.ProjectRepository, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *TenantService {
	return &TenantService{
		projects: projects,
		cache:    lru.NewLRU[string, string](cacheSize, nil, cacheTTL),
		logger:   logger.With(slog.String("component", "tenant_service")),
	}
}

// Resolve разрешает API-ключ в имя проекта.
// Возвращает repository.ErrNotFound для неизвестного ключа.
// Реализует middleware.TenantResolver.
func (s *TenantService) Resolve(ctx context.Context, apiKey string) (string, error) {
	if name, ok := s.cache.Get(apiKey); ok {
		middleware.TenantCacheHits.Inc()
		return name, nil
	}
	middleware.TenantCacheMisses.Inc()

	p, err := s.projects.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return "", err
	}

	s.cache.Add(apiKey, p.Name)
	return p.Name, nil
}

// CreateProject создаёт проект и генерирует для него API-ключ.
// Возвращает repository.ErrDuplicate, если имя уже занято.
func (s *TenantService) CreateProject(ctx context.Context, name string) (*model.Project, error) {
	key, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	p := &model.Project{Name: name, APIKey: key}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Проект создан", slog.String("project", p.Name))
	return p, nil
}

// GetProject возвращает проект по имени.
func (s *TenantService) GetProject(ctx context.Context, name string) (*model.Project, error) {
	return s.projects.GetByName(ctx, name)
}

// RotateKey заменяет API-ключ проекта новым и инвалидирует старый
// ключ в кэше. Старый ключ перестаёт действовать тем же UPDATE.
func (s *TenantService) RotateKey(ctx context.Context, name string) (*model.Project, error) {
	old, err := s.projects.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	newKey, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	p, err := s.projects.RotateKey(ctx, name, newKey)
	if err != nil {
		return nil, err
	}

	s.cache.Remove(old.APIKey)
	s.logger.Info("API-ключ проекта заменён", slog.String("project", name))
	return p, nil
}

// generateAPIKey генерирует криптостойкий ключ: 16 байт в hex (32 символа).
func generateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации API-ключа: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
