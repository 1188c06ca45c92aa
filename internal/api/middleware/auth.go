// auth.go — middleware аутентификации по API-ключу (заголовок x-api-key).
// Ключ разрешается в имя проекта через TenantResolver; scope проекта
// помещается в контекст запроса как явное типизированное значение
// и прокидывается во все downstream-вызовы.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/dinkesmg/dinkes-media-storage/internal/api/errors"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
)

// HeaderAPIKey — имя заголовка с API-ключом проекта.
const HeaderAPIKey = "x-api-key"

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyProject — ключ для имени проекта в контексте запроса.
const ContextKeyProject contextKey = "project"

// TenantResolver разрешает API-ключ в имя проекта.
// Реализуется service.TenantService (lookup в БД с LRU-кэшем).
type TenantResolver interface {
	Resolve(ctx context.Context, apiKey string) (string, error)
}

// APIKeyAuth — middleware аутентификации по API-ключу.
type APIKeyAuth struct {
	tenants TenantResolver
	logger  *slog.Logger
}

// NewAPIKeyAuth создаёт middleware аутентификации.
func NewAPIKeyAuth(tenants TenantResolver, logger *slog.Logger) *APIKeyAuth {
	return &APIKeyAuth{
		tenants: tenants,
		logger:  logger.With(slog.String("component", "api_key_auth")),
	}
}

// Middleware возвращает HTTP middleware аутентификации.
// Берётся только первое значение заголовка; отсутствующий, пустой
// или неизвестный ключ — 401. Состояние между запросами не разделяется:
// на запрос выполняется один read-only lookup.
func (a *APIKeyAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := strings.TrimSpace(r.Header.Get(HeaderAPIKey))
			if apiKey == "" {
				apierrors.Unauthorized(w, "Требуется API-ключ (заголовок x-api-key)")
				return
			}

			project, err := a.tenants.Resolve(r.Context(), apiKey)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					apierrors.Unauthorized(w, "Недействительный API-ключ")
					return
				}
				a.logger.Error("Ошибка разрешения API-ключа",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.InternalError(w, "Внутренняя ошибка аутентификации")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyProject, project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProjectFromContext извлекает имя проекта из контекста запроса.
// Возвращает пустую строку, если scope не установлен (запрос не прошёл gate).
func ProjectFromContext(ctx context.Context) string {
	project, _ := ctx.Value(ContextKeyProject).(string)
	return project
}
