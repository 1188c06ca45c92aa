// metrics.go — Prometheus HTTP метрики Media Storage.
// Регистрирует метрики: ms_http_requests_total, ms_http_request_duration_seconds.
// Бизнес-метрики (ms_operations_total, ms_assets_total) обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ms_http_requests_total",
			Help: "Общее количество HTTP-запросов к Media Storage",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ms_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Media Storage в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// OperationsTotal — количество операций над ассетами.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ms_operations_total",
			Help: "Общее количество операций над ассетами",
		},
		[]string{"operation", "result"},
	)

	// AssetsTotal — количество созданных ассетов по видимости.
	AssetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ms_assets_total",
			Help: "Количество созданных ассетов",
		},
		[]string{"visibility", "category"},
	)

	// TenantCacheHits — попадания в LRU-кэш API-ключей.
	TenantCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ms_tenant_cache_hits_total",
		Help: "Попадания в LRU-кэш API-ключей тенантов",
	})

	// TenantCacheMisses — промахи LRU-кэша API-ключей.
	TenantCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ms_tenant_cache_misses_total",
		Help: "Промахи LRU-кэша API-ключей тенантов",
	})
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath заменяет переменные сегменты пути на плейсхолдеры
// для предотвращения взрывного роста кардинальности метрик.
func normalizePath(path string) string {
	switch {
	case path == "/metrics" || strings.HasPrefix(path, "/health/"):
		return path
	case strings.HasPrefix(path, "/images/"):
		return "/images/{file}"
	case strings.HasPrefix(path, "/pdfs/"):
		return "/pdfs/{file}"
	case strings.HasPrefix(path, "/pdfs-api/download/"):
		return "/pdfs-api/download/{token}"
	case strings.HasPrefix(path, "/pdfs-api/") && path != "/pdfs-api/upload":
		return "/pdfs-api/{id}"
	case strings.HasPrefix(path, "/files/") && path != "/files/upload":
		return "/files/{id}"
	case strings.HasPrefix(path, "/projects/"):
		return "/projects/{name}"
	}
	return path
}
