// Пакет repository — слой доступа к данным PostgreSQL.
// Таблицы projects (Tenant Directory) и assets (Asset Registry).
// Все запросы — чистый SQL через pgx, без ORM. Каждая операция —
// одиночный атомарный запрос; транзакции между ФС и БД не используются
// (см. сагу upload/delete в сервисном слое).
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена (в том числе вне scope проекта:
	// чужой id неотличим от несуществующего).
	ErrNotFound = errors.New("запись не найдена")
	// ErrDuplicate — нарушение уникальности (имя проекта занято).
	ErrDuplicate = errors.New("запись уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
