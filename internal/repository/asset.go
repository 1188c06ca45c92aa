package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
)

// assetColumns — список столбцов таблицы assets для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const assetColumns = `id, project_name, filename_original, filename_server,
	media_type, byte_size, visibility, url, download_token, uploaded_by, created_at`

// AssetRepository — реестр метаданных ассетов.
// Все операции чтения/удаления принимают project и применяют его в WHERE:
// ассет чужого проекта неотличим от отсутствующего (защита от
// cross-tenant probing по id и token).
type AssetRepository interface {
	// Create вставляет запись и заполняет ID и CreatedAt из RETURNING.
	Create(ctx context.Context, a *model.Asset) error
	// ListByProject возвращает ассеты проекта, created_at DESC.
	// mediaTypes — опциональный фильтр по MIME-типам (nil = все).
	ListByProject(ctx context.Context, project string, mediaTypes []string) ([]*model.Asset, error)
	// GetByID возвращает ассет по id в рамках проекта или ErrNotFound.
	GetByID(ctx context.Context, id int64, project string, mediaTypes []string) (*model.Asset, error)
	// GetByToken возвращает ассет по download-токену в рамках проекта или ErrNotFound.
	GetByToken(ctx context.Context, token, project string) (*model.Asset, error)
	// Delete удаляет запись по id в рамках проекта; ErrNotFound если записи нет.
	Delete(ctx context.Context, id int64, project string) error
}

// assetRepo — реализация AssetRepository через pgx.
type assetRepo struct {
	db DBTX
}

// NewAssetRepository создаёт репозиторий ассетов.
func NewAssetRepository(db DBTX) AssetRepository {
	return &assetRepo{db: db}
}

// Create вставляет запись ассета. ID и CreatedAt назначает база.
func (r *assetRepo) Create(ctx context.Context, a *model.Asset) error {
	query := `
		INSERT INTO assets (project_name, filename_original, filename_server,
			media_type, byte_size, visibility, url, download_token, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		a.ProjectName, a.FilenameOriginal, a.FilenameServer,
		a.MediaType, a.ByteSize, a.Visibility, a.URL, a.DownloadToken, a.UploadedBy,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания записи ассета: %w", err)
	}
	return nil
}

// ListByProject возвращает ассеты проекта в порядке создания (новые первыми).
func (r *assetRepo) ListByProject(ctx context.Context, project string, mediaTypes []string) ([]*model.Asset, error) {
	where, args := scopeWhere(project, mediaTypes)
	query := fmt.Sprintf(
		`SELECT %s FROM assets %s ORDER BY created_at DESC, id DESC`,
		assetColumns, where,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка ассетов: %w", err)
	}
	defer rows.Close()

	var result []*model.Asset
	for rows.Next() {
		a := &model.Asset{}
		if err := scanAsset(rows, a); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ассета: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// GetByID возвращает ассет по id в рамках проекта или ErrNotFound.
func (r *assetRepo) GetByID(ctx context.Context, id int64, project string, mediaTypes []string) (*model.Asset, error) {
	where, args := scopeWhere(project, mediaTypes)
	args = append(args, id)
	query := fmt.Sprintf(
		`SELECT %s FROM assets %s AND id = $%d`,
		assetColumns, where, len(args),
	)

	a := &model.Asset{}
	err := scanAsset(r.db.QueryRow(ctx, query, args...), a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ассета: %w", err)
	}
	return a, nil
}

// GetByToken возвращает ассет по download-токену в рамках проекта или ErrNotFound.
func (r *assetRepo) GetByToken(ctx context.Context, token, project string) (*model.Asset, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM assets WHERE download_token = $1 AND project_name = $2`,
		assetColumns,
	)

	a := &model.Asset{}
	err := scanAsset(r.db.QueryRow(ctx, query, token, project), a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ассета по токену: %w", err)
	}
	return a, nil
}

// Delete удаляет запись метаданных. Физический файл удаляет вызывающий
// сервис ДО этого вызова (порядок саги delete).
func (r *assetRepo) Delete(ctx context.Context, id int64, project string) error {
	query := `DELETE FROM assets WHERE id = $1 AND project_name = $2`

	tag, err := r.db.Exec(ctx, query, id, project)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи ассета: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scopeWhere строит WHERE-условие: всегда project_name, опционально media_type.
func scopeWhere(project string, mediaTypes []string) (string, []any) {
	conditions := []string{"project_name = $1"}
	args := []any{project}

	if len(mediaTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("media_type = ANY($%d)", len(args)+1))
		args = append(args, mediaTypes)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// scanAsset сканирует строку результата в модель.
func scanAsset(row pgx.Row, a *model.Asset) error {
	return row.Scan(
		&a.ID, &a.ProjectName, &a.FilenameOriginal, &a.FilenameServer,
		&a.MediaType, &a.ByteSize, &a.Visibility, &a.URL, &a.DownloadToken,
		&a.UploadedBy, &a.CreatedAt,
	)
}
