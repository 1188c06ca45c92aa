package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
)

// projectColumns — список столбцов таблицы projects для SELECT-запросов.
const projectColumns = `name, api_key, created_at`

// ProjectRepository — справочник тенантов.
// Проекты создаются административной операцией, мутируются только
// ротацией ключа и никогда не удаляются.
type ProjectRepository interface {
	// Create вставляет проект; ErrDuplicate если имя занято.
	Create(ctx context.Context, p *model.Project) error
	// GetByName возвращает проект по имени или ErrNotFound.
	GetByName(ctx context.Context, name string) (*model.Project, error)
	// GetByAPIKey возвращает проект по API-ключу или ErrNotFound.
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Project, error)
	// RotateKey атомарно заменяет API-ключ проекта; старый ключ
	// перестаёт действовать этим же UPDATE. ErrNotFound если проекта нет.
	RotateKey(ctx context.Context, name, newKey string) (*model.Project, error)
}

// projectRepo — реализация ProjectRepository через pgx.
type projectRepo struct {
	db DBTX
}

// NewProjectRepository создаёт репозиторий проектов.
func NewProjectRepository(db DBTX) ProjectRepository {
	return &projectRepo{db: db}
}

// Create вставляет проект. CreatedAt назначает база.
func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	query := `
		INSERT INTO projects (name, api_key)
		VALUES ($1, $2)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query, p.Name, p.APIKey).Scan(&p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 — unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("ошибка создания проекта: %w", err)
	}
	return nil
}

// GetByName возвращает проект по имени или ErrNotFound.
func (r *projectRepo) GetByName(ctx context.Context, name string) (*model.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE name = $1`, projectColumns)

	p := &model.Project{}
	err := r.db.QueryRow(ctx, query, name).Scan(&p.Name, &p.APIKey, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения проекта: %w", err)
	}
	return p, nil
}

// GetByAPIKey возвращает проект по API-ключу или ErrNotFound.
func (r *projectRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE api_key = $1`, projectColumns)

	p := &model.Project{}
	err := r.db.QueryRow(ctx, query, apiKey).Scan(&p.Name, &p.APIKey, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска проекта по ключу: %w", err)
	}
	return p, nil
}

// RotateKey атомарно заменяет API-ключ проекта.
func (r *projectRepo) RotateKey(ctx context.Context, name, newKey string) (*model.Project, error) {
	query := `
		UPDATE projects SET api_key = $2
		WHERE name = $1
		RETURNING name, api_key, created_at`

	p := &model.Project{}
	err := r.db.QueryRow(ctx, query, name, newKey).Scan(&p.Name, &p.APIKey, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка ротации ключа: %w", err)
	}
	return p, nil
}
