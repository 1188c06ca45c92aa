// fakes_test.go — in-memory реализации репозиториев для unit-тестов
// сервисного слоя. Повторяют контракты pgx-реализаций, включая scoped
// семантику ErrNotFound.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
	"github.com/dinkesmg/dinkes-media-storage/internal/repository"
)

// testLogger — логгер, молчащий в тестах.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAssetRepo — in-memory AssetRepository.
type fakeAssetRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*model.Asset
	// failCreate имитирует сбой вставки метаданных
	failCreate bool
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{items: make(map[int64]*model.Asset)}
}

func (f *fakeAssetRepo) Create(_ context.Context, a *model.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("имитация сбоя вставки")
	}
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = time.Now().UTC()
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

// inScope проверяет принадлежность ассета scope запроса.
func inScope(a *model.Asset, project string, mediaTypes []string) bool {
	if a.ProjectName != project {
		return false
	}
	return len(mediaTypes) == 0 || slices.Contains(mediaTypes, a.MediaType)
}

func (f *fakeAssetRepo) ListByProject(_ context.Context, project string, mediaTypes []string) ([]*model.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Asset
	for _, a := range f.items {
		if inScope(a, project, mediaTypes) {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(x, y *model.Asset) int {
		return int(y.ID - x.ID)
	})
	return out, nil
}

func (f *fakeAssetRepo) GetByID(_ context.Context, id int64, project string, mediaTypes []string) (*model.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || !inScope(a, project, mediaTypes) {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssetRepo) GetByToken(_ context.Context, token, project string) (*model.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.items {
		if a.DownloadToken != nil && *a.DownloadToken == token && a.ProjectName == project {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAssetRepo) Delete(_ context.Context, id int64, project string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.ProjectName != project {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

// fakeProjectRepo — in-memory ProjectRepository со счётчиком обращений по ключу.
type fakeProjectRepo struct {
	mu         sync.Mutex
	byName     map[string]*model.Project
	keyLookups int
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{byName: make(map[string]*model.Project)}
}

func (f *fakeProjectRepo) Create(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[p.Name]; ok {
		return repository.ErrDuplicate
	}
	p.CreatedAt = time.Now().UTC()
	cp := *p
	f.byName[p.Name] = &cp
	return nil
}

func (f *fakeProjectRepo) GetByName(_ context.Context, name string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjectRepo) GetByAPIKey(_ context.Context, apiKey string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyLookups++
	for _, p := range f.byName {
		if p.APIKey == apiKey {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProjectRepo) RotateKey(_ context.Context, name, newKey string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.APIKey = newKey
	cp := *p
	return &cp, nil
}
