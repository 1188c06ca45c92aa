// Пакет filestore — физическое размещение файлов на диске.
// Единственный источник истины об устройстве разделов хранилища:
// четыре фиксированных раздела (public/private × images/pdfs),
// генерация серверных имён и чистая функция восстановления пути.
// Имя от клиента в физическом пути не участвует никогда —
// защита от path traversal и коллизий.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
)

// Имена директорий разделов внутри корня хранилища.
const (
	dirImagesPublic  = "images_public"
	dirImagesPrivate = "images_private"
	dirPDFsPublic    = "pdfs_public"
	dirPDFsPrivate   = "pdfs_private"
)

// Store — управление физическими файлами на диске.
type Store struct {
	// root — корневая директория хранилища (MS_STORAGE_DIR)
	root string
}

// New создаёт Store и гарантирует существование всех четырёх разделов.
func New(root string) (*Store, error) {
	s := &Store{root: root}
	for _, vis := range []model.Visibility{model.VisibilityPublic, model.VisibilityPrivate} {
		for _, cat := range []model.Category{model.CategoryImage, model.CategoryPDF} {
			if err := os.MkdirAll(s.Dir(vis, cat), 0o750); err != nil {
				return nil, fmt.Errorf("не удалось создать раздел %s: %w", s.Dir(vis, cat), err)
			}
		}
	}
	return s, nil
}

// Root возвращает корень хранилища.
func (s *Store) Root() string {
	return s.root
}

// Dir возвращает абсолютный путь раздела для видимости и категории.
func (s *Store) Dir(vis model.Visibility, cat model.Category) string {
	var name string
	switch {
	case cat == model.CategoryImage && vis == model.VisibilityPublic:
		name = dirImagesPublic
	case cat == model.CategoryImage && vis == model.VisibilityPrivate:
		name = dirImagesPrivate
	case cat == model.CategoryPDF && vis == model.VisibilityPublic:
		name = dirPDFsPublic
	default:
		name = dirPDFsPrivate
	}
	return filepath.Join(s.root, name)
}

// Path — чистая функция восстановления абсолютного пути файла.
// Используется одинаково при записи, чтении и удалении.
func (s *Store) Path(vis model.Visibility, cat model.Category, serverName string) string {
	return filepath.Join(s.Dir(vis, cat), serverName)
}

// NewServerName генерирует серверное имя файла для хранения.
// Формат: {prefix}-{timestamp}-{uuid8}{ext}, например img-20260901150405-a1b2c3d4.jpg.
// Каноническое расширение берётся из sniff-нутого MIME-типа.
func NewServerName(mediaType string) string {
	prefix := "pdf"
	if model.CategoryOf(mediaType) == model.CategoryImage {
		prefix = "img"
	}
	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s-%s%s", prefix, ts, uid, model.Ext(mediaType))
}

// Save записывает данные в раздел атомарно: temp файл → запись →
// fsync → rename. При ошибке temp файл удаляется.
func (s *Store) Save(vis model.Visibility, cat model.Category, serverName string, data []byte) error {
	// Раздел создан в New, но директорию могли удалить извне
	if err := os.MkdirAll(s.Dir(vis, cat), 0o750); err != nil {
		return fmt.Errorf("не удалось создать раздел: %w", err)
	}

	fullPath := s.Path(vis, cat, serverName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Open открывает файл раздела для чтения.
// Вызывающий код обязан закрыть *os.File на любом пути выхода.
func (s *Store) Open(vis model.Visibility, cat model.Category, serverName string) (*os.File, error) {
	fullPath := s.Path(vis, cat, serverName)

	f, err := os.Open(fullPath)
	if err != nil {
		// os.ErrNotExist сохраняется в цепочке для errors.Is у вызывающего
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", serverName, err)
	}
	return f, nil
}

// Delete удаляет файл раздела.
// Возвращает nil если файл уже не существует (сага delete толерантна
// к повторному выполнению после сбоя).
func (s *Store) Delete(vis model.Visibility, cat model.Category, serverName string) error {
	err := os.Remove(s.Path(vis, cat, serverName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", serverName, err)
	}
	return nil
}

// Exists проверяет существование файла раздела на диске.
func (s *Store) Exists(vis model.Visibility, cat model.Category, serverName string) bool {
	_, err := os.Stat(s.Path(vis, cat, serverName))
	return err == nil
}

// Size возвращает размер файла раздела на диске.
func (s *Store) Size(vis model.Visibility, cat model.Category, serverName string) (int64, error) {
	info, err := os.Stat(s.Path(vis, cat, serverName))
	if err != nil {
		return 0, fmt.Errorf("ошибка получения информации о файле %s: %w", serverName, err)
	}
	return info.Size(), nil
}
