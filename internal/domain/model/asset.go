// Пакет model — доменные модели Media Storage: проекты (тенанты)
// и ассеты (метаданные загруженных файлов).
package model

import "time"

// Visibility — видимость ассета: публичный (доступен по прямому URL)
// или приватный (доступен только по download-токену).
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Category — категория медиа, определяет раздел хранения и каноническое
// расширение файла на диске.
type Category string

const (
	CategoryImage Category = "image"
	CategoryPDF   Category = "pdf"
)

// MIME-типы, допустимые к хранению.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimePDF  = "application/pdf"
)

// CategoryOf возвращает категорию хранения для sniff-нутого MIME-типа.
// Для неизвестных типов возвращает пустую категорию.
func CategoryOf(mediaType string) Category {
	switch mediaType {
	case MimeJPEG, MimePNG:
		return CategoryImage
	case MimePDF:
		return CategoryPDF
	}
	return ""
}

// Ext возвращает каноническое расширение файла для MIME-типа.
// Расширение клиента не используется никогда.
func Ext(mediaType string) string {
	switch mediaType {
	case MimeJPEG:
		return ".jpg"
	case MimePNG:
		return ".png"
	case MimePDF:
		return ".pdf"
	}
	return ""
}

// Asset — метаданные загруженного файла.
// Инварианты (также закреплены CHECK-констрейнтом в БД):
//   - URL != nil ⇔ Visibility == public
//   - DownloadToken != nil ⇔ Visibility == private
//   - FilenameServer + Visibility + категория (из MediaType) однозначно
//     восстанавливают физический путь файла.
type Asset struct {
	// ID — монотонный идентификатор (BIGSERIAL)
	ID int64 `json:"id"`
	// ProjectName — проект-владелец; ассеты между проектами не переносятся
	ProjectName string `json:"project_name"`
	// FilenameOriginal — имя файла от клиента; только для отображения,
	// в пути хранения не участвует
	FilenameOriginal string `json:"filename_original"`
	// FilenameServer — сгенерированное сервером имя, уникальное в разделе
	FilenameServer string `json:"filename_server"`
	// MediaType — MIME-тип, определённый по содержимому (не по заголовкам клиента)
	MediaType string `json:"media_type"`
	// ByteSize — размер файла после нормализации
	ByteSize int64 `json:"byte_size"`
	// Visibility — public или private
	Visibility Visibility `json:"visibility"`
	// URL — публичный URL (только для public)
	URL *string `json:"url"`
	// DownloadToken — токен скачивания (только для private)
	DownloadToken *string `json:"download_token,omitempty"`
	// UploadedBy — атрибуция загрузившего (опционально)
	UploadedBy *string `json:"uploaded_by,omitempty"`
	// CreatedAt — момент создания, неизменяемый
	CreatedAt time.Time `json:"created_at"`
}

// Category возвращает категорию хранения ассета.
func (a *Asset) Category() Category {
	return CategoryOf(a.MediaType)
}

// IsPrivate — true для приватных ассетов.
func (a *Asset) IsPrivate() bool {
	return a.Visibility == VisibilityPrivate
}
