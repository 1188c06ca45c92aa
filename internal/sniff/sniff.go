// Пакет sniff — определение истинного MIME-типа по magic-байтам содержимого.
// Заявленный клиентом Content-Type и расширение имени файла никогда не
// участвуют в решениях о валидации и хранении: переименованный исполняемый
// файл с расширением .png отклоняется здесь.
package sniff

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
)

// ErrInvalidContent — содержимое пустое, нераспознаваемое или вне allow-list.
var ErrInvalidContent = errors.New("недопустимое содержимое файла")

// allow-lists по категориям.
var (
	imageTypes = map[string]bool{
		model.MimeJPEG: true,
		model.MimePNG:  true,
	}
	pdfTypes = map[string]bool{
		model.MimePDF: true,
	}
)

// Detect возвращает MIME-тип буфера по magic-байтам.
// Пустой буфер — всегда ошибка.
func Detect(buf []byte) (string, error) {
	if len(buf) == 0 {
		return "", fmt.Errorf("%w: пустой буфер", ErrInvalidContent)
	}
	return mimetype.Detect(buf).String(), nil
}

// DetectImage определяет тип буфера и проверяет его по allow-list
// изображений (JPEG, PNG). Возвращает канонический MIME-тип.
func DetectImage(buf []byte) (string, error) {
	mt, err := Detect(buf)
	if err != nil {
		return "", err
	}
	if !imageTypes[mt] {
		return "", fmt.Errorf("%w: обнаружен %s, допустимы только JPEG и PNG", ErrInvalidContent, mt)
	}
	return mt, nil
}

// DetectPDF определяет тип буфера и проверяет, что это PDF.
func DetectPDF(buf []byte) (string, error) {
	mt, err := Detect(buf)
	if err != nil {
		return "", err
	}
	if !pdfTypes[mt] {
		return "", fmt.Errorf("%w: обнаружен %s, допустим только PDF", ErrInvalidContent, mt)
	}
	return mt, nil
}
