// Пакет normalize — нормализация изображений перед сохранением:
// автоповорот по EXIF-ориентации, полная очистка встроенных метаданных
// (EXIF/GPS/цветовые профили теряются при перекодировании из декодированных
// пикселей), перекодирование с фиксированными параметрами и ограничение
// разрешения. Для PDF нормализация не выполняется.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/dinkesmg/dinkes-media-storage/internal/domain/model"
)

// Параметры нормализации.
const (
	// MaxDimension — максимальная ширина и высота итогового изображения.
	// Большие изображения уменьшаются с сохранением пропорций;
	// увеличение не выполняется никогда.
	MaxDimension = 1920
	// JPEGQuality — качество перекодирования JPEG.
	JPEGQuality = 85
)

// ErrProcessing — кодек не смог обработать уже прошедший sniff буфер.
// Фатальная ошибка запроса, без ретраев.
var ErrProcessing = errors.New("ошибка обработки изображения")

// Image нормализует изображение и возвращает итоговые байты.
// mediaType — sniff-нутый тип (image/jpeg или image/png); формат
// сохраняется, меняются только параметры кодирования.
func Image(buf []byte, mediaType string) ([]byte, error) {
	// Декодирование с применением EXIF-ориентации: пиксели поворачиваются,
	// сам EXIF-блок дальше не живёт.
	img, err := imaging.Decode(bytes.NewReader(buf), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProcessing, err.Error())
	}

	img = bound(img)

	var out bytes.Buffer
	switch mediaType {
	case model.MimeJPEG:
		err = imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
	case model.MimePNG:
		err = imaging.Encode(&out, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		return nil, fmt.Errorf("%w: неподдерживаемый тип %s", ErrProcessing, mediaType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProcessing, err.Error())
	}

	return out.Bytes(), nil
}

// bound уменьшает изображение до MaxDimension по большей стороне,
// сохраняя пропорции. Изображения в пределах лимита не трогает.
func bound(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= MaxDimension && b.Dy() <= MaxDimension {
		return img
	}
	return imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
}
