// handler.go — общие вспомогательные функции HTTP-обработчиков.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apierrors "github.com/dinkesmg/dinkes-media-storage/internal/api/errors"
)

// multipartOverhead — запас поверх лимита файла на заголовки и границы
// multipart-формы при ограничении тела запроса.
const multipartOverhead = 1 << 20

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parseFlag интерпретирует значение флага формы как булево.
// Истинные значения: "1", "true", "on", "yes" (без учёта регистра).
func parseFlag(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// readUpload извлекает файл из multipart-поля "file".
// Тело запроса ограничено лимитом файла плюс запас на оформление формы:
// превышение не буферизуется в памяти. Возвращает содержимое и исходное
// имя файла; при ошибке ответ уже записан.
func readUpload(w http.ResponseWriter, r *http.Request, sizeLimit int64) (data []byte, filename string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, sizeLimit+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Размер файла превышает лимит %d байт", sizeLimit))
			return nil, "", false
		}
		apierrors.ValidationError(w, "Поле формы 'file' отсутствует или некорректно")
		return nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Размер файла превышает лимит %d байт", sizeLimit))
			return nil, "", false
		}
		apierrors.InternalError(w, "Не удалось прочитать файл из запроса")
		return nil, "", false
	}

	return data, header.Filename, true
}
