// errors.go — типизированные ошибки сервисного слоя.
// Сервис принимает решение о статусе и коде, HTTP-слой только сериализует.
package service

import (
	"net/http"

	apierrors "github.com/dinkesmg/dinkes-media-storage/internal/api/errors"
)

// Error — ошибка бизнес-операции с заранее определённым HTTP-отображением.
type Error struct {
	// StatusCode — HTTP статус-код ответа
	StatusCode int
	// Code — машиночитаемый код ошибки
	Code string
	// Message — человекочитаемое описание
	Message string
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	return e.Message
}

// Write сериализует ошибку в HTTP-ответ в стандартном формате.
func (e *Error) Write(w http.ResponseWriter) {
	apierrors.WriteError(w, e.StatusCode, e.Code, e.Message)
}

// --- Конструкторы ---

func errFileTooLarge(message string) *Error {
	return &Error{StatusCode: http.StatusRequestEntityTooLarge, Code: apierrors.CodeFileTooLarge, Message: message}
}

func errInvalidContent(message string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Code: apierrors.CodeInvalidContent, Message: message}
}

func errProcessing(message string) *Error {
	return &Error{StatusCode: http.StatusInternalServerError, Code: apierrors.CodeProcessingError, Message: message}
}

func errNotFound(message string) *Error {
	return &Error{StatusCode: http.StatusNotFound, Code: apierrors.CodeNotFound, Message: message}
}

func errInternal(message string) *Error {
	return &Error{StatusCode: http.StatusInternalServerError, Code: apierrors.CodeInternalError, Message: message}
}
