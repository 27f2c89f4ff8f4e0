// Пакет errors — ответы с ошибками в едином формате:
// {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками пишутся через WriteError.
package errors //nolint:revive // совпадает с именем stdlib, импортируется как apierrors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/VigneshMurugan/pdf-utils/internal/service"
)

// Коды ошибок, определённые в OpenAPI-документе.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeFileTooLarge     = service.CodeFileTooLarge
	CodeInvalidPassword  = "INVALID_PASSWORD"
	CodeProcessingFailed = "PROCESSING_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// MsgRateLimited — сообщение клиенту при превышении лимита запросов.
const MsgRateLimited = "Too many requests from this IP, please try again later."

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// FileTooLarge — 400 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeFileTooLarge, message)
}

// NotFound — 404 артефакт не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// RateLimited — 429 превышен лимит запросов.
func RateLimited(w http.ResponseWriter) {
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, MsgRateLimited)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// WriteServiceError записывает ошибку сервисного слоя.
// Ошибка, не являющаяся *service.Error, отдаётся как 500 без подробностей.
func WriteServiceError(w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if !stderrors.As(err, &svcErr) {
		InternalError(w, "Internal server error")
		return
	}

	status, code := statusFor(svcErr.Kind)
	if svcErr.Code != "" {
		code = svcErr.Code
	}
	WriteError(w, status, code, svcErr.Message)
}

// statusFor — HTTP статус и код по категории ошибки.
func statusFor(kind service.Kind) (int, string) {
	switch kind {
	case service.KindInvalidInput:
		return http.StatusBadRequest, CodeValidationError
	case service.KindInvalidPassword:
		return http.StatusBadRequest, CodeInvalidPassword
	case service.KindProcessingFailed:
		return http.StatusInternalServerError, CodeProcessingFailed
	case service.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}
