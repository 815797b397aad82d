// Пакет errors — ответы об ошибках HTTP API share-module:
// {"error": {"code": "...", "message": "..."}}.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeInternalError   = "INTERNAL_ERROR"
)

// codeByStatus — код ошибки для каждого статуса, который отдаёт API.
var codeByStatus = map[int]string{
	http.StatusBadRequest:            CodeValidationError,
	http.StatusUnauthorized:          CodeUnauthorized,
	http.StatusForbidden:             CodeForbidden,
	http.StatusNotFound:              CodeNotFound,
	http.StatusConflict:              CodeConflict,
	http.StatusRequestEntityTooLarge: CodePayloadTooLarge,
	http.StatusInternalServerError:   CodeInternalError,
}

// Body — тело ответа об ошибке.
type Body struct {
	Error Detail `json:"error"`
}

// Detail — код и сообщение.
type Detail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ с явно заданным кодом.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(Body{Error: Detail{Code: code, Message: message}})
}

// WriteStatus записывает ответ, выбирая код по статусу.
// Статус вне таблицы получает INTERNAL_ERROR.
func WriteStatus(w http.ResponseWriter, statusCode int, message string) {
	code, ok := codeByStatus[statusCode]
	if !ok {
		code = CodeInternalError
	}
	WriteError(w, statusCode, code, message)
}

// ValidationError — 400.
func ValidationError(w http.ResponseWriter, message string) {
	WriteStatus(w, http.StatusBadRequest, message)
}

// Unauthorized — 401, нет или недействителен Bearer-токен.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteStatus(w, http.StatusUnauthorized, message)
}

// Forbidden — 403, файл существует, но вызывающему недоступен.
func Forbidden(w http.ResponseWriter, message string) {
	WriteStatus(w, http.StatusForbidden, message)
}

// NotFound — 404.
func NotFound(w http.ResponseWriter, message string) {
	WriteStatus(w, http.StatusNotFound, message)
}

// Conflict — 409, запись изменена параллельным запросом.
func Conflict(w http.ResponseWriter, message string) {
	WriteStatus(w, http.StatusConflict, message)
}

// PayloadTooLarge — 413, файл больше FS_MAX_UPLOAD_MB.
func PayloadTooLarge(w http.ResponseWriter, message string) {
	WriteStatus(w, http.StatusRequestEntityTooLarge, message)
}

// InternalError — 500. Подробности только в логе.
func InternalError(w http.ResponseWriter, message string) {
	WriteStatus(w, http.StatusInternalServerError, message)
}
