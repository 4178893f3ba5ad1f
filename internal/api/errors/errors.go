// Пакет errors — ответы с ошибками для HTTP API.
// Формат совместим с браузерным расширением: {"error": "..."}.
package errors

import (
	"encoding/json"
	"net/http"
)

// errorBody — тело ответа с ошибкой.
type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON записывает JSON-ответ с указанным статусом.
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError записывает ответ с ошибкой.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, errorBody{Error: message})
}

// BadRequest — 400 некорректный запрос или отклонённая заявка.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// MethodNotAllowed — 405 метод не поддерживается маршрутом.
func MethodNotAllowed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusMethodNotAllowed, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
