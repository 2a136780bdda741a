package response

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope — единый формат ответа API
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Errors    interface{} `json:"errors,omitempty"`
	Timestamp string      `json:"timestamp"`
}

var now = time.Now

// OK пишет успешный ответ
func OK(w http.ResponseWriter, status int, message string, data interface{}) {
	write(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error пишет ответ с ошибкой. errs уходит клиенту как есть,
// поэтому внутренний текст ошибок сюда передавать нельзя.
func Error(w http.ResponseWriter, status int, message string, errs interface{}) {
	write(w, status, Envelope{
		Success: false,
		Message: message,
		Errors:  errs,
	})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	env.Timestamp = now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// заголовок уже отправлен, ошибку кодирования вернуть клиенту не получится
	_ = json.NewEncoder(w).Encode(env)
}
