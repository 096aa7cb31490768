package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Retryable        bool   `json:"retryable,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, desc string) {
	rid := w.Header().Get("X-Request-ID")
	WriteJSON(w, status, apiError{Error: code, ErrorDescription: desc, RequestID: rid})
}

// WriteResolutionError serializa un ResolutionError con su status sugerido.
func WriteResolutionError(w http.ResponseWriter, resErr *domain.ResolutionError) {
	status := resErr.StatusCode
	if status < 400 || status > 599 {
		status = http.StatusServiceUnavailable
	}
	rid := w.Header().Get("X-Request-ID")
	WriteJSON(w, status, apiError{
		Error:            string(resErr.Code),
		ErrorDescription: resErr.Message,
		Retryable:        resErr.Retryable,
		RequestID:        rid,
	})
}
