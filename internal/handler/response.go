// Package handler exposes the till over HTTP as a small JSON API. Every
// response uses the same envelope the upstream backend uses, so a front
// end can treat both the same way.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/deliverpoint/pos/internal/domain"
)

// Envelope is the uniform response wrapper.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ErrorCodeToHTTPStatus maps a domain error code to an HTTP status code
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	case domain.EINTERNAL:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondJSON writes data inside a success envelope.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

// RespondMessage writes a success envelope carrying only a message.
func RespondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: true, Message: message})
}

// ErrorResponse writes err as an error envelope. Internal errors hide
// their details behind a generic message; everything else surfaces the
// domain message, which is written for the operator.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorCodeToHTTPStatus(code))
	json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Message: message,
		Code:    code,
	})
}
