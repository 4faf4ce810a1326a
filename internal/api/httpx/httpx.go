package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/baharkarakas/simsforum/internal/models"
)

const maxBodyBytes = 1 << 20

// M is a success body. OK adds "success": true to it.
type M map[string]any

type APIError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, status int, body M) {
	if body == nil {
		body = M{}
	}
	body["success"] = true
	WriteJSON(w, status, body)
}

// Fail writes the error envelope with an explicit status and code.
func Fail(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, APIError{Error: msg, Code: code, Details: details})
}

func StatusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindAuth:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err. Domain errors keep their message; anything else
// becomes a generic 500. It returns the status written.
func WriteError(w http.ResponseWriter, err error) int {
	var de *models.Error
	if errors.As(err, &de) {
		status := StatusFor(de.Kind)
		Fail(w, status, string(de.Kind), de.Message, de.Details)
		return status
	}
	Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	return http.StatusInternalServerError
}

// Decode reads a JSON body into dst. An empty body leaves dst untouched.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		return models.Validation("invalid JSON body")
	}
}
