// Package response writes JSON bodies and maps classified errors to HTTP statuses.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/sirupsen/logrus"
)

// ErrorBody is the shape of every error response
type ErrorBody struct {
	Detail string              `json:"detail"`
	Errors []apperr.FieldError `json:"errors,omitempty"`
}

const internalBody = `{"detail":"Internal server error"}` + "\n"

// JSON writes v with the given status. v is encoded before the status line goes out;
// a value that cannot be encoded is logged and answered with a 500.
func JSON(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, status int, v interface{}) {
	var buf bytes.Buffer
	if v != nil {
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}).WithError(err).Error("Failed to encode response")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(internalBody))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// StatusOf maps an error kind to its HTTP status
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an ErrorBody. Internal errors are logged and replaced by a generic message.
func Error(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)

	body := ErrorBody{Detail: "Internal server error"}
	if kind == apperr.KindInternal {
		log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("Request failed")
	} else {
		var appErr *apperr.Error
		errors.As(err, &appErr)
		body.Detail = appErr.Message
		body.Errors = appErr.Fields
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	JSON(w, r, log, status, body)
}

// Validation writes a 422 for a request that could not be decoded
func Validation(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, field, message string) {
	Error(w, r, log, apperr.Validation("validation failed", apperr.FieldError{Field: field, Message: message}))
}
