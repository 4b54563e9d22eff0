package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/middleware"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/Dan9191/budget-service/internal/response"
	"github.com/Dan9191/budget-service/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	maxBodyBytes = 1 << 20
	serviceName  = "budget-tracker"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, h.log, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	response.Error(w, r, h.log, err)
}

// decodeJSON reads a single JSON object from the body into v
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		var (
			typeErr *json.UnmarshalTypeError
			timeErr *time.ParseError
		)
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case errors.As(err, &timeErr):
			response.Validation(w, r, h.log, "date", "must be an RFC 3339 timestamp")
			return false
		case errors.As(err, &typeErr):
			h.fail(w, r, apperr.Validation("validation failed", apperr.FieldError{
				Field:   typeErr.Field,
				Message: "must be of type " + typeErr.Type.String(),
			}))
			return false
		}
		response.Validation(w, r, h.log, "body", msg)
		return false
	}
	return true
}

// currentUser returns the user placed in the context by the auth middleware
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthenticated("Not authenticated", nil))
		return nil, false
	}
	return user, true
}
