package handler

import (
	"net/http"

	"github.com/Dan9191/budget-service/internal/response"
	"github.com/Dan9191/budget-service/internal/service"
)

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !h.decodeJSON(w, r, &in) {
		return
	}

	user, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, h.log, http.StatusCreated, user.Response())
}

// Login handles user authentication. Credentials come from the form body only.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		response.Validation(w, r, h.log, "body", "invalid form body")
		return
	}

	token, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, h.log, http.StatusOK, token)
}

// Me returns the authenticated user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, h.log, http.StatusOK, user.Response())
}

// DeleteMe soft deletes the authenticated user's account
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), user.PublicID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
