package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/export"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/Dan9191/budget-service/internal/response"
	"github.com/Dan9191/budget-service/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// CreateTransaction records a transaction for the caller
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var in service.CreateTransactionInput
	if !h.decodeJSON(w, r, &in) {
		return
	}

	tx, err := h.svc.CreateTransaction(r.Context(), user, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, h.log, http.StatusCreated, tx.Response())
}

// ListTransactions returns one page of the caller's transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	var fields []apperr.FieldError
	skip, err := intParam(query.Get("skip"), 0)
	if err != nil {
		fields = append(fields, apperr.FieldError{Field: "skip", Message: "must be an integer"})
	}
	limit, err := intParam(query.Get("limit"), service.DefaultPageLimit)
	if err != nil {
		fields = append(fields, apperr.FieldError{Field: "limit", Message: "must be an integer"})
	}
	if len(fields) > 0 {
		h.fail(w, r, apperr.Validation("validation failed", fields...))
		return
	}

	txs, err := h.svc.ListTransactions(r.Context(), user, skip, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]models.TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, txs[i].Response())
	}
	response.JSON(w, r, h.log, http.StatusOK, out)
}

// GetTransaction returns one of the caller's transactions
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.GetTransaction(r.Context(), user, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, h.log, http.StatusOK, tx.Response())
}

// DeleteTransaction soft deletes one of the caller's transactions
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteTransaction(r.Context(), user, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Balance returns the caller's totals
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	balance, err := h.svc.Balance(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, h.log, http.StatusOK, balance)
}

// Export renders the caller's statement as XML or PDF
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(export.FormatXML)
	}
	format, ok := export.ParseFormat(raw)
	if !ok {
		names := make([]string, 0, len(export.Formats))
		for _, f := range export.Formats {
			names = append(names, string(f))
		}
		response.Validation(w, r, h.log, "format", "must be one of: "+strings.Join(names, ", "))
		return
	}

	st, err := h.svc.Statement(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// render fully before writing so a failure can still become a 500
	var buf bytes.Buffer
	if err := export.Write(&buf, format, st); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(st.GeneratedAt)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Validation(w, r, h.log, "id", "must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
