package handler

import (
	"net/http"

	"github.com/Dan9191/budget-service/internal/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter wires every route. Protected routes share the auth middleware.
func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(h.svc, h.log))
	authRouter.HandleFunc("/auth/me", h.Me).Methods("GET")
	authRouter.HandleFunc("/auth/me", h.DeleteMe).Methods("DELETE")
	authRouter.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	// fixed paths before {id}
	authRouter.HandleFunc("/transactions/balance/current", h.Balance).Methods("GET")
	authRouter.HandleFunc("/transactions/export", h.Export).Methods("GET")
	authRouter.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
	authRouter.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods("DELETE")

	return withMiddleware(r, h.log, corsOrigins)
}

// withMiddleware wraps next, outermost first: access log, panic recovery, security headers, CORS
func withMiddleware(next http.Handler, log *logrus.Logger, corsOrigins []string) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	handler := cors(next)
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.Recoverer(log)(handler)
	handler = middleware.Logging(log)(handler)
	return handler
}
