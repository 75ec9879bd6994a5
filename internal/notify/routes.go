package notify

import (
	"github.com/gorilla/mux"

	"github.com/lmartin/matcha-server/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/notifications").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.ListNotifications).Methods("POST")
	api.HandleFunc("/read-all", handler.MarkAllAsRead).Methods("POST")
	api.HandleFunc("/{id}/read", handler.MarkAsRead).Methods("POST")

	// Realtime channel
	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(authMiddleware.Authenticate)
	ws.HandleFunc("", handler.ServeWS).Methods("GET")
}
