package matching

import (
	"github.com/gorilla/mux"

	"github.com/lmartin/matcha-server/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/suggestions", handler.Suggestions).Methods("POST")
	api.HandleFunc("/like/{userId}", handler.Like).Methods("POST")
	api.HandleFunc("/like/{userId}", handler.Unlike).Methods("DELETE")
	api.HandleFunc("/views/{userId}", handler.RecordView).Methods("POST")
}
