// internal/notify/handlers.go

package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/lmartin/matcha-server/internal/common/utils"
)

// Upgrader for WebSocket connections
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

type Handler struct {
	repo Repository
	hub  *Hub
}

func NewHandler(repo Repository, hub *Hub) *Handler {
	return &Handler{repo: repo, hub: hub}
}

type inboxParams struct {
	Limit  int `json:"limit" validate:"omitempty,gte=1,lte=100"`
	Offset int `json:"offset" validate:"omitempty,gte=0"`
}

// ListNotifications returns the caller's inbox, newest first
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	params := inboxParams{Limit: 20}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}

	if err := utils.ValidateStruct(params); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if params.Limit == 0 {
		params.Limit = 20
	}

	notifications, err := h.repo.GetUserNotifications(r.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		log.Printf("Failed to list notifications for user %d: %v", userID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get notifications")
		return
	}

	unread, err := h.repo.GetUnreadCount(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to count unread notifications for user %d: %v", userID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get notifications")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, InboxResponse{
		Notifications: notifications,
		UnreadCount:   unread,
		Limit:         params.Limit,
		Offset:        params.Offset,
	})
}

// MarkAsRead marks one owned notification as read
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	vars := mux.Vars(r)
	notificationID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := h.repo.MarkAsRead(r.Context(), notificationID, userID); err != nil {
		if err == ErrNotificationNotFound {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("Failed to mark notification %d read: %v", notificationID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to mark notification as read")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllAsRead marks every unread notification of the caller as read
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	if err := h.repo.MarkAllAsRead(r.Context(), userID); err != nil {
		log.Printf("Failed to mark all notifications read for user %d: %v", userID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to mark notifications as read")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

// ServeWS upgrades the connection and registers the session with the hub
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for user %d: %v", userID, err)
		return
	}

	client := NewClient(h.hub, conn, userID)
	h.hub.register <- client
	client.Start()
}
