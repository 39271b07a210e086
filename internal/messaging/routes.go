// internal/messaging/routes.go

package messaging

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts messaging on an authenticated /api/v1 router
func RegisterRoutes(api *mux.Router, handler *Handler) {
	api.HandleFunc("/ws", handler.HandleWebSocket).Methods(http.MethodGet)

	api.HandleFunc("/conversations", handler.ListConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/with/{userId}", handler.GetConversationWith).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/open", handler.OpenConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/messages", handler.ListMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages", handler.SendMessage).Methods(http.MethodPost)

	api.HandleFunc("/chat/messages", handler.ListChatMessages).Methods(http.MethodGet)
	api.HandleFunc("/chat/messages", handler.SendChatMessage).Methods(http.MethodPost)

	api.HandleFunc("/push-tokens", handler.RegisterPushToken).Methods(http.MethodPost)
}
