// internal/messaging/handlers.go

package messaging

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/auth"
	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
)

type Handler struct {
	service  *Service
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// connections outlive the upgrade request
	connCtx context.Context
}

// NewHandler builds the REST and websocket handlers. allowedOrigins limits
// websocket upgrades; an empty list accepts any origin.
func NewHandler(ctx context.Context, service *Service, hub *Hub, allowedOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
		connCtx: ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	NewClient(h.hub, conn, userID, h.service, h.logger).Start(h.connCtx)
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	convs, err := h.service.ListConversations(r.Context(), viewer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, convs, http.StatusOK)
}

// GetConversationWith returns the thread with another user, or a
// placeholder the client can render as an empty conversation.
func (h *Handler) GetConversationWith(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	conv, err := h.service.GetConversationWith(r.Context(), viewer, mux.Vars(r)["userId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, conv, http.StatusOK)
}

func (h *Handler) OpenConversation(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	conv, err := h.service.OpenConversation(r.Context(), mux.Vars(r)["id"], viewer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, conv, http.StatusOK)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	limit := utils.QueryInt(r, "limit", 0, 500)

	msgs, err := h.service.ListMessages(r.Context(), mux.Vars(r)["id"], viewer, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, msgs, http.StatusOK)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sender, _ := auth.GetUserIDFromContext(r.Context())

	var req SendMessageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.service.SendDirectMessage(r.Context(), sender, req.RecipientID, req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, msg, http.StatusCreated)
}

func (h *Handler) ListChatMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.ListChatMessages(r.Context(), utils.QueryInt(r, "limit", 0, 500))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, msgs, http.StatusOK)
}

func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	sender, _ := auth.GetUserIDFromContext(r.Context())

	var req ChatMessageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.service.SendChatMessage(r.Context(), sender, req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, msg, http.StatusCreated)
}

func (h *Handler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	var req PushTokenRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.RegisterPushToken(r.Context(), userID, req); err != nil {
		h.writeError(w, err)
		return
	}
	utils.MessageResponse(w, "Bildirimler etkinleştirildi.", http.StatusOK)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrConversationNotFound):
		utils.ErrorResponse(w, "Sohbet bulunamadı.", http.StatusNotFound)
	case errors.Is(err, ErrNotParticipant):
		utils.ErrorResponse(w, "Bu sohbete erişiminiz yok.", http.StatusForbidden)
	case errors.Is(err, ErrEmptyMessage):
		utils.ErrorResponse(w, "Mesaj boş olamaz.", http.StatusBadRequest)
	case errors.Is(err, ErrSelfMessage):
		utils.ErrorResponse(w, "Kendinize mesaj gönderemezsiniz.", http.StatusBadRequest)
	case errors.Is(err, ErrInvalidUserID):
		utils.ErrorResponse(w, "Geçersiz kullanıcı.", http.StatusBadRequest)
	case errors.Is(err, database.ErrReadOnly):
		utils.ErrorResponse(w, database.ReadOnlyMessage, http.StatusServiceUnavailable)
	default:
		h.logger.Error("messaging request failed", zap.Error(err))
		utils.ErrorResponse(w, "Internal server error", http.StatusInternalServerError)
	}
}
