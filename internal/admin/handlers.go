package admin

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/auth"
	"github.com/imadgeboyega/wedding-backend/internal/blog"
	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
	"github.com/imadgeboyega/wedding-backend/internal/posts"
)

// ResetConfirmation must be sent verbatim to wipe all data
const ResetConfirmation = "SIFIRLA"

type ResetRequest struct {
	Confirm string `json:"confirm"`
}

type Handler struct {
	service    *Service
	sampleMode bool
	logger     *zap.Logger
}

func NewHandler(service *Service, sampleMode bool, logger *zap.Logger) *Handler {
	return &Handler{service: service, sampleMode: sampleMode, logger: logger}
}

// RegisterRoutes mounts moderation on a router already guarded by RequireAdmin
func RegisterRoutes(admin *mux.Router, h *Handler) {
	admin.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	admin.HandleFunc("/posts/{id}", h.DeletePost).Methods(http.MethodDelete)
	admin.HandleFunc("/blog/{id}", h.DeleteBlogPost).Methods(http.MethodDelete)
	admin.HandleFunc("/reset", h.ResetAll).Methods(http.MethodPost)
}

type statusResponse struct {
	Admin      bool `json:"admin"`
	SampleMode bool `json:"sample_mode"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, statusResponse{Admin: auth.IsAdmin(r.Context()), SampleMode: h.sampleMode}, http.StatusOK)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.GetUserIDFromContext(r.Context())
	if err := h.service.DeletePost(r.Context(), adminID, mux.Vars(r)["id"]); err != nil {
		posts.WriteError(w, h.logger, err)
		return
	}
	utils.MessageResponse(w, "Gönderi silindi.", http.StatusOK)
}

func (h *Handler) DeleteBlogPost(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.GetUserIDFromContext(r.Context())
	err := h.service.DeleteBlogPost(r.Context(), adminID, mux.Vars(r)["id"])
	switch {
	case err == nil:
		utils.MessageResponse(w, "Blog yazısı silindi.", http.StatusOK)
	case errors.Is(err, blog.ErrPostNotFound):
		utils.ErrorResponse(w, "Blog yazısı bulunamadı.", http.StatusNotFound)
	default:
		h.writeError(w, err)
	}
}

func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.GetUserIDFromContext(r.Context())

	var req ResetRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Confirm != ResetConfirmation {
		utils.CodedErrorResponse(w, "confirmation_required",
			"Tüm verileri silmek için \""+ResetConfirmation+"\" yazın.", http.StatusBadRequest)
		return
	}

	if err := h.service.ResetAll(r.Context(), adminID); err != nil {
		h.writeError(w, err)
		return
	}
	utils.MessageResponse(w, "Tüm veriler silindi.", http.StatusOK)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrReadOnly) {
		utils.CodedErrorResponse(w, "read_only", database.ReadOnlyMessage, http.StatusServiceUnavailable)
		return
	}
	h.logger.Error("admin request failed", zap.Error(err))
	utils.ErrorResponse(w, "Bir hata oluştu. Lütfen tekrar deneyin.", http.StatusInternalServerError)
}
