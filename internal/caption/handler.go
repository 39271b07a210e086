package caption

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
)

type suggestPayload struct {
	Image string `json:"image" validate:"required"`
}

// Handler exposes the suggestion over HTTP
type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes mounts POST /captions/suggest on an authenticated router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/captions/suggest", h.Suggest).Methods(http.MethodPost)
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestPayload
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SuccessResponse(w, h.client.Suggest(r.Context(), req.Image), http.StatusOK)
}
