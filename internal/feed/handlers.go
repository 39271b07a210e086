package feed

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/auth"
	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
	"github.com/imadgeboyega/wedding-backend/internal/posts"
)

type Handler struct {
	store  *Store
	posts  *posts.Service
	logger *zap.Logger
}

func NewHandler(store *Store, posts *posts.Service, logger *zap.Logger) *Handler {
	return &Handler{store: store, posts: posts, logger: logger}
}

// RegisterRoutes mounts feed actions on an authenticated /api/v1 router
func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/feed", h.GetFeed).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/like", h.ToggleLike).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/comments", h.AddComment).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}", h.DeletePost).Methods(http.MethodDelete)
}

type likeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// GetFeed serves the in-memory window. Older pages requested with
// ?before= are read from the database.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	limit := utils.QueryInt(r, "limit", 20, 100)

	before, err := posts.ParseBefore(r)
	if err != nil {
		utils.ErrorResponse(w, "Invalid before cursor", http.StatusBadRequest)
		return
	}
	if !before.IsZero() {
		list, err := h.posts.ListFeed(r.Context(), viewer, limit, before)
		if err != nil {
			posts.WriteError(w, h.logger, err)
			return
		}
		utils.SuccessResponse(w, list, http.StatusOK)
		return
	}

	utils.SuccessResponse(w, h.store.Feed(viewer, limit), http.StatusOK)
}

func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	postID := mux.Vars(r)["id"]

	liked, count, err := h.store.ToggleLike(r.Context(), postID, viewer)
	if errors.Is(err, ErrNotLoaded) {
		// outside the window: write through
		post, gerr := h.posts.GetPost(r.Context(), postID, viewer)
		if gerr != nil {
			posts.WriteError(w, h.logger, gerr)
			return
		}
		liked = !post.Liked
		count, err = h.posts.SetLike(r.Context(), postID, viewer, liked)
	}
	if err != nil {
		posts.WriteError(w, h.logger, err)
		return
	}
	utils.SuccessResponse(w, likeResponse{Liked: liked, LikeCount: count}, http.StatusOK)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	postID := mux.Vars(r)["id"]

	var req posts.CommentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.posts.NewComment(r.Context(), postID, viewer, req.Text)
	if err != nil {
		posts.WriteError(w, h.logger, err)
		return
	}

	err = h.store.AddComment(r.Context(), comment)
	if errors.Is(err, ErrNotLoaded) {
		err = h.posts.AddComment(r.Context(), comment)
	}
	if err != nil {
		posts.WriteError(w, h.logger, err)
		return
	}
	utils.SuccessResponse(w, comment, http.StatusCreated)
}

// DeletePost lets the author or an admin remove a post
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	if err := h.store.DeleteAs(r.Context(), mux.Vars(r)["id"], viewer, auth.IsAdmin(r.Context())); err != nil {
		posts.WriteError(w, h.logger, err)
		return
	}
	utils.MessageResponse(w, "Gönderi silindi.", http.StatusOK)
}
