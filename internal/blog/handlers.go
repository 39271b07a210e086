package blog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
	"github.com/imadgeboyega/wedding-backend/internal/media"
)

type Handler struct {
	service       *Service
	maxUploadSize int64
	logger        *zap.Logger
}

func NewHandler(service *Service, maxUploadSize int64, logger *zap.Logger) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSize, logger: logger}
}

// RegisterRoutes mounts reads on api and publishing on the admin-only
// router. Deletion is a moderation action served by the admin package.
func RegisterRoutes(api, admin *mux.Router, h *Handler) {
	api.HandleFunc("/blog", h.ListPosts).Methods(http.MethodGet)
	api.HandleFunc("/blog/{id}", h.GetPost).Methods(http.MethodGet)

	admin.HandleFunc("/blog", h.CreatePost).Methods(http.MethodPost)
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPosts(r.Context(), utils.QueryInt(r, "limit", defaultListLimit, 100))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, list, http.StatusOK)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, post, http.StatusOK)
}

// CreatePost accepts JSON, or multipart with a "cover" file part
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	var files media.Files

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			utils.ErrorResponse(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		req.Title = r.FormValue("title")
		req.Content = r.FormValue("content")
		req.Author = r.FormValue("author")
		req.CoverImage = r.FormValue("cover_image")
		if _, ok := r.MultipartForm.File["cover"]; ok && req.CoverImage == "" {
			req.CoverImage = "blob:cover"
		}
		files = media.NewFormFiles(r.MultipartForm, h.maxUploadSize)
	} else if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	post, err := h.service.CreatePost(r.Context(), &req, files)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, post, http.StatusCreated)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var upload *media.UploadError

	switch {
	case errors.As(err, &upload):
		utils.CodedErrorResponse(w, string(upload.Kind), upload.Message(), upload.Kind.HTTPStatus())
	case errors.Is(err, ErrPostNotFound):
		utils.ErrorResponse(w, "Blog yazısı bulunamadı.", http.StatusNotFound)
	case errors.Is(err, database.ErrReadOnly):
		utils.CodedErrorResponse(w, "read_only", database.ReadOnlyMessage, http.StatusServiceUnavailable)
	default:
		h.logger.Error("blog request failed", zap.Error(err))
		utils.ErrorResponse(w, "Bir hata oluştu. Lütfen tekrar deneyin.", http.StatusInternalServerError)
	}
}
