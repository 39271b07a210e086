// internal/posts/handlers.go
package posts

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/auth"
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

// CreatePost accepts JSON or multipart/form-data. In multipart requests the
// "media" values are references; "blob:<part>" names a file part. Without
// "media" values every file part is used, ordered by part name.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	var req CreatePostRequest
	var files media.Files

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize*10)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			utils.ErrorResponse(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		req.Caption = r.FormValue("caption")
		if tags := r.FormValue("hashtags"); tags != "" {
			req.Hashtags = strings.Split(tags, ",")
		}
		req.Media = r.MultipartForm.Value["media"]
		if len(req.Media) == 0 {
			names := make([]string, 0, len(r.MultipartForm.File))
			for name := range r.MultipartForm.File {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				req.Media = append(req.Media, "blob:"+name)
			}
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

	post, err := h.service.CreatePost(r.Context(), userID, &req, files)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	utils.SuccessResponse(w, post, http.StatusCreated)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())

	post, err := h.service.GetPost(r.Context(), mux.Vars(r)["id"], viewer)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	utils.SuccessResponse(w, post, http.StatusOK)
}

func (h *Handler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.GetUserIDFromContext(r.Context())
	limit := utils.QueryInt(r, "limit", 30, 100)

	list, err := h.service.ListUserPosts(r.Context(), mux.Vars(r)["id"], viewer, limit)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	utils.SuccessResponse(w, list, http.StatusOK)
}

// ParseBefore reads the "before" RFC 3339 cursor, zero when absent
func ParseBefore(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("before")
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

// WriteError maps post, media and sample-mode errors to responses
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var partial *media.PartialUploadError
	var upload *media.UploadError

	switch {
	case errors.As(err, &partial):
		utils.DetailedErrorResponse(w, string(partial.Err.Kind), partial.Message(), partial.Details(), partial.Err.Kind.HTTPStatus())
	case errors.As(err, &upload):
		utils.CodedErrorResponse(w, string(upload.Kind), upload.Message(), upload.Kind.HTTPStatus())
	case errors.Is(err, ErrNoMedia):
		utils.CodedErrorResponse(w, "no_media", "Lütfen en az bir fotoğraf veya video ekleyin.", http.StatusBadRequest)
	case errors.Is(err, ErrEmptyComment):
		utils.CodedErrorResponse(w, "empty_comment", "Yorum boş olamaz.", http.StatusBadRequest)
	case errors.Is(err, ErrPostNotFound):
		utils.CodedErrorResponse(w, "not_found", "Gönderi bulunamadı.", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		utils.CodedErrorResponse(w, "forbidden", "Bu gönderiyi değiştirme yetkiniz yok.", http.StatusForbidden)
	case errors.Is(err, database.ErrReadOnly):
		utils.CodedErrorResponse(w, "read_only", database.ReadOnlyMessage, http.StatusServiceUnavailable)
	default:
		logger.Error("post request failed", zap.Error(err))
		utils.ErrorResponse(w, "Bir hata oluştu. Lütfen tekrar deneyin.", http.StatusInternalServerError)
	}
}
