//internal/profile/handlers.go

package profile

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/auth"
	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
	"github.com/imadgeboyega/wedding-backend/internal/media"
)

// Handler handles profile-related HTTP requests
type Handler struct {
	service       *Service
	maxUploadSize int64
	logger        *zap.Logger
}

func NewHandler(service *Service, maxUploadSize int64, logger *zap.Logger) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSize, logger: logger}
}

// GetMyProfile handles getting current user's profile
func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	h.writeProfile(w, r, userID)
}

func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	h.writeProfile(w, r, mux.Vars(r)["id"])
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, p, http.StatusOK)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	var req UpdateProfileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.service.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, p, http.StatusOK)
}

// UpdateAvatar takes a multipart "avatar" file part, or JSON {"avatar": ref}
// with a remote URL or data URL.
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	var ref string
	var files media.Files

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			utils.ErrorResponse(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()
		ref = "blob:avatar"
		files = media.NewFormFiles(r.MultipartForm, h.maxUploadSize)
	} else {
		var req AvatarRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		ref = req.Avatar
	}

	p, err := h.service.UpdateAvatar(r.Context(), userID, ref, files)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.SuccessResponse(w, p, http.StatusOK)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var upload *media.UploadError

	switch {
	case errors.As(err, &upload):
		utils.CodedErrorResponse(w, string(upload.Kind), upload.Message(), upload.Kind.HTTPStatus())
	case errors.Is(err, ErrProfileNotFound):
		utils.ErrorResponse(w, "Profil bulunamadı.", http.StatusNotFound)
	case errors.Is(err, ErrUsernameTaken):
		utils.CodedErrorResponse(w, "username_taken", "Bu kullanıcı adı zaten alınmış.", http.StatusConflict)
	case errors.Is(err, ErrInvalidUsername):
		utils.CodedErrorResponse(w, "invalid_username", "Kullanıcı adı 3-30 karakter olmalı; harf, rakam, nokta ve alt çizgi içerebilir.", http.StatusBadRequest)
	case errors.Is(err, ErrInvalidAvatar):
		utils.CodedErrorResponse(w, "invalid_avatar", "Profil fotoğrafı bir resim olmalı.", http.StatusUnprocessableEntity)
	case errors.Is(err, database.ErrReadOnly):
		utils.CodedErrorResponse(w, "read_only", database.ReadOnlyMessage, http.StatusServiceUnavailable)
	default:
		h.logger.Error("profile request failed", zap.Error(err))
		utils.ErrorResponse(w, "Failed to process profile", http.StatusInternalServerError)
	}
}
