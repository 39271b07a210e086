// internal/auth/handlers.go

package auth

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
)

// Handler holds dependencies for auth endpoints
type Handler struct {
	service    Service
	middleware *Middleware
}

func NewHandler(service Service, middleware *Middleware) *Handler {
	return &Handler{service: service, middleware: middleware}
}

// RegisterRoutes mounts the auth endpoints under /api/auth
func (h *Handler) RegisterRoutes(router *mux.Router) {
	auth := router.PathPrefix("/api/auth").Subrouter()

	auth.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	auth.HandleFunc("/signin", h.Signin).Methods(http.MethodPost)
	auth.HandleFunc("/google", h.GoogleAuth).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.RefreshToken).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", h.ForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)

	auth.Handle("/me", h.middleware.Authenticate(http.HandlerFunc(h.Me))).Methods(http.MethodGet)
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.Signup(r.Context(), &req)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	utils.SuccessResponse(w, resp, http.StatusCreated)
}

func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.Signin(r.Context(), &req)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	utils.SuccessResponse(w, resp, http.StatusOK)
}

func (h *Handler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req GoogleAuthRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.GoogleAuth(r.Context(), &req)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	utils.SuccessResponse(w, resp, http.StatusOK)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	utils.SuccessResponse(w, resp, http.StatusOK)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.InitiatePasswordReset(r.Context(), req.Email); err != nil {
		writeAuthError(w, err)
		return
	}
	utils.MessageResponse(w, "Şifre sıfırlama bağlantısı e-posta adresinize gönderildi.", http.StatusOK)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeAuthError(w, err)
		return
	}
	utils.MessageResponse(w, "Şifreniz güncellendi.", http.StatusOK)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r.Context())
	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	utils.SuccessResponse(w, user, http.StatusOK)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

var errorStatus = []struct {
	err    error
	code   string
	status int
}{
	{ErrInvalidCredentials, "invalid_credentials", http.StatusUnauthorized},
	{ErrSocialAccount, "social_account", http.StatusUnauthorized},
	{ErrDomainNotAllowed, "domain_not_allowed", http.StatusForbidden},
	{ErrTooManyAttempts, "rate_limited", http.StatusTooManyRequests},
	{ErrEmailAlreadyExists, "email_in_use", http.StatusConflict},
	{ErrInvalidToken, "invalid_token", http.StatusUnauthorized},
	{ErrInvalidResetToken, "invalid_reset_token", http.StatusBadRequest},
	{ErrGoogleToken, "invalid_google_token", http.StatusUnauthorized},
	{ErrUserNotFound, "user_not_found", http.StatusNotFound},
}

func writeAuthError(w http.ResponseWriter, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			utils.CodedErrorResponse(w, e.code, Message(e.err), e.status)
			return
		}
	}
	utils.CodedErrorResponse(w, "internal", Message(err), http.StatusInternalServerError)
}
