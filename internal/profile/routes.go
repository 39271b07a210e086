//internal/profile/routes.go

package profile

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts profile routes on an authenticated /api/v1 router
func RegisterRoutes(api *mux.Router, handler *Handler) {
	api.HandleFunc("/profile/me", handler.GetMyProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile/me", handler.UpdateProfile).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/profile/me/avatar", handler.UpdateAvatar).Methods(http.MethodPut, http.MethodPost)
	api.HandleFunc("/users/{id}/profile", handler.GetUserProfile).Methods(http.MethodGet)
}
