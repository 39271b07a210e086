// internal/posts/routes.go
package posts

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts post routes on an authenticated /api/v1 router
func RegisterRoutes(api *mux.Router, handler *Handler) {
	api.HandleFunc("/posts", handler.CreatePost).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}", handler.GetPost).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/posts", handler.GetUserPosts).Methods(http.MethodGet)
}
