// Package web serves the files that make the client installable: the web
// app manifest and the offline service worker.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"text/template"

	"github.com/gorilla/mux"
)

//go:embed assets/sw.js.tmpl
var assets embed.FS

// DefaultAssets is the shell cached by the service worker
var DefaultAssets = []string{
	"/",
	"/index.html",
	"/manifest.webmanifest",
	"/icons/icon-192.png",
	"/icons/icon-512.png",
}

type Icon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type"`
	Purpose string `json:"purpose,omitempty"`
}

type Manifest struct {
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	Description     string `json:"description"`
	StartURL        string `json:"start_url"`
	Scope           string `json:"scope"`
	Display         string `json:"display"`
	Orientation     string `json:"orientation"`
	BackgroundColor string `json:"background_color"`
	ThemeColor      string `json:"theme_color"`
	Lang            string `json:"lang"`
	Icons           []Icon `json:"icons"`
}

// Config names the app and versions the offline cache
type Config struct {
	Name        string
	ShortName   string
	Description string
	ThemeColor  string
	CacheName   string
	Assets      []string
}

func DefaultConfig() Config {
	return Config{
		Name:        "Düğünümüz",
		ShortName:   "Düğün",
		Description: "Düğün fotoğraflarını ve anılarını paylaşın",
		ThemeColor:  "#d4a5a5",
		CacheName:   "wedding-share-v1",
		Assets:      DefaultAssets,
	}
}

// Handler renders both files once at startup
type Handler struct {
	manifest []byte
	worker   []byte
}

func NewHandler(cfg Config) (*Handler, error) {
	if len(cfg.Assets) == 0 {
		cfg.Assets = DefaultAssets
	}

	manifest, err := json.MarshalIndent(Manifest{
		Name:            cfg.Name,
		ShortName:       cfg.ShortName,
		Description:     cfg.Description,
		StartURL:        "/",
		Scope:           "/",
		Display:         "standalone",
		Orientation:     "portrait",
		BackgroundColor: "#ffffff",
		ThemeColor:      cfg.ThemeColor,
		Lang:            "tr",
		Icons: []Icon{
			{Src: "/icons/icon-192.png", Sizes: "192x192", Type: "image/png"},
			{Src: "/icons/icon-512.png", Sizes: "512x512", Type: "image/png", Purpose: "any maskable"},
		},
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	tmpl, err := template.ParseFS(assets, "assets/sw.js.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse service worker: %w", err)
	}
	var worker bytes.Buffer
	if err := tmpl.Execute(&worker, cfg); err != nil {
		return nil, fmt.Errorf("failed to render service worker: %w", err)
	}

	return &Handler{manifest: manifest, worker: worker.Bytes()}, nil
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/manifest.webmanifest", h.Manifest).Methods(http.MethodGet)
	router.HandleFunc("/sw.js", h.ServiceWorker).Methods(http.MethodGet)
}

func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/manifest+json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(h.manifest)
}

// ServiceWorker must not be cached by the browser or updates never land
func (h *Handler) ServiceWorker(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Write(h.worker)
}
