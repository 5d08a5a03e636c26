package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Pages are served at / and /checks/*; static assets come from the embedded
// filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /checks/{owner}/{repo}/{number}", h.Dialog)
	mux.HandleFunc("GET /checks/{owner}/{repo}/{number}/logs/{id}", h.Logs)
	mux.HandleFunc("POST /checks/{owner}/{repo}/{number}/rerun", h.Rerun)
	mux.HandleFunc("POST /checks/{owner}/{repo}/{number}/checkout", h.Checkout)
}
