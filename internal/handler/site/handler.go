package site

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/healthcare-site/backend/internal/site"
	"github.com/zhouzirui/healthcare-site/backend/pkg/utils"
)

// Handler serves the rendered pages and static assets.
type Handler struct {
	site   *site.Site
	assets http.Handler
}

// New creates a page handler.
func New(s *site.Site) *Handler {
	return &Handler{
		site:   s,
		assets: http.StripPrefix("/assets/", http.FileServer(http.FS(site.Assets()))),
	}
}

// RegisterRoutes mounts the page routes, /assets and the 404 page.
func (h *Handler) RegisterRoutes(r chi.Router) {
	for _, link := range h.site.Nav() {
		page, _ := h.site.Page(link.Path)
		r.Get(link.Path, h.servePage(page, http.StatusOK))
	}
	r.Get("/assets/*", h.assets.ServeHTTP)
	r.NotFound(h.handleNotFound)
}

func (h *Handler) servePage(page *site.Page, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			_, _ = w.Write(page.HTML)
		}
	}
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		utils.RespondError(w, http.StatusNotFound, "not found")
		return
	}
	h.servePage(h.site.NotFound(), http.StatusNotFound)(w, r)
}
