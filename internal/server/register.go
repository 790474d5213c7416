package server

import (
	"net/http"
	"path/filepath"

	"github.com/ArsuMinSo/presentator/internal/queue"
	"github.com/ArsuMinSo/presentator/internal/show"
	"github.com/ArsuMinSo/presentator/internal/storage"
	"github.com/ArsuMinSo/presentator/internal/ws"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	WebDir string
	Store  *show.Store
	Queue  *queue.Manager
	Hub    *ws.Hub

	// DB may be nil; the clients API then omits history.
	DB *storage.DB
}

// Register installs every route on the mux.
func Register(mux *http.ServeMux, d Deps) {
	registerStaticRoutes(mux, d)
	registerSlideshowRoutes(mux, d)
	registerQueueRoutes(mux, d)
	registerClientRoutes(mux, d)

	mux.HandleFunc("/ws", d.Hub.HandleWS)
}

func registerStaticRoutes(mux *http.ServeMux, d Deps) {
	// Slideshow assets (extracted PPTX images, deck files).
	mux.Handle("/slideshows/", http.StripPrefix("/slideshows/",
		http.FileServer(http.Dir(d.Store.Root()))))

	// Controller, viewer and editor pages.
	mux.Handle("/web/", http.StripPrefix("/web/", http.FileServer(http.Dir(d.WebDir))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(d.WebDir, "index.html"))
	})
}
