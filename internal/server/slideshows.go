package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ArsuMinSo/presentator/internal/show"
)

const maxUploadBytes = 100 << 20 // 100MB

func registerSlideshowRoutes(mux *http.ServeMux, d Deps) {
	// GET /api/slideshows: rescan and return the catalog. The refreshed
	// list is also pushed to websocket clients.
	handleGet(mux, "/api/slideshows", func(w http.ResponseWriter, r *http.Request) {
		shows, err := d.Store.Discover()
		if err != nil {
			http.Error(w, fmt.Sprintf("discover failed: %v", err), http.StatusInternalServerError)
			return
		}
		d.Hub.SetCatalog(shows)
		d.Hub.BroadcastCatalog()
		writeJSON(w, shows)
	})

	// POST /api/save_slideshow: persist an editor deck.
	handlePost(mux, "/api/save_slideshow", func(w http.ResponseWriter, r *http.Request, req struct {
		show.EditorDeck
		Filename string `json:"filename"`
	}) {
		path, err := d.Store.SaveEditor(req.EditorDeck, req.Filename)
		if err != nil {
			http.Error(w, fmt.Sprintf("save failed: %v", err), http.StatusBadRequest)
			return
		}
		d.Hub.SetCatalog(d.Store.Catalog())
		d.Hub.BroadcastCatalog()
		writeJSON(w, map[string]any{"success": true, "filepath": path})
	})

	// /api/load_slideshow: POST loads a named deck file; GET returns the
	// most recently modified editor deck.
	mux.HandleFunc("/api/load_slideshow", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			b, err := d.Store.LatestEditorDeck()
			if err != nil {
				if errors.Is(err, show.ErrNotFound) {
					http.Error(w, "no slideshows found", http.StatusNotFound)
					return
				}
				http.Error(w, fmt.Sprintf("load failed: %v", err), http.StatusInternalServerError)
				return
			}
			writeRawJSON(w, b)

		case http.MethodPost:
			var req struct {
				Filename string `json:"filename"`
			}
			if err := decodeBody(r, &req); err != nil {
				http.Error(w, "invalid JSON body", http.StatusBadRequest)
				return
			}
			if req.Filename == "" {
				http.Error(w, "filename required", http.StatusBadRequest)
				return
			}
			b, err := d.Store.LoadRaw(req.Filename)
			if err != nil {
				if errors.Is(err, show.ErrNotFound) {
					http.Error(w, "slideshow not found", http.StatusNotFound)
					return
				}
				http.Error(w, fmt.Sprintf("load failed: %v", err), http.StatusBadRequest)
				return
			}
			writeRawJSON(w, b)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// POST /api/delete_slideshow: remove a deck and push the new catalog.
	handlePost(mux, "/api/delete_slideshow", func(w http.ResponseWriter, r *http.Request, req struct {
		ID string `json:"id"`
	}) {
		if req.ID == "" {
			http.Error(w, "slideshow id required", http.StatusBadRequest)
			return
		}
		shows, err := d.Store.Delete(req.ID)
		if err != nil {
			if errors.Is(err, show.ErrNotFound) {
				http.Error(w, "slideshow not found", http.StatusNotFound)
				return
			}
			http.Error(w, fmt.Sprintf("delete failed: %v", err), http.StatusBadRequest)
			return
		}
		d.Hub.SetCatalog(shows)
		d.Hub.BroadcastCatalog()
		writeJSON(w, map[string]any{"success": true})
	})

	// POST /api/upload_pptx: multipart upload, converted to an editor deck.
	mux.HandleFunc("/api/upload_pptx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, fmt.Sprintf("parse upload: %v", err), http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file field required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		name := r.FormValue("name")
		if name == "" {
			name = header.Filename
		}
		if !strings.EqualFold(filepath.Ext(header.Filename), ".pptx") {
			http.Error(w, "only .pptx files are supported", http.StatusBadRequest)
			return
		}

		// Spool the upload to disk; zip needs random access.
		tmp, err := os.CreateTemp("", "upload-*.pptx")
		if err != nil {
			http.Error(w, "upload failed", http.StatusInternalServerError)
			return
		}
		defer os.Remove(tmp.Name())
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			http.Error(w, "upload failed", http.StatusInternalServerError)
			return
		}
		tmp.Close()

		path, err := d.Store.ImportPPTX(tmp.Name(), name)
		if err != nil {
			http.Error(w, fmt.Sprintf("convert failed: %v", err), http.StatusBadRequest)
			return
		}
		d.Hub.SetCatalog(d.Store.Catalog())
		d.Hub.BroadcastCatalog()
		writeJSON(w, map[string]any{"success": true, "filepath": path})
	})
}
