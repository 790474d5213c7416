package server

import (
	"net/http"
)

func registerQueueRoutes(mux *http.ServeMux, d Deps) {
	// After every mutation the whole snapshot goes out to all clients.
	pushQueue := func() {
		d.Hub.BroadcastQueue(d.Queue.Snapshot())
	}

	// GET /queue: current queue state.
	handleGet(mux, "/queue", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Queue.Snapshot())
	})

	// POST /queue/add
	handlePost(mux, "/queue/add", func(w http.ResponseWriter, r *http.Request, req struct {
		SlideshowID string `json:"slideshow_id"`
	}) {
		if req.SlideshowID == "" {
			http.Error(w, "slideshow_id required", http.StatusBadRequest)
			return
		}
		if _, ok := d.Store.ByID(req.SlideshowID); !ok {
			http.Error(w, "slideshow not found", http.StatusNotFound)
			return
		}
		if !d.Queue.Add(req.SlideshowID) {
			writeJSON(w, map[string]any{"success": false, "message": "already in queue"})
			return
		}
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "message": "added to queue"})
	})

	// POST /queue/remove
	handlePost(mux, "/queue/remove", func(w http.ResponseWriter, r *http.Request, req struct {
		SlideshowID string `json:"slideshow_id"`
	}) {
		if req.SlideshowID == "" {
			http.Error(w, "slideshow_id required", http.StatusBadRequest)
			return
		}
		if !d.Queue.Remove(req.SlideshowID) {
			writeJSON(w, map[string]any{"success": false, "message": "not in queue"})
			return
		}
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "message": "removed from queue"})
	})

	// POST /queue/reorder: full replacement order; must be a permutation
	// of the queued ids.
	handlePost(mux, "/queue/reorder", func(w http.ResponseWriter, r *http.Request, req struct {
		QueueOrder []string `json:"queue_order"`
	}) {
		if !d.Queue.Reorder(req.QueueOrder) {
			writeJSON(w, map[string]any{"success": false, "message": "order does not match queued items"})
			return
		}
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "message": "queue reordered"})
	})

	// POST /queue/move: single item to a new position.
	handlePost(mux, "/queue/move", func(w http.ResponseWriter, r *http.Request, req struct {
		SlideshowID string `json:"slideshow_id"`
		Position    int    `json:"position"`
	}) {
		if req.SlideshowID == "" {
			http.Error(w, "slideshow_id required", http.StatusBadRequest)
			return
		}
		if !d.Queue.Move(req.SlideshowID, req.Position) {
			writeJSON(w, map[string]any{"success": false, "message": "not in queue"})
			return
		}
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "message": "moved"})
	})

	// POST /queue/clear
	handlePost(mux, "/queue/clear", func(w http.ResponseWriter, r *http.Request, _ struct{}) {
		d.Queue.Clear()
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "message": "queue cleared"})
	})

	// POST /queue/start: restart from the front and load the first deck.
	handlePost(mux, "/queue/start", func(w http.ResponseWriter, r *http.Request, _ struct{}) {
		id := d.Queue.Start()
		if id == "" {
			writeJSON(w, map[string]any{"success": false, "message": "queue is empty"})
			return
		}
		d.Hub.LoadSlideshow(id, true)
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "current_slideshow": id, "message": "queue started"})
	})

	// POST /queue/stop
	handlePost(mux, "/queue/stop", func(w http.ResponseWriter, r *http.Request, _ struct{}) {
		d.Queue.Stop()
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "message": "queue stopped"})
	})

	// POST /queue/next: advance and load the next deck. At the end
	// without loop the queue stops and no deck changes.
	handlePost(mux, "/queue/next", func(w http.ResponseWriter, r *http.Request, _ struct{}) {
		id := d.Queue.Next()
		if id == "" {
			pushQueue()
			writeJSON(w, map[string]any{"success": false, "message": "end of queue"})
			return
		}
		d.Hub.LoadSlideshow(id, true)
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "current_slideshow": id, "message": "advanced"})
	})

	// POST /queue/previous
	handlePost(mux, "/queue/previous", func(w http.ResponseWriter, r *http.Request, _ struct{}) {
		id := d.Queue.Previous()
		if id == "" {
			writeJSON(w, map[string]any{"success": false, "message": "start of queue"})
			return
		}
		d.Hub.LoadSlideshow(id, true)
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "current_slideshow": id, "message": "went back"})
	})

	// POST /queue/toggle_loop
	handlePost(mux, "/queue/toggle_loop", func(w http.ResponseWriter, r *http.Request, _ struct{}) {
		enabled := d.Queue.ToggleLoop()
		pushQueue()
		writeJSON(w, map[string]any{"success": true, "loop_enabled": enabled, "message": "loop toggled"})
	})
}
