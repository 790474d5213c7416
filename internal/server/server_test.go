package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ArsuMinSo/presentator/internal/queue"
	"github.com/ArsuMinSo/presentator/internal/show"
	"github.com/ArsuMinSo/presentator/internal/ws"
)

func newTestServer(t *testing.T) (*httptest.Server, Deps) {
	t.Helper()

	dir := t.TempDir()
	deck := `{"name":"Demo","slides":[{"html":"<p>one</p>"},{"html":"<p>two</p>"}]}`
	if err := os.WriteFile(filepath.Join(dir, "demo_editor.json"), []byte(deck), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	deck2 := `{"name":"Other","slides":[{"html":"<p>solo</p>"}]}`
	if err := os.WriteFile(filepath.Join(dir, "other_editor.json"), []byte(deck2), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}

	store, err := show.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	d := Deps{
		WebDir: t.TempDir(),
		Store:  store,
		Queue:  queue.NewManager(filepath.Join(t.TempDir(), "queue.json")),
		Hub:    ws.NewHub(store, nil),
	}

	mux := http.NewServeMux()
	Register(mux, d)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, d
}

func postJSON(t *testing.T, url string, body any) map[string]any {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s: status %d", url, resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestGetSlideshows(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/slideshows")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var shows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&shows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(shows) != 2 {
		t.Fatalf("expected 2 slideshows, got %d", len(shows))
	}
}

func TestSaveAndLoadSlideshow(t *testing.T) {
	srv, _ := newTestServer(t)

	out := postJSON(t, srv.URL+"/api/save_slideshow", map[string]any{
		"name":     "New Deck",
		"filename": "new_deck",
		"slides":   []map[string]any{{"html": "<p>hi</p>", "duration": 6}},
	})
	if out["success"] != true {
		t.Fatalf("save response: %v", out)
	}

	loaded := postJSON(t, srv.URL+"/api/load_slideshow", map[string]any{
		"filename": "new_deck_editor.json",
	})
	if loaded["name"] != "New Deck" {
		t.Fatalf("load response: %v", loaded)
	}

	t.Run("missing file is 404", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/load_slideshow", "application/json",
			strings.NewReader(`{"filename":"missing.json"}`))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("GET returns latest deck", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/load_slideshow")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		var latest map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if latest["name"] != "New Deck" {
			t.Fatalf("latest = %v", latest["name"])
		}
	})
}

func TestDeleteSlideshow(t *testing.T) {
	srv, d := newTestServer(t)

	out := postJSON(t, srv.URL+"/api/delete_slideshow", map[string]any{"id": "other_editor"})
	if out["success"] != true {
		t.Fatalf("delete response: %v", out)
	}
	if _, ok := d.Store.ByID("other_editor"); ok {
		t.Fatal("deck still in catalog")
	}

	resp, err := http.Post(srv.URL+"/api/delete_slideshow", "application/json",
		strings.NewReader(`{"id":"other_editor"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("repeat delete status = %d, want 404", resp.StatusCode)
	}
}

func TestQueueAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	out := postJSON(t, srv.URL+"/queue/add", map[string]any{"slideshow_id": "demo_editor"})
	if out["success"] != true {
		t.Fatalf("add: %v", out)
	}
	out = postJSON(t, srv.URL+"/queue/add", map[string]any{"slideshow_id": "demo_editor"})
	if out["success"] != false {
		t.Fatalf("duplicate add accepted: %v", out)
	}
	postJSON(t, srv.URL+"/queue/add", map[string]any{"slideshow_id": "other_editor"})

	t.Run("unknown slideshow is 404", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/queue/add", "application/json",
			strings.NewReader(`{"slideshow_id":"nope"}`))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
	})

	out = postJSON(t, srv.URL+"/queue/start", nil)
	if out["current_slideshow"] != "demo_editor" {
		t.Fatalf("start: %v", out)
	}

	out = postJSON(t, srv.URL+"/queue/next", nil)
	if out["current_slideshow"] != "other_editor" {
		t.Fatalf("next: %v", out)
	}

	// End of queue without loop.
	out = postJSON(t, srv.URL+"/queue/next", nil)
	if out["success"] != false {
		t.Fatalf("next past end: %v", out)
	}

	out = postJSON(t, srv.URL+"/queue/toggle_loop", nil)
	if out["loop_enabled"] != true {
		t.Fatalf("toggle_loop: %v", out)
	}
	out = postJSON(t, srv.URL+"/queue/next", nil)
	if out["current_slideshow"] != "demo_editor" {
		t.Fatalf("next with loop: %v", out)
	}

	out = postJSON(t, srv.URL+"/queue/reorder", map[string]any{
		"queue_order": []string{"other_editor", "demo_editor"},
	})
	if out["success"] != true {
		t.Fatalf("reorder: %v", out)
	}
	out = postJSON(t, srv.URL+"/queue/reorder", map[string]any{
		"queue_order": []string{"other_editor"},
	})
	if out["success"] != false {
		t.Fatalf("bad reorder accepted: %v", out)
	}

	out = postJSON(t, srv.URL+"/queue/move", map[string]any{
		"slideshow_id": "demo_editor", "position": 0,
	})
	if out["success"] != true {
		t.Fatalf("move: %v", out)
	}

	out = postJSON(t, srv.URL+"/queue/clear", nil)
	if out["success"] != true {
		t.Fatalf("clear: %v", out)
	}

	resp, err := http.Get(srv.URL + "/queue")
	if err != nil {
		t.Fatalf("GET queue: %v", err)
	}
	defer resp.Body.Close()
	var st map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st["queue_length"] != float64(0) {
		t.Fatalf("queue not cleared: %v", st)
	}
}

func TestClientsAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/clients")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["total_clients"] != float64(0) {
		t.Fatalf("total_clients = %v", out["total_clients"])
	}
}

func TestUploadRejectsNonPPTX(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("not a presentation"))
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload_pptx", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/slideshows", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST to GET route: status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/queue/add")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET to POST route: status = %d", resp.StatusCode)
	}
}

func TestWebsocketFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	readFrame := func() map[string]any {
		t.Helper()
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return m
	}

	// Initial state arrives on connect.
	frame := readFrame()
	if frame["type"] != "state_update" {
		t.Fatalf("initial frame type = %v", frame["type"])
	}
	if frame["current_slideshow"] != nil {
		t.Fatalf("initial slideshow = %v", frame["current_slideshow"])
	}

	msg := `{"command":"load_slideshow","params":{"slideshow_id":"demo_editor"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}

	frame = readFrame()
	sh, _ := frame["current_slideshow"].(map[string]any)
	if sh == nil || sh["id"] != "demo_editor" {
		t.Fatalf("after load: %v", frame)
	}

	// A malformed command is dropped without killing the session.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"reboot"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"next_slide"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame = readFrame()
	if frame["current_slide"] != float64(1) {
		t.Fatalf("after next_slide: %v", frame["current_slide"])
	}
}
