package ws

import (
	"errors"
	"net/http"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/gorilla/websocket"

	"github.com/ArsuMinSo/presentator/internal/queue"
	"github.com/ArsuMinSo/presentator/internal/show"
)

var log = logging.Logger("ws")

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// LAN tool: controllers connect from whatever host the server announces.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionRecorder persists connect/disconnect events. May be nil.
type SessionRecorder interface {
	RecordSession(sessionID, remoteAddr, event string) error
}

// stateFrame is the state_update message sent on every playback change and
// to each client on connect.
type stateFrame struct {
	Type             string          `json:"type"`
	CurrentSlideshow *show.Slideshow `json:"current_slideshow"`
	CurrentSlide     int             `json:"current_slide"`
	Playing          bool            `json:"playing"`
}

// catalogFrame is the slideshows_update message.
type catalogFrame struct {
	Type       string            `json:"type"`
	Slideshows []*show.Slideshow `json:"slideshows"`
}

// queueFrame is the queue_update message.
type queueFrame struct {
	Type string `json:"type"`
	queue.State
}

// Hub owns the shared playback state and fans frames out to every session.
type Hub struct {
	registry *Registry
	store    *show.Store
	recorder SessionRecorder

	mu           sync.Mutex
	currentShow  *show.Slideshow
	currentSlide int
	playing      bool
	catalog      []*show.Slideshow
}

// NewHub creates a hub over the given store. recorder may be nil to disable
// the session event log.
func NewHub(store *show.Store, recorder SessionRecorder) *Hub {
	return &Hub{
		registry: NewRegistry(),
		store:    store,
		recorder: recorder,
	}
}

// Registry exposes the session registry for the clients API.
func (h *Hub) Registry() *Registry { return h.registry }

// HandleWS upgrades the request and runs the session's read loop until the
// client disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	s := h.registry.Admit(conn, r.RemoteAddr)
	h.record(s, "connected")
	log.Infof("client connected from %s, total clients: %d", s.RemoteAddr, h.registry.Count())

	// New clients get the current state immediately.
	if err := s.sendJSON(h.stateFrame()); err != nil {
		log.Warnf("initial state to %s: %v", s.RemoteAddr, err)
		h.drop(s)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debugf("read from %s: %v", s.RemoteAddr, err)
			}
			h.drop(s)
			return
		}
		s.touch()

		cmd, err := ParseCommand(data)
		if err != nil {
			// Bad input from one client must not take the session down.
			log.Warnf("rejected message from %s: %v", s.RemoteAddr, err)
			continue
		}
		h.Dispatch(cmd)
	}
}

func (h *Hub) drop(s *Session) {
	if !h.registry.Evict(s.ID) {
		return
	}
	h.record(s, "disconnected")
	log.Infof("client disconnected from %s, total clients: %d", s.RemoteAddr, h.registry.Count())
}

func (h *Hub) record(s *Session, event string) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.RecordSession(s.ID, s.RemoteAddr, event); err != nil {
		log.Warnf("record session event: %v", err)
	}
}

// Dispatch applies one validated command to the shared state and broadcasts
// the result.
func (h *Hub) Dispatch(cmd Command) {
	switch cmd.Name {
	case CmdRefreshSlideshows:
		shows, err := h.store.Discover()
		if err != nil {
			log.Errorf("refresh slideshows: %v", err)
			return
		}
		h.SetCatalog(shows)
		h.BroadcastCatalog()

	case CmdLoadSlideshow:
		if !h.LoadSlideshow(cmd.SlideshowID, false) {
			log.Warnf("load_slideshow: %q not found", cmd.SlideshowID)
		}

	case CmdSetSlide:
		h.mu.Lock()
		ok := h.currentShow != nil && cmd.Slide >= 0 && cmd.Slide < len(h.currentShow.Slides)
		if ok {
			h.currentSlide = cmd.Slide
		}
		h.mu.Unlock()
		if ok {
			h.BroadcastState()
		}

	case CmdPlay:
		h.mu.Lock()
		h.playing = true
		h.mu.Unlock()
		h.BroadcastState()

	case CmdPause:
		h.mu.Lock()
		h.playing = false
		h.mu.Unlock()
		h.BroadcastState()

	case CmdNextSlide:
		h.step(1)

	case CmdPrevSlide:
		h.step(-1)
	}
}

// step moves the slide cursor by delta, wrapping at both ends. Slide
// navigation always wraps; queue boundary rules apply only to whole decks.
func (h *Hub) step(delta int) {
	h.mu.Lock()
	ok := h.currentShow != nil && len(h.currentShow.Slides) > 0
	if ok {
		n := len(h.currentShow.Slides)
		h.currentSlide = ((h.currentSlide+delta)%n + n) % n
	}
	h.mu.Unlock()
	if ok {
		h.BroadcastState()
	}
}

// LoadSlideshow makes a deck current at slide zero. autoplay decides the
// playback flag: controller-initiated loads start paused, queue-driven loads
// start playing. Returns false when the id is not in the catalog.
func (h *Hub) LoadSlideshow(id string, autoplay bool) bool {
	sh, ok := h.store.ByID(id)
	if !ok {
		return false
	}
	h.mu.Lock()
	h.currentShow = sh
	h.currentSlide = 0
	h.playing = autoplay
	h.mu.Unlock()
	h.BroadcastState()
	return true
}

// SetCatalog replaces the catalog used for slideshows_update frames.
func (h *Hub) SetCatalog(shows []*show.Slideshow) {
	h.mu.Lock()
	h.catalog = shows
	h.mu.Unlock()
}

func (h *Hub) stateFrame() stateFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return stateFrame{
		Type:             "state_update",
		CurrentSlideshow: h.currentShow,
		CurrentSlide:     h.currentSlide,
		Playing:          h.playing,
	}
}

// BroadcastState sends the current playback state to every session.
func (h *Hub) BroadcastState() {
	h.broadcast(h.stateFrame())
}

// BroadcastCatalog sends the slideshow catalog to every session.
func (h *Hub) BroadcastCatalog() {
	h.mu.Lock()
	frame := catalogFrame{Type: "slideshows_update", Slideshows: h.catalog}
	h.mu.Unlock()
	h.broadcast(frame)
}

// BroadcastQueue sends a queue snapshot to every session.
func (h *Hub) BroadcastQueue(st queue.State) {
	h.broadcast(queueFrame{Type: "queue_update", State: st})
}

// broadcast is fire and forget: each frame is attempted once per session and
// a failed send evicts that session.
func (h *Hub) broadcast(frame any) {
	for _, s := range h.registry.snapshot() {
		if err := s.sendJSON(frame); err != nil {
			log.Debugf("broadcast to %s failed, evicting: %v", s.RemoteAddr, err)
			h.drop(s)
		}
	}
}
