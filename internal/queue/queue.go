// Package queue implements the presentation queue: an ordered list of
// slideshow ids with a cursor, playback flag and loop mode, persisted to a
// JSON file on every mutation.
package queue

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/ArsuMinSo/presentator/internal/util"
)

var log = logging.Logger("queue")

// persisted is the on-disk shape of the queue file.
type persisted struct {
	Queue        []string `json:"queue"`
	CurrentIndex int      `json:"current_index"`
	IsPlaying    bool     `json:"is_playing"`
	LoopEnabled  bool     `json:"loop_enabled"`
}

// State is a queue snapshot for broadcasting.
type State struct {
	Queue            []string `json:"queue"`
	CurrentIndex     int      `json:"current_index"`
	CurrentSlideshow string   `json:"current_slideshow"`
	IsPlaying        bool     `json:"is_playing"`
	LoopEnabled      bool     `json:"loop_enabled"`
	QueueLength      int      `json:"queue_length"`
}

// Manager owns the queue state. All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	items   []string
	cursor  int
	playing bool
	loop    bool

	file string
}

// NewManager creates a queue backed by the given file, restoring any
// previously saved state. A missing file starts an empty queue; a corrupt
// file is logged and reset to defaults.
func NewManager(file string) *Manager {
	m := &Manager{file: file}
	m.load()
	return m
}

// Add appends a slideshow to the end of the queue. Returns false when the
// id is already queued.
func (m *Manager) Add(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.items {
		if existing == id {
			log.Warnf("slideshow %q already in queue", id)
			return false
		}
	}
	m.items = append(m.items, id)
	m.save()
	log.Infof("added %q to queue at position %d", id, len(m.items))
	return true
}

// Remove deletes a slideshow from the queue, shifting the cursor so it keeps
// pointing at the same item where possible. Returns false when the id is not
// queued.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, existing := range m.items {
		if existing == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		log.Warnf("slideshow %q not in queue", id)
		return false
	}

	m.items = append(m.items[:idx], m.items[idx+1:]...)
	if idx < m.cursor {
		m.cursor--
	} else if idx == m.cursor && m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
	m.save()
	log.Infof("removed %q from queue", id)
	return true
}

// Reorder replaces the queue order. The new order must contain exactly the
// same ids as the current queue; the cursor follows the current item into
// its new position.
func (m *Manager) Reorder(newOrder []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !sameItems(newOrder, m.items) {
		log.Errorf("reorder rejected: new order does not match queued items")
		return false
	}

	current := m.currentLocked()
	m.items = append([]string(nil), newOrder...)
	if current != "" {
		for i, id := range m.items {
			if id == current {
				m.cursor = i
				break
			}
		}
	}
	m.save()
	log.Info("queue reordered")
	return true
}

// Move places a slideshow at a specific position, clamped to the queue
// bounds, and shifts the cursor to track displaced items.
func (m *Manager) Move(id string, pos int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldIdx := -1
	for i, existing := range m.items {
		if existing == id {
			oldIdx = i
			break
		}
	}
	if oldIdx == -1 {
		return false
	}

	m.items = append(m.items[:oldIdx], m.items[oldIdx+1:]...)
	pos = max(0, min(pos, len(m.items)))
	m.items = append(m.items[:pos], append([]string{id}, m.items[pos:]...)...)

	switch {
	case oldIdx == m.cursor:
		m.cursor = pos
	case oldIdx < m.cursor && m.cursor <= pos:
		m.cursor--
	case pos <= m.cursor && m.cursor < oldIdx:
		m.cursor++
	}
	m.save()
	log.Infof("moved %q from position %d to %d", id, oldIdx, pos)
	return true
}

// Clear empties the queue and stops playback.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = nil
	m.cursor = 0
	m.playing = false
	m.save()
	log.Info("queue cleared")
}

// Current returns the slideshow under the cursor, or "" when the queue is
// empty.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

// Next advances the cursor. At the end of the queue it wraps to the start
// when loop mode is on; otherwise playback stops and "" is returned.
func (m *Manager) Next() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return ""
	}

	switch {
	case m.cursor < len(m.items)-1:
		m.cursor++
	case m.loop:
		m.cursor = 0
	default:
		m.playing = false
		m.save()
		log.Info("reached end of queue, stopping playback")
		return ""
	}

	current := m.currentLocked()
	m.save()
	log.Infof("advanced to next slideshow: %q", current)
	return current
}

// Previous moves the cursor back. At the start of the queue it wraps to the
// end when loop mode is on; otherwise "" is returned and nothing changes.
func (m *Manager) Previous() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return ""
	}

	switch {
	case m.cursor > 0:
		m.cursor--
	case m.loop:
		m.cursor = len(m.items) - 1
	default:
		return ""
	}

	current := m.currentLocked()
	m.save()
	log.Infof("went back to previous slideshow: %q", current)
	return current
}

// Start resets the cursor to the front and marks the queue playing. Returns
// the first slideshow, or "" when the queue is empty.
func (m *Manager) Start() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		log.Warn("cannot start queue: queue is empty")
		return ""
	}

	m.cursor = 0
	m.playing = true
	m.save()

	current := m.currentLocked()
	log.Infof("started queue playback with %q", current)
	return current
}

// Stop marks the queue as not playing. The cursor is left in place.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playing = false
	m.save()
	log.Info("queue playback stopped")
}

// ToggleLoop flips loop mode and returns the new state.
func (m *Manager) ToggleLoop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loop = !m.loop
	m.save()
	log.Infof("queue loop enabled=%v", m.loop)
	return m.loop
}

// Snapshot returns the full queue state for broadcasting.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]string, len(m.items))
	copy(items, m.items)
	return State{
		Queue:            items,
		CurrentIndex:     m.cursor,
		CurrentSlideshow: m.currentLocked(),
		IsPlaying:        m.playing,
		LoopEnabled:      m.loop,
		QueueLength:      len(m.items),
	}
}

func (m *Manager) currentLocked() string {
	if m.cursor >= 0 && m.cursor < len(m.items) {
		return m.items[m.cursor]
	}
	return ""
}

// save writes the state through to disk and then reloads it, so the
// in-memory state always matches what a restart would observe. Callers hold
// the mutex.
func (m *Manager) save() {
	data := persisted{
		Queue:        m.items,
		CurrentIndex: m.cursor,
		IsPlaying:    m.playing,
		LoopEnabled:  m.loop,
	}
	if err := util.WriteJSONFile(m.file, data); err != nil {
		log.Errorf("save queue: %v", err)
		return
	}
	m.loadLocked()
}

func (m *Manager) load() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked()
}

func (m *Manager) loadLocked() {
	b, err := os.ReadFile(m.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("no saved queue found, starting empty")
		} else {
			log.Errorf("load queue: %v", err)
			m.reset()
		}
		return
	}

	var data persisted
	if err := json.Unmarshal(b, &data); err != nil {
		log.Errorf("load queue: %v", err)
		m.reset()
		return
	}

	m.items = data.Queue
	m.cursor = data.CurrentIndex
	m.playing = data.IsPlaying
	m.loop = data.LoopEnabled
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Manager) reset() {
	m.items = nil
	m.cursor = 0
	m.playing = false
	m.loop = false
}

func sameItems(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}
