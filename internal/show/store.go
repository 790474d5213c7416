// Package show owns the slideshow catalog: discovery of decks on disk,
// editor save/delete, PPTX import and the editor→viewer slide conversion.
package show

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"

	"github.com/ArsuMinSo/presentator/internal/util"
)

var log = logging.Logger("show")

var (
	ErrNotFound    = errors.New("slideshow not found")
	ErrOutsideRoot = errors.New("path outside slideshows root")
)

// Store manages the slideshows directory and a cached catalog.
type Store struct {
	root string

	mu     sync.RWMutex
	cached []*Slideshow

	minifier *minify.M
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create slideshows dir: %w", err)
	}

	m := minify.New()
	m.AddFunc("text/html", mhtml.Minify)

	return &Store{root: root, minifier: m}, nil
}

// Root returns the absolute slideshows directory.
func (s *Store) Root() string { return s.root }

// Discover rescans the slideshows directory and replaces the cached catalog.
// Editor decks (*_editor.json) and markdown deck directories (containing a
// slideshow.json) are both picked up; unreadable decks are skipped with a
// warning.
func (s *Store) Discover() ([]*Slideshow, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read slideshows dir: %w", err)
	}

	var shows []*Slideshow
	for _, e := range entries {
		switch {
		case !e.IsDir() && strings.HasSuffix(e.Name(), "_editor.json"):
			sh, err := s.loadEditorDeck(filepath.Join(s.root, e.Name()))
			if err != nil {
				log.Warnf("skipping editor deck %s: %v", e.Name(), err)
				continue
			}
			shows = append(shows, sh)

		case e.IsDir():
			deckFile := filepath.Join(s.root, e.Name(), "slideshow.json")
			if _, err := os.Stat(deckFile); err != nil {
				continue
			}
			sh, err := s.loadMarkdownDeck(e.Name(), deckFile)
			if err != nil {
				log.Warnf("skipping markdown deck %s: %v", e.Name(), err)
				continue
			}
			shows = append(shows, sh)
		}
	}

	sort.Slice(shows, func(i, j int) bool { return shows[i].ID < shows[j].ID })

	s.mu.Lock()
	s.cached = shows
	s.mu.Unlock()

	log.Debugf("discovered %d slideshows", len(shows))
	return shows, nil
}

// Catalog returns the cached catalog without rescanning.
func (s *Store) Catalog() []*Slideshow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Slideshow, len(s.cached))
	copy(out, s.cached)
	return out
}

// ByID returns the cached slideshow with the given id.
func (s *Store) ByID(id string) (*Slideshow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sh := range s.cached {
		if sh.ID == id {
			return sh, true
		}
	}
	return nil, false
}

func (s *Store) loadEditorDeck(path string) (*Slideshow, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var deck EditorDeck
	if err := json.Unmarshal(b, &deck); err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), ".json")
	name := deck.Name
	if name == "" {
		name = strings.TrimSuffix(stem, "_editor")
	}

	return &Slideshow{
		ID:     stem,
		Name:   name,
		Config: DeckConfig{Theme: "default", Autoplay: true, Loop: true},
		Slides: ConvertEditorSlides(deck.Slides),
		Path:   path,
		Type:   "editor",
	}, nil
}

func (s *Store) loadMarkdownDeck(dirName, deckFile string) (*Slideshow, error) {
	b, err := os.ReadFile(deckFile)
	if err != nil {
		return nil, err
	}
	var deck markdownDeck
	if err := json.Unmarshal(b, &deck); err != nil {
		return nil, err
	}

	name := deck.Name
	if name == "" {
		name = dirName
	}

	slides := make([]Slide, 0, len(deck.Slides))
	for i, sl := range deck.Slides {
		content := sl.Content
		if sl.Markdown != "" {
			html, err := RenderMarkdown(sl.Markdown)
			if err != nil {
				return nil, fmt.Errorf("render slide %d: %w", i+1, err)
			}
			content = html
		}
		duration := sl.Duration
		if duration == 0 {
			duration = defaultDuration
		}
		background := sl.Background
		if background == "" {
			background = defaultBackground
		}
		slides = append(slides, Slide{
			Content:     content,
			HTML:        content,
			Duration:    duration,
			Background:  background,
			BgColor:     background,
			SlideNumber: i + 1,
			Type:        "html",
		})
	}

	return &Slideshow{
		ID:     name,
		Name:   name,
		Config: DeckConfig{Theme: "default", Autoplay: true, Loop: true},
		Slides: slides,
		Path:   filepath.Dir(deckFile),
		Type:   "markdown",
	}, nil
}

// ConvertEditorSlides converts editor slides to the viewer format: plain text
// is wrapped in a paragraph, defaults are filled in, and content/html plus
// background/bgColor are duplicated for interface compatibility.
func ConvertEditorSlides(editorSlides []EditorSlide) []Slide {
	slides := make([]Slide, 0, len(editorSlides))
	for i, es := range editorSlides {
		content := es.HTML
		if content != "" && !strings.Contains(content, "<") && strings.TrimSpace(content) != "" {
			content = "<p>" + content + "</p>"
		}
		duration := es.Duration
		if duration == 0 {
			duration = defaultDuration
		}
		background := es.BgColor
		if background == "" {
			background = defaultBackground
		}
		slides = append(slides, Slide{
			Content:     content,
			HTML:        content,
			Duration:    duration,
			Background:  background,
			BgColor:     background,
			SlideNumber: i + 1,
			Type:        "html",
		})
	}
	return slides
}

// SaveEditor persists an editor deck under the given filename (normalized to
// end in _editor.json; derived from the deck name when empty). Slide markup
// is minified before writing. Returns the file path.
func (s *Store) SaveEditor(deck EditorDeck, filename string) (string, error) {
	switch {
	case filename == "":
		name := deck.Name
		if name == "" {
			name = "Untitled Slideshow"
		}
		filename = util.SterileName(name) + "_editor.json"
	case strings.HasSuffix(filename, "_editor.json"):
		// already correct
	case strings.HasSuffix(filename, "_editor"):
		filename += ".json"
	case strings.HasSuffix(filename, ".json"):
		filename = strings.TrimSuffix(filename, ".json") + "_editor.json"
	default:
		filename += "_editor.json"
	}

	for i := range deck.Slides {
		out, err := s.minifier.String("text/html", deck.Slides[i].HTML)
		if err != nil {
			log.Warnf("minify slide %d: %v (keeping original)", i+1, err)
			continue
		}
		deck.Slides[i].HTML = out
	}

	path, err := s.cleanAbs(filename)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, deck); err != nil {
		return "", err
	}

	if _, err := s.Discover(); err != nil {
		log.Warnf("rescan after save: %v", err)
	}
	log.Infof("saved slideshow %s", filename)
	return path, nil
}

// Delete removes a slideshow by id together with its extracted image
// directory (editor decks) or its whole directory (markdown decks), and
// returns the updated catalog.
func (s *Store) Delete(id string) ([]*Slideshow, error) {
	if _, err := s.Discover(); err != nil {
		return nil, err
	}
	sh, ok := s.ByID(id)
	if !ok {
		return nil, ErrNotFound
	}

	if sh.Type == "editor" {
		if err := os.Remove(sh.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("delete slideshow file: %w", err)
		}
		// Extracted PPTX images live next to the deck file.
		imageDir := filepath.Join(s.root, util.SterileName(sh.Name)+"_images")
		if st, err := os.Stat(imageDir); err == nil && st.IsDir() {
			if err := os.RemoveAll(imageDir); err != nil {
				log.Warnf("remove image dir %s: %v", imageDir, err)
			}
		}
	} else {
		if err := os.RemoveAll(sh.Path); err != nil {
			return nil, fmt.Errorf("delete slideshow dir: %w", err)
		}
	}

	log.Infof("deleted slideshow %s", id)
	return s.Discover()
}

// LoadRaw returns the raw bytes of a deck file inside the root, for the
// editor's load endpoint.
func (s *Store) LoadRaw(filename string) ([]byte, error) {
	path, err := s.cleanAbs(filename)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// LatestEditorDeck returns the raw bytes of the most recently modified
// *_editor.json file, or ErrNotFound when none exist.
func (s *Store) LatestEditorDeck() ([]byte, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var latest string
	var latestMod int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_editor.json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest = e.Name()
			latestMod = mod
		}
	}
	if latest == "" {
		return nil, ErrNotFound
	}
	return os.ReadFile(filepath.Join(s.root, latest))
}

// --- safety boundary ---

func (s *Store) cleanAbs(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	rel = strings.TrimPrefix(rel, "/")
	rel = filepath.FromSlash(rel)

	abs := filepath.Clean(filepath.Join(s.root, rel))

	rootClean := filepath.Clean(s.root)
	rootPrefix := rootClean + string(filepath.Separator)
	if abs != rootClean && !strings.HasPrefix(abs, rootPrefix) {
		return "", ErrOutsideRoot
	}
	return abs, nil
}

// writeFileAtomic writes v as indented JSON via a temp file + rename so a
// crash mid-write never leaves a truncated deck behind.
func writeFileAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".presentator-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
