package show

// Slide is one unit of display content in viewer format. Content and HTML
// carry the same markup (the controller reads one, the viewer the other);
// Background and BgColor are duplicated the same way.
type Slide struct {
	Content     string  `json:"content"`
	HTML        string  `json:"html"`
	Duration    float64 `json:"duration"`
	Background  string  `json:"background"`
	BgColor     string  `json:"bgColor"`
	SlideNumber int     `json:"slide_number"`
	Type        string  `json:"type"`
}

// DeckConfig holds per-deck playback settings.
type DeckConfig struct {
	Theme    string `json:"theme"`
	Autoplay bool   `json:"autoplay"`
	Loop     bool   `json:"loop"`
}

// Slideshow is a named ordered sequence of slides as presented to the
// controller and viewer interfaces.
type Slideshow struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Config DeckConfig `json:"config"`
	Slides []Slide    `json:"slides"`
	Path   string     `json:"path"`
	Type   string     `json:"type"` // "editor" or "markdown"
}

// EditorSlide is the on-disk slide shape produced by the web editor.
type EditorSlide struct {
	HTML     string  `json:"html"`
	Duration float64 `json:"duration"`
	BgColor  string  `json:"bgColor"`
}

// EditorDeck is the on-disk shape of a *_editor.json file.
type EditorDeck struct {
	Name      string        `json:"name"`
	Timestamp string        `json:"timestamp,omitempty"`
	Slides    []EditorSlide `json:"slides"`
}

// markdownDeck is the on-disk shape of a <dir>/slideshow.json file.
// Slides written in Markdown are rendered to HTML at discovery time.
type markdownDeck struct {
	Name   string `json:"name"`
	Slides []struct {
		Content    string  `json:"content"`
		Markdown   string  `json:"markdown"`
		Duration   float64 `json:"duration"`
		Background string  `json:"background"`
	} `json:"slides"`
}

const (
	defaultDuration   = 6
	defaultBackground = "#f7ecd0"
)
