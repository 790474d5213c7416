package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ArsuMinSo/presentator/internal/util"
)

type Config struct {
	Server Server `json:"server"`
	Paths  Paths  `json:"paths"`
}

type Server struct {
	// HTTPAddr is the listen address for the web interface, the JSON API
	// and the /ws realtime endpoint. Example ":50000" or "0.0.0.0:50000".
	HTTPAddr string `json:"http_addr"`

	// Debug enables debug-level logging for all subsystems.
	Debug bool `json:"debug"`
}

type Paths struct {
	// WebDir holds the static controller/viewer/editor pages.
	WebDir string `json:"web_dir"`

	// SlideshowsDir holds editor decks (*_editor.json), markdown deck
	// directories and extracted images.
	SlideshowsDir string `json:"slideshows_dir"`

	// QueueFile is the presentation queue persistence file.
	QueueFile string `json:"queue_file"`

	// SessionDBFile is the SQLite file for the session event log.
	// Empty disables the log.
	SessionDBFile string `json:"session_db_file"`
}

func Default() Config {
	return Config{
		Server: Server{
			HTTPAddr: ":50000",
			Debug:    false,
		},
		Paths: Paths{
			WebDir:        "web",
			SlideshowsDir: "slideshows",
			QueueFile:     "queue.json",
			SessionDBFile: "data/sessions.db",
		},
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.HTTPAddr) == "" {
		return errors.New("server.http_addr is required")
	}
	if strings.TrimSpace(c.Paths.WebDir) == "" {
		return errors.New("paths.web_dir is required")
	}
	if strings.TrimSpace(c.Paths.SlideshowsDir) == "" {
		return errors.New("paths.slideshows_dir is required")
	}
	if strings.TrimSpace(c.Paths.QueueFile) == "" {
		return errors.New("paths.queue_file is required")
	}
	return nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
