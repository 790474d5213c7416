package ws

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Command names accepted on the realtime channel. Anything else is rejected
// at the decode boundary.
const (
	CmdRefreshSlideshows = "refresh_slideshows"
	CmdLoadSlideshow     = "load_slideshow"
	CmdSetSlide          = "set_slide"
	CmdPlay              = "play"
	CmdPause             = "pause"
	CmdNextSlide         = "next_slide"
	CmdPrevSlide         = "prev_slide"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformedPayload = errors.New("malformed command payload")
)

// Command is a decoded client message.
type Command struct {
	Name string

	// SlideshowID is set for load_slideshow.
	SlideshowID string

	// Slide is set for set_slide.
	Slide int
}

type rawCommand struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

type loadParams struct {
	SlideshowID string `json:"slideshow_id"`
	ID          string `json:"id"`
}

type setSlideParams struct {
	Slide *int `json:"slide"`
}

// ParseCommand decodes one wire message into a Command. The command set is
// closed: parameters are validated here so handlers only ever see well-formed
// input.
func ParseCommand(data []byte) (Command, error) {
	var raw rawCommand
	if err := json.Unmarshal(data, &raw); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch raw.Command {
	case CmdRefreshSlideshows, CmdPlay, CmdPause, CmdNextSlide, CmdPrevSlide:
		return Command{Name: raw.Command}, nil

	case CmdLoadSlideshow:
		var p loadParams
		if len(raw.Params) > 0 {
			if err := json.Unmarshal(raw.Params, &p); err != nil {
				return Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
			}
		}
		id := p.SlideshowID
		if id == "" {
			id = p.ID
		}
		if id == "" {
			return Command{}, fmt.Errorf("%w: load_slideshow requires slideshow_id", ErrMalformedPayload)
		}
		return Command{Name: raw.Command, SlideshowID: id}, nil

	case CmdSetSlide:
		var p setSlideParams
		if len(raw.Params) > 0 {
			if err := json.Unmarshal(raw.Params, &p); err != nil {
				return Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
			}
		}
		if p.Slide == nil {
			return Command{}, fmt.Errorf("%w: set_slide requires slide", ErrMalformedPayload)
		}
		return Command{Name: raw.Command, Slide: *p.Slide}, nil

	case "":
		return Command{}, fmt.Errorf("%w: missing command field", ErrMalformedPayload)

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, raw.Command)
	}
}
