// Package framemsg defines the message contracts between the rendered
// EPUB content and the host rendering surface: the cross-frame
// postMessage protocol emitted by the injected script, and the JSON shape
// of the reading position owned by the display layer.
package framemsg

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Type tags of the closed cross-frame protocol.
type Type string

const (
	// TypeExternalLink is posted to the parent context when an anchor
	// with a non-epub scheme is clicked.
	TypeExternalLink Type = "epub-external-link"
	// TypePagination reports the visible page whenever it changes or
	// after initial layout.
	TypePagination Type = "epub-pagination"
	// TypePaginationNext and TypePaginationPrevious move the viewport by
	// one page width. Sent by the host into the content frame.
	TypePaginationNext     Type = "pagination-next"
	TypePaginationPrevious Type = "pagination-previous"
)

var (
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
)

// Message is the decoded form of one protocol message. Fields beyond Type
// are populated per kind: URL for external links, Page/TotalPages for
// pagination reports.
type Message struct {
	Type       Type   `json:"type"`
	URL        string `json:"url,omitempty"`
	Page       int    `json:"page,omitempty"`
	TotalPages int    `json:"totalPages,omitempty"`
}

// Decode validates raw message payloads at the boundary. Unrecognized or
// malformed messages yield an error so the caller can drop them with a
// warning log; they are never surfaced back to the rendered content.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, errors.Wrap(ErrMalformedMessage, err.Error())
	}
	switch m.Type {
	case TypeExternalLink:
		if m.URL == "" {
			return Message{}, errors.Wrap(ErrMalformedMessage, "external link without url")
		}
	case TypePagination:
		if m.Page < 0 || m.TotalPages < 1 || m.Page >= m.TotalPages {
			return Message{}, errors.Wrap(ErrMalformedMessage, "pagination out of bounds")
		}
	case TypePaginationNext, TypePaginationPrevious:
	default:
		return Message{}, errors.Wrapf(ErrUnknownMessage, "%q", m.Type)
	}
	return m, nil
}

// ReadingPosition is the persistence contract for the user's last-read
// page. Lifecycle belongs to the display layer; the core only fixes the
// JSON shape.
type ReadingPosition struct {
	BookKey     string `json:"bookKey"`
	ContentPath string `json:"contentPath"`
	Page        int    `json:"page"`
	Timestamp   int64  `json:"timestamp"`
}
