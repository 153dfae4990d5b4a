// Package handler exposes the command surface and the resource protocol
// over HTTP. It owns the mapping from internal error kinds to status
// codes and user-displayable texts.
package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/velikanov/bookshelf/internal/handler/internal/request"
	"github.com/velikanov/bookshelf/internal/handler/internal/respond"
	"github.com/velikanov/bookshelf/internal/library"
	"github.com/velikanov/bookshelf/internal/messages"
	"github.com/velikanov/bookshelf/internal/resolver"
	"github.com/velikanov/bookshelf/internal/service"
	"github.com/velikanov/bookshelf/internal/storage"
	"github.com/velikanov/bookshelf/pkg/epub"
	"github.com/velikanov/bookshelf/pkg/framemsg"
)

type Service interface {
	ListBookCovers() []service.BookCover
	BookTitle(bookKey string) (string, error)
	Toc(bookKey string) ([]epub.TocNode, error)
	Spine(bookKey string) ([]string, error)
	SpineItem(bookKey string, index int) (string, bool, error)
	SpineIndex(bookKey, contentPath string) (int, bool, error)
	Position(bookKey string) (framemsg.ReadingPosition, error)
	SavePosition(pos framemsg.ReadingPosition) error
}

type Resolver interface {
	Resolve(uri string) (data []byte, mediaType string, err error)
}

type Handlers struct {
	svc  Service
	res  Resolver
	msgs *messages.Catalog
}

func NewHandlers(svc Service, res Resolver, msgs *messages.Catalog) *Handlers {
	return &Handlers{svc: svc, res: res, msgs: msgs}
}

func (h *Handlers) Register(mx chi.Router) {
	mx.Get("/books", h.ListBooks)
	mx.Route("/books/{bookKey}", func(r chi.Router) {
		r.Get("/title", h.BookTitle)
		r.Get("/toc", h.Toc)
		r.Get("/spine", h.Spine)
		r.Get("/spine/{index}", h.SpineItem)
		r.Get("/spine-index", h.SpineIndex)
		r.Get("/position", h.Position)
		r.Put("/position", h.SavePosition)
	})
	mx.Get("/content", h.Content)
}

type ListBooksResponse struct {
	Books []ListBooksResponseItem `json:"books"`
}

type ListBooksResponseItem struct {
	BookKey  string `json:"bookKey"`
	Title    string `json:"title"`
	CoverURI string `json:"coverUri"` // "" when the book has no cover
}

func (h *Handlers) ListBooks(w http.ResponseWriter, r *http.Request) {
	covers := h.svc.ListBookCovers()
	resp := ListBooksResponse{Books: make([]ListBooksResponseItem, 0, len(covers))}
	for _, c := range covers {
		resp.Books = append(resp.Books, ListBooksResponseItem{
			BookKey:  c.BookKey,
			Title:    c.Title,
			CoverURI: c.CoverURI,
		})
	}
	respond.JSON(w, resp)
}

type BookTitleResponse struct {
	Title string `json:"title"`
}

func (h *Handlers) BookTitle(w http.ResponseWriter, r *http.Request) {
	title, err := h.svc.BookTitle(bookKey(r))
	if err != nil {
		h.bookError(w, r, err)
		return
	}
	respond.JSON(w, BookTitleResponse{Title: title})
}

type TocResponse struct {
	Toc []epub.TocNode `json:"toc"`
}

func (h *Handlers) Toc(w http.ResponseWriter, r *http.Request) {
	toc, err := h.svc.Toc(bookKey(r))
	if err != nil {
		h.bookError(w, r, err)
		return
	}
	respond.JSON(w, TocResponse{Toc: toc})
}

type SpineResponse struct {
	Spine []string `json:"spine"`
}

func (h *Handlers) Spine(w http.ResponseWriter, r *http.Request) {
	spine, err := h.svc.Spine(bookKey(r))
	if err != nil {
		h.bookError(w, r, err)
		return
	}
	respond.JSON(w, SpineResponse{Spine: spine})
}

type SpineItemResponse struct {
	Path *string `json:"path"` // null when the index is out of range
}

func (h *Handlers) SpineItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respond.ErrorWithText(w, http.StatusBadRequest, respond.CODE_INVALID_QUERY,
			h.msgs.Get(messages.InvalidRequest, "index must be an integer"))
		return
	}
	path, ok, err := h.svc.SpineItem(bookKey(r), index)
	if err != nil {
		h.bookError(w, r, err)
		return
	}
	resp := SpineItemResponse{}
	if ok {
		resp.Path = &path
	}
	respond.JSON(w, resp)
}

type SpineIndexResponse struct {
	Index *int `json:"index"` // null when the path is in no spine entry
}

func (h *Handlers) SpineIndex(w http.ResponseWriter, r *http.Request) {
	contentPath := r.URL.Query().Get("path")
	if contentPath == "" {
		respond.ErrorWithText(w, http.StatusBadRequest, respond.CODE_INVALID_QUERY,
			h.msgs.Get(messages.InvalidRequest, "missing path parameter"))
		return
	}
	idx, ok, err := h.svc.SpineIndex(bookKey(r), contentPath)
	if err != nil {
		h.bookError(w, r, err)
		return
	}
	resp := SpineIndexResponse{}
	if ok {
		resp.Index = &idx
	}
	respond.JSON(w, resp)
}

func (h *Handlers) Position(w http.ResponseWriter, r *http.Request) {
	pos, err := h.svc.Position(bookKey(r))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respond.ErrorWithText(w, http.StatusNotFound, respond.CODE_POSITION_NOT_FOUND,
				h.msgs.Get(messages.PositionNotFound, "no saved reading position"))
		default:
			h.bookError(w, r, err)
		}
		return
	}
	respond.JSON(w, pos)
}

func (h *Handlers) SavePosition(w http.ResponseWriter, r *http.Request) {
	var pos framemsg.ReadingPosition
	if err := request.DecodeJSON(r.Body, &pos); err != nil {
		respond.ErrorWithCode(w, http.StatusBadRequest, respond.CODE_INVALID_JSON)
		return
	}
	key := bookKey(r)
	if pos.BookKey == "" {
		pos.BookKey = key
	}
	if pos.BookKey != key {
		respond.ErrorWithText(w, http.StatusBadRequest, respond.CODE_INVALID_QUERY,
			h.msgs.Get(messages.InvalidRequest, "book key mismatch"))
		return
	}
	if err := h.svc.SavePosition(pos); err != nil {
		switch {
		case errors.Is(err, library.ErrNotFound):
			h.bookError(w, r, err)
		default:
			respond.ErrorWithText(w, http.StatusBadRequest, respond.CODE_INVALID_QUERY,
				h.msgs.Get(messages.InvalidRequest, "invalid reading position"))
		}
		return
	}
	respond.JSON(w, pos)
}

// Content serves a resource addressed by an epub:// URI passed in the
// "uri" query parameter, the HTTP rendition of the custom-scheme
// protocol. HTML payloads come back already rewritten by the resolver.
func (h *Handlers) Content(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		respond.ErrorWithText(w, http.StatusBadRequest, respond.CODE_INVALID_QUERY,
			h.msgs.Get(messages.InvalidRequest, "missing uri parameter"))
		return
	}
	data, mediaType, err := h.res.Resolve(uri)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrInvalidURI):
			respond.ErrorWithText(w, http.StatusBadRequest, respond.CODE_INVALID_URI,
				h.msgs.Get(messages.InvalidURI, "invalid book address"))
		case errors.Is(err, library.ErrNotFound):
			// the uri parsed already, or Resolve would have failed earlier
			key, _, _ := resolver.ParseURI(uri)
			respond.ErrorWithText(w, http.StatusNotFound, respond.CODE_BOOK_NOT_FOUND,
				h.msgs.GetWithArgs(messages.BookNotFound, "book not found",
					map[string]string{"key": key}))
		case errors.Is(err, epub.ErrResourceNotFound):
			respond.ErrorWithText(w, http.StatusNotFound, respond.CODE_RESOURCE_NOT_FOUND,
				h.msgs.Get(messages.ResourceNotFound, "resource not found"))
		default:
			respond.ErrorWithCode(w, http.StatusInternalServerError, respond.CODE_INTERNAL_ERROR)
		}
		return
	}
	w.Header().Set("Content-Type", mediaType)
	if _, err := w.Write(data); err != nil {
		// client went away mid-transfer
		return
	}
}

// bookError maps lookup failures shared by every per-book endpoint.
func (h *Handlers) bookError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		respond.ErrorWithText(w, http.StatusNotFound, respond.CODE_BOOK_NOT_FOUND,
			h.msgs.GetWithArgs(messages.BookNotFound, "book not found",
				map[string]string{"key": bookKey(r)}))
	default:
		respond.ErrorWithCode(w, http.StatusInternalServerError, respond.CODE_INTERNAL_ERROR)
	}
}

func bookKey(r *http.Request) string {
	raw := chi.URLParam(r, "bookKey")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
