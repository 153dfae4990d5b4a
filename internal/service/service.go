// Package service is the command surface consumed by the UI boundary:
// book enumeration with covers, navigation metadata and reading
// positions.
package service

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/velikanov/bookshelf/internal/library"
	"github.com/velikanov/bookshelf/internal/resolver"
	"github.com/velikanov/bookshelf/internal/storage"
	"github.com/velikanov/bookshelf/pkg/epub"
	"github.com/velikanov/bookshelf/pkg/framemsg"
)

type Service struct {
	lib   *library.Library
	store *storage.Storage
}

func NewService(lib *library.Library, store *storage.Storage) *Service {
	return &Service{lib: lib, store: store}
}

// BookCover is one entry of the library grid. CoverURI is an epub://
// URI pointing at the resolved cover resource; the empty string is the
// sentinel for a book without a cover.
type BookCover struct {
	BookKey  string
	Title    string
	CoverURI string
}

// ListBookCovers enumerates every loaded book. The order is
// deterministic: ascending by title, ties broken by book key.
func (s *Service) ListBookCovers() []BookCover {
	docs := s.lib.All()
	covers := make([]BookCover, 0, len(docs))
	for _, doc := range docs {
		coverURI := ""
		if doc.CoverPath != "" {
			coverURI = resolver.URI(doc.BookKey, doc.CoverPath)
		}
		covers = append(covers, BookCover{
			BookKey:  doc.BookKey,
			Title:    doc.Title,
			CoverURI: coverURI,
		})
	}
	slices.SortFunc(covers, func(a, b BookCover) bool {
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.BookKey < b.BookKey
	})
	return covers
}

// BookTitle returns the display title for bookKey.
func (s *Service) BookTitle(bookKey string) (string, error) {
	doc, err := s.lib.Get(bookKey)
	if err != nil {
		return "", err
	}
	return doc.Title, nil
}

// Toc returns the table-of-contents forest for bookKey.
func (s *Service) Toc(bookKey string) ([]epub.TocNode, error) {
	doc, err := s.lib.Get(bookKey)
	if err != nil {
		return nil, err
	}
	// copy so callers cannot mutate the document; nodes are values
	return append([]epub.TocNode(nil), doc.Toc...), nil
}

// Spine returns the linear reading order for bookKey as archive paths.
func (s *Service) Spine(bookKey string) ([]string, error) {
	doc, err := s.lib.Get(bookKey)
	if err != nil {
		return nil, err
	}
	// copy so callers cannot mutate the document
	return append([]string(nil), doc.Spine...), nil
}

// SpineItem returns the archive path at position index in the linear
// reading order of bookKey. The boolean is false when index is out of
// range; the error reports an unknown book only.
func (s *Service) SpineItem(bookKey string, index int) (string, bool, error) {
	doc, err := s.lib.Get(bookKey)
	if err != nil {
		return "", false, err
	}
	if index < 0 || index >= len(doc.Spine) {
		return "", false, nil
	}
	return doc.Spine[index], true, nil
}

// SpineIndex locates contentPath in the spine of bookKey. The boolean is
// false when the path matches no spine entry; the error reports an
// unknown book only.
func (s *Service) SpineIndex(bookKey, contentPath string) (int, bool, error) {
	doc, err := s.lib.Get(bookKey)
	if err != nil {
		return 0, false, err
	}
	idx, ok := doc.SpineIndex(contentPath)
	return idx, ok, nil
}

// Position returns the stored reading position for bookKey.
// storage.ErrNotFound means the book exists but was never opened.
func (s *Service) Position(bookKey string) (framemsg.ReadingPosition, error) {
	if _, err := s.lib.Get(bookKey); err != nil {
		return framemsg.ReadingPosition{}, err
	}
	return s.store.Position(bookKey)
}

// SavePosition validates and persists a reading position produced by the
// display layer.
func (s *Service) SavePosition(pos framemsg.ReadingPosition) error {
	doc, err := s.lib.Get(pos.BookKey)
	if err != nil {
		return err
	}
	if pos.Page < 0 {
		return errors.Errorf("page must be non-negative, got %d", pos.Page)
	}
	if pos.ContentPath != "" {
		if _, ok := doc.ResourceByPath(epub.NormalizePath(pos.ContentPath)); !ok {
			return errors.Errorf("content path %q is not part of %s", pos.ContentPath, pos.BookKey)
		}
	}
	if pos.Timestamp == 0 {
		pos.Timestamp = time.Now().Unix()
	}
	return s.store.SavePosition(pos)
}
