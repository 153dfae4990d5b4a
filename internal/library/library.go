// Package library holds the in-memory index of loaded EPUB documents.
// The index is built once at startup and is read-only afterwards.
package library

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/velikanov/bookshelf/pkg/epub"
)

var ErrNotFound = errors.New("book not found")

// Library maps book keys (source filenames) to loaded documents. It is
// constructed by Scan and injected into every consumer; there is no
// ambient process-wide instance.
type Library struct {
	mu    sync.RWMutex
	books map[string]*epub.Document
}

// Scan reads dir once and loads every .epub file in it. A file that fails
// to load is logged and skipped: it never appears under any key. The only
// fatal condition is the directory itself being unreadable.
func Scan(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read books directory")
	}

	books := make(map[string]*epub.Document)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".epub") {
			continue
		}
		doc, err := epub.Load(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Printf("skipping %s: %v", e.Name(), err)
			continue
		}
		books[doc.BookKey] = doc
	}

	return &Library{books: books}, nil
}

// Get looks up a document by its book key.
func (l *Library) Get(bookKey string) (*epub.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	doc, ok := l.books[bookKey]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, bookKey)
	}
	return doc, nil
}

// All returns a snapshot of every loaded document. Order is unspecified;
// callers that need determinism sort the result themselves.
func (l *Library) All() []*epub.Document {
	l.mu.RLock()
	defer l.mu.RUnlock()

	docs := make([]*epub.Document, 0, len(l.books))
	for _, doc := range l.books {
		docs = append(docs, doc)
	}
	return docs
}

// Len reports the number of loaded books.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.books)
}
