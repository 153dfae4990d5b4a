// Package messages maps internal error conditions to the user-displayable
// strings the UI boundary returns. The catalog is a flat JSON file of
// id -> template; templates may carry {{arg}} placeholders.
package messages

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/valyala/fasttemplate"
)

// Well-known message ids used by the handler layer.
const (
	BookNotFound       = "book_not_found"
	ResourceNotFound   = "resource_not_found"
	ChapterUnavailable = "chapter_unavailable"
	InvalidURI         = "invalid_uri"
	PositionNotFound   = "position_not_found"
	InternalError      = "internal_error"
	InvalidRequest     = "invalid_request"
)

var defaults = map[string]string{
	BookNotFound:       "Book {{key}} not found",
	ResourceNotFound:   "Resource not found",
	ChapterUnavailable: "Chapter unavailable",
	InvalidURI:         "Invalid book address",
	PositionNotFound:   "No saved reading position",
	InternalError:      "Something went wrong",
	InvalidRequest:     "Invalid request",
}

type translation struct {
	template *fasttemplate.Template
	text     string
}

func (t *translation) UnmarshalJSON(data []byte) error {
	var text string
	err := json.Unmarshal(data, &text)
	if err != nil {
		return err
	}
	t.text = text
	t.template, err = fasttemplate.NewTemplate(text, "{{", "}}")
	return err
}

// Catalog holds the loaded message set. Safe for concurrent readers; Load
// may be called again at any time (the file watcher does).
type Catalog struct {
	mu  sync.RWMutex
	cms map[string]*translation
}

// Default returns a catalog populated with the built-in texts.
func Default() *Catalog {
	cms := make(map[string]*translation, len(defaults))
	for id, text := range defaults {
		cms[id] = &translation{
			text:     text,
			template: fasttemplate.New(text, "{{", "}}"),
		}
	}
	return &Catalog{cms: cms}
}

// Load replaces the catalog with the contents of the JSON file at path.
// Ids missing from the file keep their built-in defaults.
func (c *Catalog) Load(path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	var loaded map[string]*translation
	if err := json.NewDecoder(f).Decode(&loaded); err != nil {
		return errors.Wrap(err, "failed to decode message catalog")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cms == nil {
		c.cms = make(map[string]*translation, len(loaded))
	}
	for id, t := range loaded {
		c.cms[id] = t
	}
	return nil
}

// Get returns the text for id, falling back to fallback when the id is
// unknown.
func (c *Catalog) Get(id, fallback string) string {
	t, ok := c.get(id)
	if !ok {
		return fallback
	}
	return t.text
}

// GetWithArgs expands the template for id with args. Unknown ids and
// missing arguments fall back to fallback.
func (c *Catalog) GetWithArgs(id, fallback string, args map[string]string) string {
	t, ok := c.get(id)
	if !ok {
		return fallback
	}
	text, err := t.template.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		value, ok := args[tag]
		if !ok {
			return 0, fmt.Errorf("missing argument %s", tag)
		}
		return w.Write([]byte(value))
	})
	if err != nil {
		return fallback
	}
	return text
}

func (c *Catalog) get(id string) (*translation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.cms[id]
	return t, ok
}

// Watcher reloads the catalog file on write until closed.
type Watcher struct {
	stop chan struct{}
	done chan error
}

// LoadAndWatch loads the catalog from path and keeps reloading it on
// every write. Reload failures are logged, never fatal.
func (c *Catalog) LoadAndWatch(path string) (*Watcher, error) {
	if err := c.Load(path); err != nil {
		return nil, errors.Wrap(err, "failed to load message catalog")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}
	if err := fsw.Add(path); err != nil {
		return nil, errors.Wrap(err, "failed to watch message catalog")
	}
	stop := make(chan struct{})
	done := make(chan error)
	go func() {
		for {
			select {
			case event := <-fsw.Events:
				if event.Op&fsnotify.Write == fsnotify.Write {
					if err := c.Load(path); err != nil {
						log.Println(errors.Wrap(err, "failed to reload message catalog"))
					}
				}
			case err := <-fsw.Errors:
				log.Println(errors.Wrap(err, "message catalog watch error"))
			case <-stop:
				done <- fsw.Close()
				return
			}
		}
	}()
	return &Watcher{stop: stop, done: done}, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return <-w.done
}
