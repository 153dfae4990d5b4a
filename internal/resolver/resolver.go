// Package resolver translates custom-scheme URIs of the form
// epub://<bookKey>/<resourcePath> into resource bytes and a media type.
package resolver

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/velikanov/bookshelf/pkg/contenttype"
	"github.com/velikanov/bookshelf/pkg/epub"
)

// Scheme is the custom URI scheme under which EPUB-internal resources are
// addressed.
const Scheme = "epub"

var ErrInvalidURI = errors.New("invalid epub uri")

// Library is the read-only view the resolver needs of the book index.
type Library interface {
	Get(bookKey string) (*epub.Document, error)
}

// Rewriter transforms HTML payloads before they are served.
type Rewriter interface {
	Rewrite(html []byte) []byte
}

type Resolver struct {
	lib Library
	rw  Rewriter
}

func New(lib Library, rw Rewriter) *Resolver {
	return &Resolver{lib: lib, rw: rw}
}

// URI builds the canonical custom-scheme URI for a resource, the inverse
// of Resolve's parsing. resourcePath is percent-encoded per segment.
func URI(bookKey, resourcePath string) string {
	segments := strings.Split(strings.TrimPrefix(resourcePath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return Scheme + "://" + url.PathEscape(bookKey) + "/" + strings.Join(segments, "/")
}

// Resolve parses uri, looks the book up in the library, resolves the
// resource against its manifest and returns the raw bytes with the
// declared media type. HTML and XHTML payloads are passed through the
// rewriter first; every other type is returned unmodified. Each call
// re-reads from the archive; there is no cache.
func (r *Resolver) Resolve(uri string) ([]byte, string, error) {
	bookKey, resource, err := ParseURI(uri)
	if err != nil {
		return nil, "", err
	}

	doc, err := r.lib.Get(bookKey)
	if err != nil {
		return nil, "", err
	}

	data, mediaType, err := doc.ReadResource(resource)
	if err != nil {
		return nil, "", err
	}

	if contenttype.IsHTML(mediaType) {
		data = r.rw.Rewrite(data)
	}
	return data, mediaType, nil
}

// ParseURI splits epub://<bookKey>/<resourcePath> into its decoded,
// normalized components. The fragment is dropped; a path that decodes to
// a parent traversal or an absolute location outside the archive root is
// rejected before any lookup happens.
func ParseURI(uri string) (bookKey, resource string, err error) {
	const prefix = Scheme + "://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", errors.Wrap(ErrInvalidURI, "unexpected scheme")
	}
	rest := uri[len(prefix):]
	slash := strings.IndexByte(rest, '/')
	if slash <= 0 {
		return "", "", errors.Wrap(ErrInvalidURI, "missing book key or resource path")
	}

	bookKey, err = url.PathUnescape(rest[:slash])
	if err != nil || bookKey == "" {
		return "", "", errors.Wrap(ErrInvalidURI, "bad book key")
	}

	resource = epub.NormalizePath(rest[slash+1:])
	if resource == "" {
		return "", "", errors.Wrap(ErrInvalidURI, "empty resource path")
	}
	if resource == ".." || strings.HasPrefix(resource, "../") || strings.HasPrefix(resource, "//") {
		return "", "", errors.Wrap(ErrInvalidURI, "path escapes archive root")
	}
	return bookKey, resource, nil
}
