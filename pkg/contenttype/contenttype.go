// Package contenttype classifies the media types declared in EPUB
// manifests.
package contenttype

import "strings"

// IsHTML reports whether the media type names an HTML or XHTML rendition.
// These are the only types the content rewriter applies to.
func IsHTML(mediaType string) bool {
	switch normalize(mediaType) {
	case "text/html", "application/xhtml+xml", "application/xhtml", "text/xhtml":
		return true
	}
	return false
}

// IsImage reports whether the media type names an image resource.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(normalize(mediaType), "image/")
}

func normalize(mediaType string) string {
	// drop parameters like "; charset=utf-8"
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
