// Package rewriter injects the link-interception and pagination script
// into served HTML content. Rewrite is a pure function over bytes and is
// safe for concurrent use.
package rewriter

import (
	"bytes"
	"unicode/utf8"

	"github.com/valyala/fasttemplate"
)

var closeBody = []byte("</body")

type Rewriter struct {
	script []byte
}

// New binds the injected script to the custom URI scheme (without the
// "://" suffix, e.g. "epub").
func New(scheme string) *Rewriter {
	t := fasttemplate.New(scriptTemplate, "{{", "}}")
	return &Rewriter{
		script: []byte(t.ExecuteString(map[string]interface{}{"scheme": scheme})),
	}
}

// Rewrite inserts the style and script block once, immediately before the closing
// body tag, or appends it when the document has none. Content that
// already carries the injection marker is returned unchanged, so a double
// rewrite is byte-identical. Payloads that are not valid UTF-8 pass
// through untouched.
func (r *Rewriter) Rewrite(html []byte) []byte {
	if !utf8.Valid(html) {
		return html
	}
	if bytes.Contains(html, []byte(marker)) {
		return html
	}

	idx := lastCloseBodyIndex(html)
	out := make([]byte, 0, len(html)+len(r.script))
	if idx < 0 {
		out = append(out, html...)
		return append(out, r.script...)
	}
	out = append(out, html[:idx]...)
	out = append(out, r.script...)
	return append(out, html[idx:]...)
}

// lastCloseBodyIndex finds the final "</body" case-insensitively. The
// scan folds ASCII in place instead of indexing a bytes.ToLower copy:
// Unicode lowercasing can change byte lengths, so an index computed on a
// lowered copy would splice at the wrong offset.
func lastCloseBodyIndex(html []byte) int {
	for i := len(html) - len(closeBody); i >= 0; i-- {
		if matchASCIIFold(html[i:i+len(closeBody)], closeBody) {
			return i
		}
	}
	return -1
}

func matchASCIIFold(b, lower []byte) bool {
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lower[i] {
			return false
		}
	}
	return true
}
