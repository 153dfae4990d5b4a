package epub

import (
	"net/url"
	"path"
	"strings"
)

// NormalizePath brings an archive-relative resource reference to the
// canonical form used for manifest and spine lookups: the fragment is
// stripped, percent-encoding is decoded and the path is slash-cleaned.
// The resource resolver and spine lookups share this function so they can
// never disagree about the same literal path.
func NormalizePath(p string) string {
	p = stripFragment(p)
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	if p == "." || p == "/" {
		return ""
	}
	return p
}

func stripFragment(p string) string {
	if i := strings.IndexByte(p, '#'); i >= 0 {
		return p[:i]
	}
	return p
}

// escapesRoot reports whether a cleaned path points outside the archive
// root, either absolutely or through parent traversal.
func escapesRoot(p string) bool {
	return path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../")
}

// resolveRelative resolves ref against the directory of base, keeping any
// trailing fragment. base and ref are archive paths as they appear in the
// package documents.
func resolveRelative(base, ref string) string {
	frag := ""
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref, frag = ref[:i], ref[i:]
	}
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	if ref == "" {
		return ""
	}
	return path.Clean(path.Join(path.Dir(base), ref)) + frag
}
