package epub

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/velikanov/bookshelf/pkg/contenttype"
)

// detectCover picks the archive path of the cover resource. A declared
// reference wins: the EPUB 2 meta name="cover" id, then the EPUB 3
// cover-image manifest property. When the declared cover is an HTML page
// its first image is resolved instead, the page itself being the last
// resort. Without any declaration, an image whose id or path mentions
// "cover" is used. Returns "" when nothing matches.
func detectCover(files zipFiles, pkg opf, doc *Document) string {
	item, ok := declaredCover(pkg, doc)
	if !ok {
		if fallback, found := coverByName(pkg, doc); found {
			return fallback.Path
		}
		return ""
	}
	if contenttype.IsImage(item.MediaType) {
		return item.Path
	}
	if img := imageFromCoverPage(files, doc, item); img != "" {
		return img
	}
	if fallback, found := coverByName(pkg, doc); found {
		return fallback.Path
	}
	return item.Path
}

func declaredCover(pkg opf, doc *Document) (ManifestItem, bool) {
	for _, m := range pkg.Metadata.Metas {
		if strings.EqualFold(m.Name, "cover") && m.Content != "" {
			if item, ok := doc.Manifest[m.Content]; ok {
				return item, true
			}
		}
	}
	for _, raw := range pkg.Manifest {
		for _, prop := range strings.Fields(raw.Properties) {
			if prop == "cover-image" {
				if item, ok := doc.Manifest[raw.Id]; ok {
					return item, true
				}
			}
		}
	}
	return ManifestItem{}, false
}

// imageFromCoverPage extracts the first <img> (or SVG <image>) of an HTML
// cover page and maps it back to a manifest image entry.
func imageFromCoverPage(files zipFiles, doc *Document, page ManifestItem) string {
	data, err := files.read(page.Path)
	if err != nil {
		return ""
	}
	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	src, ok := gq.Find("img").First().Attr("src")
	if !ok {
		src, ok = gq.Find("image").First().Attr("xlink:href")
	}
	if !ok || src == "" {
		return ""
	}
	resolved := NormalizePath(resolveRelative(page.Path, src))
	if item, found := doc.byPath[resolved]; found && contenttype.IsImage(item.MediaType) {
		return item.Path
	}
	return ""
}

// coverByName falls back to filename convention, scanning the manifest in
// declaration order for an image whose path or id contains "cover".
func coverByName(pkg opf, doc *Document) (ManifestItem, bool) {
	for _, raw := range pkg.Manifest {
		item, ok := doc.Manifest[raw.Id]
		if !ok || !contenttype.IsImage(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(item.Path), "cover") ||
			strings.Contains(strings.ToLower(item.ID), "cover") {
			return item, true
		}
	}
	return ManifestItem{}, false
}
