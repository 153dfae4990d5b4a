package service

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velikanov/bookshelf/internal/library"
	"github.com/velikanov/bookshelf/internal/storage"
	"github.com/velikanov/bookshelf/pkg/framemsg"
)

// writeBook builds a one-chapter EPUB; withCover adds a declared JPEG
// cover.
func writeBook(t *testing.T, dir, name, title string, withCover bool) {
	t.Helper()
	coverItem, coverMeta := "", ""
	if withCover {
		coverItem = `<item id="cover-img" href="cover.jpg" media-type="image/jpeg"/>`
		coverMeta = `<meta name="cover" content="cover-img"/>`
	}
	entries := map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`,
		"content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>` + title + `</dc:title>
    ` + coverMeta + `
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.html" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.html" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    ` + coverItem + `
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`,
		"toc.ncx": `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Chapter 1</text></navLabel>
      <content src="ch1.html"/>
    </navPoint>
  </navMap>
</ncx>`,
		"ch1.html": `<html><body/></html>`,
		"ch2.html": `<html><body/></html>`,
	}
	if withCover {
		entries["cover.jpg"] = "\xff\xd8\xff\xe0jpeg"
	}

	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for entry, content := range entries {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	writeBook(t, dir, "walden.epub", "Walden", false)
	writeBook(t, dir, "frank-b.epub", "Frankenstein", true)
	writeBook(t, dir, "frank-a.epub", "Frankenstein", true)

	lib, err := library.Scan(dir)
	require.NoError(t, err)

	store, err := storage.NewTempStorage()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return NewService(lib, store)
}

func TestListBookCovers(t *testing.T) {
	svc := newTestService(t)

	covers := svc.ListBookCovers()
	require.Len(t, covers, 3)

	// ascending by title, then by book key
	require.Equal(t, "frank-a.epub", covers[0].BookKey)
	require.Equal(t, "frank-b.epub", covers[1].BookKey)
	require.Equal(t, "walden.epub", covers[2].BookKey)

	require.Equal(t, "epub://frank-a.epub/cover.jpg", covers[0].CoverURI)
	require.Equal(t, "Frankenstein", covers[0].Title)

	// a book without a cover carries the empty sentinel
	require.Equal(t, "Walden", covers[2].Title)
	require.Empty(t, covers[2].CoverURI)
}

func TestBookTitle(t *testing.T) {
	svc := newTestService(t)

	title, err := svc.BookTitle("walden.epub")
	require.NoError(t, err)
	require.Equal(t, "Walden", title)

	_, err = svc.BookTitle("ghost.epub")
	require.ErrorIs(t, err, library.ErrNotFound)
}

func TestSpine(t *testing.T) {
	svc := newTestService(t)

	spine, err := svc.Spine("walden.epub")
	require.NoError(t, err)
	require.Equal(t, []string{"ch1.html", "ch2.html"}, spine)

	// mutating the returned slice must not leak into the document
	spine[0] = "tampered"
	again, err := svc.Spine("walden.epub")
	require.NoError(t, err)
	require.Equal(t, "ch1.html", again[0])
}

func TestToc(t *testing.T) {
	svc := newTestService(t)

	toc, err := svc.Toc("walden.epub")
	require.NoError(t, err)
	require.Len(t, toc, 1)
	require.Equal(t, "Chapter 1", toc[0].Label)

	// mutating the returned forest must not leak into the document
	toc[0].Label = "tampered"
	again, err := svc.Toc("walden.epub")
	require.NoError(t, err)
	require.Equal(t, "Chapter 1", again[0].Label)
}

func TestSpineItem(t *testing.T) {
	svc := newTestService(t)

	path, ok, err := svc.SpineItem("walden.epub", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ch2.html", path)

	// out of range is not an error
	_, ok, err = svc.SpineItem("walden.epub", 2)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = svc.SpineItem("walden.epub", -1)
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = svc.SpineItem("ghost.epub", 0)
	require.ErrorIs(t, err, library.ErrNotFound)
}

func TestSpineIndex(t *testing.T) {
	svc := newTestService(t)

	idx, ok, err := svc.SpineIndex("walden.epub", "ch2.html")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok, err = svc.SpineIndex("walden.epub", "ch9.html")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = svc.SpineIndex("ghost.epub", "ch1.html")
	require.ErrorIs(t, err, library.ErrNotFound)
}

func TestPositionRoundTrip(t *testing.T) {
	svc := newTestService(t)

	pos := framemsg.ReadingPosition{
		BookKey:     "walden.epub",
		ContentPath: "ch2.html",
		Page:        3,
		Timestamp:   1700000000,
	}
	require.NoError(t, svc.SavePosition(pos))

	got, err := svc.Position("walden.epub")
	require.NoError(t, err)
	require.Equal(t, pos, got)
}

func TestPosition_NeverOpened(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Position("walden.epub")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Position("ghost.epub")
	require.ErrorIs(t, err, library.ErrNotFound)
}

func TestSavePosition_Validation(t *testing.T) {
	svc := newTestService(t)

	err := svc.SavePosition(framemsg.ReadingPosition{BookKey: "ghost.epub", Page: 0})
	require.ErrorIs(t, err, library.ErrNotFound)

	err = svc.SavePosition(framemsg.ReadingPosition{BookKey: "walden.epub", Page: -1})
	require.Error(t, err)

	err = svc.SavePosition(framemsg.ReadingPosition{
		BookKey:     "walden.epub",
		ContentPath: "missing.html",
		Page:        0,
	})
	require.Error(t, err)
}

func TestSavePosition_DefaultsTimestamp(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.SavePosition(framemsg.ReadingPosition{BookKey: "walden.epub", Page: 2}))

	got, err := svc.Position("walden.epub")
	require.NoError(t, err)
	require.NotZero(t, got.Timestamp)
}
