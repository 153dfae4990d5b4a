package epub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeArchive writes a zip with the given entries into a temp dir and
// returns its path.
func writeArchive(t *testing.T, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for entryName, content := range entries {
		w, err := zw.Create(entryName)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const twoChapterOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Frankenstein</dc:title>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.html" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.html" media-type="application/xhtml+xml"/>
    <item id="cover-img" href="cover.jpg" media-type="image/jpeg"/>
    <item id="css" href="style.css" media-type="text/css"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

// navPoints are deliberately out of playOrder in document order.
const twoChapterNCX = `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n2" playOrder="2">
      <navLabel><text>Chapter 2</text></navLabel>
      <content src="ch2.html"/>
    </navPoint>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Chapter 1</text></navLabel>
      <content src="ch1.html"/>
      <navPoint id="n1-1" playOrder="3">
        <navLabel><text>Section 1.1</text></navLabel>
        <content src="ch1.html#s1"/>
      </navPoint>
    </navPoint>
  </navMap>
</ncx>`

const coverJPEG = "\xff\xd8\xff\xe0fake-jpeg-payload"

// twoChapterBook is a minimal EPUB 2 book: two chapters, NCX navigation
// and a JPEG cover declared through meta name="cover".
func twoChapterBook(t *testing.T, name string) string {
	t.Helper()
	return writeArchive(t, name, map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      twoChapterOPF,
		"OEBPS/toc.ncx":          twoChapterNCX,
		"OEBPS/ch1.html":         `<html><body><h1 id="s1">Chapter 1</h1></body></html>`,
		"OEBPS/ch2.html":         `<html><body><h1>Chapter 2</h1></body></html>`,
		"OEBPS/cover.jpg":        coverJPEG,
		"OEBPS/style.css":        "body { margin: 0 }",
	})
}
