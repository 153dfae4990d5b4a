package library

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeBook(t *testing.T, dir, name string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
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
    <dc:title>` + name + `</dc:title>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.html" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`,
		"ch1.html": `<html><body/></html>`,
	}
	for entry, content := range entries {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "alpha.epub")
	writeBook(t, dir, "beta.epub")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.epub"), []byte("not a zip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.epub"), 0o755))

	lib, err := Scan(dir)
	require.NoError(t, err)
	require.Equal(t, 2, lib.Len())

	doc, err := lib.Get("alpha.epub")
	require.NoError(t, err)
	require.Equal(t, "alpha.epub", doc.Title)

	_, err = lib.Get("corrupt.epub")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = lib.Get("notes.txt")
	require.ErrorIs(t, err, ErrNotFound)

	require.Len(t, lib.All(), 2)
}

func TestScan_UppercaseExtension(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "shouting.EPUB")

	lib, err := Scan(dir)
	require.NoError(t, err)
	require.Equal(t, 1, lib.Len())

	_, err = lib.Get("shouting.EPUB")
	require.NoError(t, err)
}

func TestScan_MissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestGet_Unknown(t *testing.T) {
	lib, err := Scan(t.TempDir())
	require.NoError(t, err)

	_, err = lib.Get("ghost.epub")
	require.ErrorIs(t, err, ErrNotFound)
}
