// Package epub loads EPUB archives into immutable in-memory documents:
// resource manifest, linear reading order and table of contents.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const containerPath = "META-INF/container.xml"

var (
	ErrNoContainer      = errors.New("no container.xml found")
	ErrNoPackage        = errors.New("no package document found")
	ErrResourceNotFound = errors.New("resource not found in archive")
)

// ManifestItem is a single declared resource of the package document.
type ManifestItem struct {
	ID        string
	Path      string // archive-relative, normalized
	MediaType string
}

// Document is a loaded EPUB. It is immutable after Load and safe for
// concurrent readers. Resource bytes are not kept in memory: ReadResource
// goes back to the archive on every call.
type Document struct {
	BookKey   string // source filename, stable for the process lifetime
	Title     string
	CoverPath string // "" when the book has no detectable cover
	Manifest  map[string]ManifestItem
	Spine     []string // reading order as archive paths, may be empty
	Toc       []TocNode

	filePath string
	byPath   map[string]ManifestItem
}

// Load parses the archive at filePath into a Document. Any failure is
// per-file: callers scanning a directory skip the archive and move on.
func Load(filePath string) (*Document, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open archive")
	}
	defer zr.Close()

	files := zipIndex(&zr.Reader)

	pkgPath, err := locatePackage(files)
	if err != nil {
		return nil, err
	}
	var pkg opf
	if err := files.decode(pkgPath, &pkg); err != nil {
		return nil, errors.Wrap(err, "failed to parse package document")
	}

	doc := &Document{
		BookKey:  filepath.Base(filePath),
		Manifest: make(map[string]ManifestItem, len(pkg.Manifest)),
		byPath:   make(map[string]ManifestItem, len(pkg.Manifest)),
		filePath: filePath,
	}

	doc.Title = firstNonEmpty(pkg.Metadata.Titles)
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(doc.BookKey, filepath.Ext(doc.BookKey))
	}

	for _, item := range pkg.Manifest {
		p := NormalizePath(resolveRelative(pkgPath, item.Href))
		if p == "" || escapesRoot(p) {
			return nil, errors.Errorf("manifest item %q points outside the archive", item.Id)
		}
		mi := ManifestItem{ID: item.Id, Path: p, MediaType: item.MediaType}
		doc.Manifest[item.Id] = mi
		doc.byPath[p] = mi
	}

	doc.Spine = make([]string, 0, len(pkg.Spine.ItemRefs))
	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := doc.Manifest[ref.Idref]
		if !ok {
			return nil, errors.Errorf("spine references unknown manifest item %q", ref.Idref)
		}
		doc.Spine = append(doc.Spine, item.Path)
	}

	doc.Toc = parseToc(files, pkg, doc)
	doc.CoverPath = detectCover(files, pkg, doc)

	return doc, nil
}

// ResourceByPath resolves an archive path against the manifest: exact
// match first, then with a single leading slash ignored.
func (d *Document) ResourceByPath(p string) (ManifestItem, bool) {
	if item, ok := d.byPath[p]; ok {
		return item, true
	}
	if strings.HasPrefix(p, "/") {
		if item, ok := d.byPath[strings.TrimPrefix(p, "/")]; ok {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// ReadResource returns the raw bytes and declared media type of the
// manifest resource at p. The archive is re-opened on every call, which
// keeps the Document itself stateless under concurrent readers.
func (d *Document) ReadResource(p string) ([]byte, string, error) {
	item, ok := d.ResourceByPath(NormalizePath(p))
	if !ok {
		return nil, "", errors.Wrap(ErrResourceNotFound, p)
	}
	zr, err := zip.OpenReader(d.filePath)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open archive")
	}
	defer zr.Close()
	data, err := zipIndex(&zr.Reader).read(item.Path)
	if err != nil {
		return nil, "", err
	}
	return data, item.MediaType, nil
}

// SpineIndex returns the position of contentPath in the linear reading
// order. A trailing fragment is ignored, so an anchor target maps to the
// chapter that contains it.
func (d *Document) SpineIndex(contentPath string) (int, bool) {
	target := NormalizePath(contentPath)
	if target == "" {
		return 0, false
	}
	for i, p := range d.Spine {
		if p == target {
			return i, true
		}
	}
	return 0, false
}

func locatePackage(files zipFiles) (string, error) {
	var c container
	if err := files.decode(containerPath, &c); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return "", ErrNoContainer
		}
		return "", errors.Wrap(err, "failed to parse container.xml")
	}
	p, ok := c.packagePath()
	if !ok {
		return "", ErrNoPackage
	}
	p = NormalizePath(p)
	if _, exists := files[p]; !exists {
		return "", errors.Wrap(ErrNoPackage, p)
	}
	return p, nil
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

type zipFiles map[string]*zip.File

func zipIndex(zr *zip.Reader) zipFiles {
	files := make(zipFiles, len(zr.File))
	for _, f := range zr.File {
		files[NormalizePath(f.Name)] = f
	}
	return files
}

func (z zipFiles) read(p string) (data []byte, err error) {
	f, ok := z[NormalizePath(p)]
	if !ok {
		return nil, errors.Wrap(ErrResourceNotFound, p)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", p)
	}
	defer func() {
		if closeErr := rc.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close %s", p)
		}
	}()
	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", p)
	}
	return data, nil
}

func (z zipFiles) decode(p string, v interface{}) error {
	data, err := z.read(p)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}
