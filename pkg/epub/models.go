package epub

type container struct {
	Rootfiles []rootfile `xml:"rootfiles>rootfile"`
}

// packagePath returns the archive path of the package document. The
// rootfile with the OPF media type wins; the first declared rootfile is
// the fallback.
func (c container) packagePath() (string, bool) {
	for _, r := range c.Rootfiles {
		if r.MediaType == "application/oebps-package+xml" && r.FullPath != "" {
			return r.FullPath, true
		}
	}
	for _, r := range c.Rootfiles {
		if r.FullPath != "" {
			return r.FullPath, true
		}
	}
	return "", false
}

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opf struct {
	Metadata opfMetadata `xml:"metadata"`
	Manifest []opfItem   `xml:"manifest>item"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Titles []string  `xml:"title"`
	Metas  []opfMeta `xml:"meta"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type opfItem struct {
	Id         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemref `xml:"itemref"`
}

type opfItemref struct {
	Idref string `xml:"idref,attr"`
}

type ncx struct {
	NavPoints []navPoint `xml:"navMap>navPoint"`
}

type navPoint struct {
	PlayOrder string     `xml:"playOrder,attr"`
	Label     string     `xml:"navLabel>text"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}
