package epub

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// TocNode is one entry of the table of contents. Children at every level
// are ordered ascending by PlayOrder; ties keep declaration order. The
// same ContentPath may appear more than once in the tree (a resource can
// be both a chapter and an anchor target).
type TocNode struct {
	Label       string    `json:"label"`
	ContentPath string    `json:"contentPath"`
	PlayOrder   int       `json:"playOrder"`
	Children    []TocNode `json:"children"`
}

// parseToc extracts the navigation tree: the EPUB 3 nav document when the
// manifest declares one, the NCX otherwise. A missing or unparseable
// navigation document yields an empty forest, not a load error.
func parseToc(files zipFiles, pkg opf, doc *Document) []TocNode {
	if nodes, ok := parseNavDoc(files, pkg, doc); ok {
		return nodes
	}
	if nodes, ok := parseNCX(files, pkg, doc); ok {
		return nodes
	}
	return []TocNode{}
}

func parseNCX(files zipFiles, pkg opf, doc *Document) ([]TocNode, bool) {
	if pkg.Spine.Toc == "" {
		return nil, false
	}
	item, ok := doc.Manifest[pkg.Spine.Toc]
	if !ok {
		return nil, false
	}
	data, err := files.read(item.Path)
	if err != nil {
		return nil, false
	}
	var n ncx
	if err := xml.Unmarshal(data, &n); err != nil {
		return nil, false
	}
	return convertNavPoints(n.NavPoints, item.Path), true
}

func convertNavPoints(points []navPoint, ncxPath string) []TocNode {
	nodes := make([]TocNode, 0, len(points))
	for i, np := range points {
		order, err := strconv.Atoi(strings.TrimSpace(np.PlayOrder))
		if err != nil {
			order = i + 1 // declaration order when playOrder is absent
		}
		nodes = append(nodes, TocNode{
			Label:       strings.TrimSpace(np.Label),
			ContentPath: resolveRelative(ncxPath, strings.TrimSpace(np.Content.Src)),
			PlayOrder:   order,
			Children:    convertNavPoints(np.Children, ncxPath),
		})
	}
	return sortTocLevel(nodes)
}

func sortTocLevel(nodes []TocNode) []TocNode {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].PlayOrder < nodes[j].PlayOrder
	})
	return nodes
}

// parseNavDoc handles the EPUB 3 navigation document: the manifest item
// carrying the "nav" property, with entries in <nav epub:type="toc">.
// PlayOrder is synthesized from document order, which the nav format
// implies.
func parseNavDoc(files zipFiles, pkg opf, doc *Document) ([]TocNode, bool) {
	var navPath string
	for _, raw := range pkg.Manifest {
		for _, prop := range strings.Fields(raw.Properties) {
			if prop == "nav" {
				if item, ok := doc.Manifest[raw.Id]; ok {
					navPath = item.Path
				}
				break
			}
		}
		if navPath != "" {
			break
		}
	}
	if navPath == "" {
		return nil, false
	}
	data, err := files.read(navPath)
	if err != nil {
		return nil, false
	}
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	nav := findTocNav(root)
	if nav == nil {
		return nil, false
	}
	ol := findChildElement(nav, "ol")
	if ol == nil {
		return nil, false
	}
	order := 0
	return parseNavList(ol, navPath, &order), true
}

func findTocNav(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "nav" {
		for _, t := range strings.Fields(attrValue(n, "epub:type")) {
			if t == "toc" {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTocNav(c); found != nil {
			return found
		}
	}
	return nil
}

func parseNavList(ol *html.Node, basePath string, order *int) []TocNode {
	var nodes []TocNode
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		var node TocNode
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "a":
				if node.PlayOrder == 0 {
					*order++
					node.PlayOrder = *order
					node.Label = strings.TrimSpace(textContent(c))
					node.ContentPath = resolveRelative(basePath, attrValue(c, "href"))
				}
			case "span":
				// heading-only entry, no target
				if node.PlayOrder == 0 {
					*order++
					node.PlayOrder = *order
					node.Label = strings.TrimSpace(textContent(c))
				}
			case "ol":
				node.Children = parseNavList(c, basePath, order)
			}
		}
		nodes = append(nodes, node)
	}
	return sortTocLevel(nodes)
}

func findChildElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findChildElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
