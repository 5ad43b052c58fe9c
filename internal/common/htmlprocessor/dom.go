package htmlprocessor

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// domDocument implements Document on top of goquery.
type domDocument struct {
	doc *goquery.Document
}

// ParseWithDOM parses HTML bytes into a Document.
func ParseWithDOM(htmlBytes []byte) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		return nil, err
	}
	return &domDocument{doc: doc}, nil
}

func (d *domDocument) Title() string {
	title := strings.TrimSpace(d.doc.Find("title").First().Text())
	runes := []rune(title)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}
	return title
}

func (d *domDocument) InlineScripts() []string {
	var bodies []string
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		// script content is raw text, not parsed markup
		bodies = append(bodies, rawText(s.Get(0)))
	})
	return bodies
}

func (d *domDocument) ElementsWithAttr(attr string) []Element {
	sel := d.doc.Find("[" + attr + "]")
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, Element{sel: s})
	})
	return elements
}

func (d *domDocument) HTML() []byte {
	var buf bytes.Buffer
	for _, n := range d.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil
		}
	}
	return buf.Bytes()
}

// Element is a single node selected from a Document.
type Element struct {
	sel *goquery.Selection
}

// Attr returns the attribute value or "" when absent.
func (e Element) Attr(name string) string {
	return e.sel.AttrOr(name, "")
}

// Text returns the trimmed text content of the element and its descendants,
// ignoring descendants matching any strip selector.
func (e Element) Text(strip ...string) string {
	if len(strip) == 0 {
		return strings.TrimSpace(e.sel.Text())
	}
	return strings.TrimSpace(e.stripped(strip).Text())
}

// InnerHTML serializes the element's children after removing every
// descendant matching one of the strip selectors. The source document is
// left untouched.
func (e Element) InnerHTML(strip ...string) (string, error) {
	markup, err := e.stripped(strip).Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(markup), nil
}

func (e Element) stripped(strip []string) *goquery.Selection {
	clone := e.sel.Clone()
	for _, selector := range strip {
		clone.Find(selector).Remove()
	}
	return clone
}

func rawText(node *html.Node) string {
	if node == nil {
		return ""
	}
	var sb strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
