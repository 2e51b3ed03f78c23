package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultOutlineLength caps the size of a DOM outline in bytes.
const DefaultOutlineLength = 200000

// Outline is a reduced view of page markup for failure diagnostics: scripts,
// styles and comments are removed and only attributes that locators target
// (ids, roles, ARIA labels, data-*) are kept.
type Outline struct {
	Title     string
	HTML      string
	Truncated bool
}

// OutlineMarkup parses rawHTML and renders its outline, stopping after
// maxLength bytes (0 means DefaultOutlineLength).
func OutlineMarkup(rawHTML string, maxLength int) (*Outline, error) {
	if maxLength <= 0 {
		maxLength = DefaultOutlineLength
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	o := &outliner{max: maxLength}
	o.walk(doc, 0)

	return &Outline{
		Title:     findTitle(doc),
		HTML:      strings.TrimSpace(o.b.String()),
		Truncated: o.truncated,
	}, nil
}

type outliner struct {
	b         strings.Builder
	max       int
	truncated bool
}

func (o *outliner) write(s string) {
	if o.truncated {
		return
	}
	if o.b.Len()+len(s) > o.max {
		o.b.WriteString(s[:o.max-o.b.Len()])
		o.b.WriteString("\n<!-- outline truncated -->")
		o.truncated = true
		return
	}
	o.b.WriteString(s)
}

func (o *outliner) walk(n *html.Node, depth int) {
	if o.truncated {
		return
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			o.write(html.EscapeString(text))
		}
		return
	case html.ElementNode:
		o.element(n, depth)
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		o.walk(c, depth)
	}
}

func (o *outliner) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if droppedTags[tag] {
		return
	}

	indent := "\n" + strings.Repeat("  ", depth)
	o.write(indent + "<" + tag)
	for _, attr := range n.Attr {
		if keepAttribute(attr.Key) {
			o.write(fmt.Sprintf(` %s="%s"`, attr.Key, html.EscapeString(attr.Val)))
		}
	}
	o.write(">")

	if voidTags[tag] {
		return
	}

	hasElementChild := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			hasElementChild = true
		}
		o.walk(c, depth+1)
	}

	if hasElementChild {
		o.write(indent)
	}
	o.write("</" + tag + ">")
}

var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"link":     true,
	"meta":     true,
	"svg":      true,
	"template": true,
}

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "param": true, "source": true, "track": true, "wbr": true,
}

func keepAttribute(key string) bool {
	key = strings.ToLower(key)
	switch key {
	case "id", "role", "name", "type", "title", "href", "alt", "placeholder":
		return true
	}
	return strings.HasPrefix(key, "aria-") || strings.HasPrefix(key, "data-")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
