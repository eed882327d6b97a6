package testutil

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// El creates an element with alternating attribute key/value pairs.
func El(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		SetAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// Append adds children to n and returns n.
func Append(n *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// WithText appends a text node to n and returns n.
func WithText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// Attr returns the value of n's attribute key, or "" if unset.
func Attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

// HasAttr reports whether n carries attribute key, e.g. a boolean attribute.
func HasAttr(n *html.Node, key string) bool {
	_, ok := lookupAttr(n, key)
	return ok
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces n's attribute key.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Style returns an inline style property of n.
func Style(n *html.Node, property string) string {
	for _, decl := range strings.Split(Attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == property {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// SetStyle sets an inline style property of n.
func SetStyle(n *html.Node, property, value string) {
	var decls []string
	for _, decl := range strings.Split(Attr(n, "style"), ";") {
		k, _, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) != property {
			decls = append(decls, strings.TrimSpace(decl))
		}
	}
	decls = append(decls, property+": "+value)
	SetAttr(n, "style", strings.Join(decls, "; "))
}

// TextContent concatenates the text of n and its descendants,
// whitespace-normalized.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(" ")
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// IsVisible reports whether neither n nor an ancestor is hidden.
func IsVisible(n *html.Node) bool {
	for x := n; x != nil; x = x.Parent {
		if x.Type == html.ElementNode && HasAttr(x, "hidden") {
			return false
		}
	}
	return true
}

// Elements returns the element children of n.
func Elements(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// QueryAll returns the descendant elements of root matching css, in
// document order. An empty css matches every descendant element.
func QueryAll(root *html.Node, css string) ([]*html.Node, error) {
	if strings.TrimSpace(css) == "" {
		css = "*"
	}
	sel, err := cascadia.ParseGroup(css)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", css, err)
	}
	return cascadia.QueryAll(root, sel), nil
}
