package extract

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MinContentLen is the length a content region must exceed to be read
// instead of falling back to a wider region.
const MinContentLen = 500

// FromHTML returns the readable text of an HTML document. The first of
// <main>, <article> and [role=main] with enough text wins; then all
// paragraphs; then the whole body.
func FromHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	for _, match := range []func(*html.Node) bool{
		isElement(atom.Main),
		isElement(atom.Article),
		hasAttr("role", "main"),
	} {
		if n := findFirst(doc, match); n != nil {
			if t := visibleText(n); long(t) {
				return t, nil
			}
		}
	}

	var paras []string
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			if t := visibleText(n); t != "" {
				paras = append(paras, t)
			}
			return false
		}
		return !skipped(n)
	})
	if joined := strings.Join(paras, "\n\n"); long(joined) {
		return joined, nil
	}

	if body := findFirst(doc, isElement(atom.Body)); body != nil {
		return visibleText(body), nil
	}
	return visibleText(doc), nil
}

func long(s string) bool {
	return utf8.RuneCountInString(s) > MinContentLen
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func hasAttr(key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := attr(n, key)
		return ok && strings.EqualFold(strings.TrimSpace(v), value)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil || skipped(n) {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// skipped reports nodes whose text is never rendered.
func skipped(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return true
	case html.ElementNode:
	default:
		return false
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head, atom.Svg:
		return true
	}
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	if v, _ := attr(n, "aria-hidden"); v == "true" {
		return true
	}
	if v, _ := attr(n, "style"); strings.Contains(strings.ReplaceAll(v, " ", ""), "display:none") {
		return true
	}
	return false
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// visibleText renders the text of n with block elements on their own lines.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var render func(*html.Node)
	render = func(n *html.Node) {
		if skipped(n) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	render(n)
	return tidy(b.String())
}

// tidy collapses spaces within lines and drops blank lines.
func tidy(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
