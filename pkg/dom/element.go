package dom

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

type Element struct {
	node *html.Node
}

// Tag is the lower-case element name.
func (e *Element) Tag() string { return e.node.Data }

// Attr returns the attribute value or "".
func (e *Element) Attr(name string) string { return attr(e.node, name) }

func (e *Element) HasAttr(name string) bool {
	_, ok := lookupAttr(e.node, name)
	return ok
}

// Closest returns e or its nearest ancestor matching sel.
func (e *Element) Closest(sel string) *Element {
	s, err := parseSelector(sel)
	if err != nil {
		return nil
	}
	for n := e.node; n != nil; n = n.Parent {
		if s.matches(n) {
			return &Element{node: n}
		}
	}
	return nil
}

// Parent returns the enclosing element, or nil at the top.
func (e *Element) Parent() *Element {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return &Element{node: p}
		}
	}
	return nil
}

func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}

// Text concatenates the text nodes below e.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

// FormValues collects the successful controls below e the way a form
// submission would: named, enabled inputs (checked ones for checkbox and
// radio), textareas and selects. File inputs and buttons are skipped.
func (e *Element) FormValues() url.Values {
	values := url.Values{}
	walk(e.node, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		name := attr(n, "name")
		if name == "" {
			return true
		}
		if _, disabled := lookupAttr(n, "disabled"); disabled {
			return true
		}

		switch n.Data {
		case "input":
			switch strings.ToLower(attr(n, "type")) {
			case "submit", "button", "reset", "image", "file":
			case "checkbox", "radio":
				if _, checked := lookupAttr(n, "checked"); checked {
					v, ok := lookupAttr(n, "value")
					if !ok {
						v = "on"
					}
					values.Add(name, v)
				}
			default:
				values.Add(name, attr(n, "value"))
			}
		case "textarea":
			values.Add(name, (&Element{node: n}).Text())
		case "select":
			if v, ok := selectedOption(n); ok {
				values.Add(name, v)
			}
		}
		return true
	})
	return values
}

func selectedOption(sel *html.Node) (string, bool) {
	var first, chosen *html.Node
	walk(sel, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "option" {
			if first == nil {
				first = n
			}
			if _, ok := lookupAttr(n, "selected"); ok {
				chosen = n
				return false
			}
		}
		return true
	})
	if chosen == nil {
		chosen = first
	}
	if chosen == nil {
		return "", false
	}
	if v, ok := lookupAttr(chosen, "value"); ok {
		return v, true
	}
	return strings.TrimSpace((&Element{node: chosen}).Text()), true
}
