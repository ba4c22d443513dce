package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// selector is a descendant chain of compound selectors, e.g. "#app form.login".
type selector []compound

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	name   string
	value  string
	exists bool // [name] without a value
}

func parseSelector(s string) (selector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	sel := make(selector, 0, len(fields))
	for _, f := range fields {
		c, err := parseCompound(f)
		if err != nil {
			return nil, err
		}
		sel = append(sel, c)
	}
	return sel, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readName := func() string {
		start := i
		for i < len(s) && !strings.ContainsRune("#.[", rune(s[i])) {
			i++
		}
		return s[start:i]
	}

	c.tag = strings.ToLower(readName())
	if c.tag == "*" {
		c.tag = ""
	}
	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			c.id = readName()
		case '.':
			i++
			c.classes = append(c.classes, readName())
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute selector in %q", s)
			}
			body := s[i+1 : i+end]
			i += end + 1
			if name, value, ok := strings.Cut(body, "="); ok {
				c.attrs = append(c.attrs, attrMatch{name: strings.TrimSpace(name), value: strings.Trim(strings.TrimSpace(value), `"'`)})
			} else {
				c.attrs = append(c.attrs, attrMatch{name: strings.TrimSpace(body), exists: true})
			}
		default:
			return c, fmt.Errorf("unexpected %q in selector %q", s[i], s)
		}
	}
	return c, nil
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && attr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		v, ok := lookupAttr(n, a.name)
		if !ok || (!a.exists && v != a.value) {
			return false
		}
	}
	return true
}

// matches checks the last compound against n and the rest against its
// ancestors, in order.
func (s selector) matches(n *html.Node) bool {
	if !s[len(s)-1].matches(n) {
		return false
	}
	i := len(s) - 2
	for p := n.Parent; p != nil && i >= 0; p = p.Parent {
		if s[i].matches(p) {
			i--
		}
	}
	return i < 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	v, _ := lookupAttr(n, name)
	return v
}

func lookupAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
