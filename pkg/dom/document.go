// Package dom is a small in-memory HTML document used as the target of
// renders and the source of form data and click/submit events.
package dom

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// DefaultPage is the shell NewDocument starts from.
const DefaultPage = `<!DOCTYPE html><html><head></head><body><div id="app"></div></body></html>`

var ErrElementNotFound = errors.New("element not found")

// Document methods are safe for concurrent use. Elements handed out are
// plain views over the tree and are not.
type Document struct {
	mu     sync.RWMutex
	root   *html.Node
	policy *bluemonday.Policy
}

type Option func(*Document)

// WithSanitizer filters every markup string inserted through SetInnerHTML
// and AppendInnerHTML.
func WithSanitizer(p *bluemonday.Policy) Option {
	return func(d *Document) { d.policy = p }
}

func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &Document{root: root}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

func NewDocument(opts ...Option) *Document {
	d, _ := ParseString(DefaultPage, opts...)
	return d
}

// QuerySelector returns the first element in document order matching sel,
// or nil. Supported: tag, #id, .class, [attr], [attr=value] and descendant
// chains of those.
func (d *Document) QuerySelector(sel string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.find(sel)
}

func (d *Document) QuerySelectorAll(sel string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, err := parseSelector(sel)
	if err != nil {
		return nil
	}
	var out []*Element
	walk(d.root, func(n *html.Node) bool {
		if s.matches(n) {
			out = append(out, &Element{node: n})
		}
		return true
	})
	return out
}

func (d *Document) find(sel string) *Element {
	s, err := parseSelector(sel)
	if err != nil {
		return nil
	}
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if s.matches(n) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return &Element{node: found}
}

// SetInnerHTML replaces the children of the matched element. It reports
// false when nothing matched.
func (d *Document) SetInnerHTML(sel, markup string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	el := d.find(sel)
	if el == nil {
		return false
	}
	for c := el.node.FirstChild; c != nil; {
		next := c.NextSibling
		el.node.RemoveChild(c)
		c = next
	}
	d.appendMarkup(el.node, markup)
	return true
}

// AppendInnerHTML parses markup and appends it to the matched element.
func (d *Document) AppendInnerHTML(sel, markup string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	el := d.find(sel)
	if el == nil {
		return false
	}
	d.appendMarkup(el.node, markup)
	return true
}

func (d *Document) appendMarkup(parent *html.Node, markup string) {
	if d.policy != nil {
		markup = d.policy.Sanitize(markup)
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: markup})
		return
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
}

// InnerHTML serializes the children of the matched element.
func (d *Document) InnerHTML(sel string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el := d.find(sel)
	if el == nil {
		return "", ErrElementNotFound
	}
	return el.InnerHTML(), nil
}

// FormValues collects the controls of the form matched by sel.
func (d *Document) FormValues(sel string) (url.Values, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el := d.find(sel)
	if el == nil {
		return nil, ErrElementNotFound
	}
	return el.FormValues(), nil
}

func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	d.Render(&buf)
	return buf.String()
}

// walk visits n and its descendants depth first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
