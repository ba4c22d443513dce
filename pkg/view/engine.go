// Package view implements the template directive engine: {{ }} interpolation,
// @if/@else, @foreach and @for blocks expanded over a data context.
//
// Directives are matched with non-recursive regular expressions in fixed,
// flat passes:
//
//  1. @for blocks are expanded
//  2. residual @for blocks are left untouched
//  3. {{ path }} is interpolated over the whole text with the outer context
//  4. @if blocks are resolved
//  5. @foreach blocks are expanded, re-running the pipeline on each body
//
// Nested blocks of the same kind are not supported. Any directive that cannot
// be resolved renders as an empty string; only a missing named template is
// reported to the caller.
package view

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	forBlockRe     = regexp.MustCompile(`@for\s*\(([^)]+)\)([\s\S]*?)@endfor`)
	interpolateRe  = regexp.MustCompile(`\{\{\s*([^}]+)\s*\}\}`)
	ifBlockRe      = regexp.MustCompile(`@if\s*\(([^)]+)\)([\s\S]*?)(?:@else([\s\S]*?))?@endif`)
	foreachBlockRe = regexp.MustCompile(`@foreach\s*\(([^)]+)\)([\s\S]*?)@endforeach`)
)

// DefaultForLoopLimit caps the iterations of a single @for block.
const DefaultForLoopLimit = 10000

type Engine struct {
	templates *Registry
	forLimit  int
	logger    *slog.Logger
	metrics   *Metrics
	fsys      fs.FS
	client    *http.Client
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithForLoopLimit overrides DefaultForLoopLimit. Values below 1 are ignored.
func WithForLoopLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.forLimit = n
		}
	}
}

// WithFS sets the filesystem LoadTemplate reads non-HTTP locations from.
func WithFS(fsys fs.FS) Option {
	return func(e *Engine) { e.fsys = fsys }
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.templates = r }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		templates: NewRegistry(),
		forLimit:  DefaultForLoopLimit,
		logger:    slog.Default(),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Templates exposes the engine's template cache.
func (e *Engine) Templates() *Registry { return e.templates }

func (e *Engine) Register(name, text string) { e.templates.Register(name, text) }

func (e *Engine) Has(name string) bool { return e.templates.Has(name) }

// Render expands the named template. A missing name yields "" and an error
// wrapping ErrTemplateNotFound.
func (e *Engine) Render(name string, data map[string]interface{}) (string, error) {
	text, ok := e.templates.Get(name)
	if !ok {
		e.logger.Error("❌ Template not found", "template", name)
		e.metrics.rendered(resultNotFound)
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	out := e.RenderContent(text, data)
	e.metrics.rendered(resultOK)
	return out, nil
}

// RenderContent runs the directive pipeline over a raw fragment.
func (e *Engine) RenderContent(content string, data map[string]interface{}) string {
	if data == nil {
		data = map[string]interface{}{}
	}

	rendered := e.processForLoops(content, data)
	rendered = e.guardForBlocks(rendered)
	rendered = e.interpolate(rendered, data)
	rendered = e.processConditionals(rendered, data)
	return e.processLoops(rendered, data)
}

// guardForBlocks leaves @for spans still present after expansion as they are.
func (e *Engine) guardForBlocks(content string) string {
	if n := len(forBlockRe.FindAllStringIndex(content, -1)); n > 0 {
		e.logger.Debug("residual @for blocks left untouched", "count", n)
	}
	return content
}

// interpolate replaces {{ path }} with the value found in data. Inside a
// pending @foreach body an unresolved path is kept so the per-item pass can
// bind it; everywhere else it becomes "".
func (e *Engine) interpolate(content string, data map[string]interface{}) string {
	pending := foreachBlockRe.FindAllStringIndex(content, -1)

	return replaceMatches(interpolateRe, content, func(start int, m []string) string {
		path := strings.TrimSpace(m[1])
		if v, ok := lookupPath(path, data); ok {
			return toText(v)
		}
		if within(pending, start) {
			return m[0]
		}
		return ""
	})
}

func (e *Engine) processConditionals(content string, data map[string]interface{}) string {
	return replaceMatches(ifBlockRe, content, func(_ int, m []string) string {
		if evaluateCondition(m[1], data) {
			return m[2]
		}
		return m[3]
	})
}

func (e *Engine) processLoops(content string, data map[string]interface{}) string {
	return replaceMatches(foreachBlockRe, content, func(_ int, m []string) string {
		parts := strings.Split(m[1], " as ")
		if len(parts) < 2 {
			e.logger.Debug("@foreach without 'as'", "header", m[1])
			return ""
		}
		arrayName := strings.TrimSpace(parts[0])
		itemName := strings.TrimSpace(parts[1])

		array := resolve(arrayName, data)
		if !isSequence(array) {
			return ""
		}

		var b strings.Builder
		for _, item := range sequenceItems(array) {
			loopData := make(map[string]interface{}, len(data)+1)
			for k, v := range data {
				loopData[k] = v
			}
			loopData[itemName] = item
			b.WriteString(e.RenderContent(m[2], loopData))
		}
		return b.String()
	})
}

// evaluateCondition supports `left OP right` with OP in == === != !==;
// anything else is a truthiness test of a dotted path.
func evaluateCondition(condition string, data map[string]interface{}) bool {
	condition = strings.TrimSpace(condition)
	parts := strings.Split(condition, " ")
	if len(parts) == 3 {
		left := resolve(parts[0], data)
		right := resolve(parts[2], data)

		switch parts[1] {
		case "==":
			return looseEqual(left, right)
		case "===":
			return strictEqual(left, right)
		case "!=":
			return !looseEqual(left, right)
		case "!==":
			return !strictEqual(left, right)
		default:
			return isTruthy(left)
		}
	}
	return isTruthy(resolve(condition, data))
}

// replaceMatches is ReplaceAllStringFunc with access to the match offset and
// submatches. Groups that did not participate are "".
func replaceMatches(re *regexp.Regexp, src string, fn func(start int, groups []string) string) string {
	locs := re.FindAllStringSubmatchIndex(src, -1)
	if locs == nil {
		return src
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(src[last:loc[0]])
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = src[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(fn(loc[0], groups))
		last = loc[1]
	}
	b.WriteString(src[last:])
	return b.String()
}

func within(spans [][]int, pos int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}
