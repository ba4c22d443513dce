package view

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewEngine(opts...)
}

func items(labels ...string) []interface{} {
	out := make([]interface{}, len(labels))
	for i, l := range labels {
		out[i] = map[string]interface{}{"label": l}
	}
	return out
}

func TestInterpolation(t *testing.T) {
	eng := newTestEngine()

	tests := []struct {
		name     string
		template string
		data     map[string]interface{}
		expected string
	}{
		{"nested path", "Hi {{ user.name }}", map[string]interface{}{"user": map[string]interface{}{"name": "Ann"}}, "Hi Ann"},
		{"missing path", "Hi {{ user.age }}!", map[string]interface{}{"user": map[string]interface{}{"name": "Ann"}}, "Hi !"},
		{"no whitespace", "{{user.name}}", map[string]interface{}{"user": map[string]interface{}{"name": "Ann"}}, "Ann"},
		{"walk through scalar", "[{{ name.first }}]", map[string]interface{}{"name": "Ann"}, "[]"},
		{"integer", "{{ n }}", map[string]interface{}{"n": 3}, "3"},
		{"float", "{{ n }}", map[string]interface{}{"n": 1.5}, "1.5"},
		{"bool", "{{ ok }}", map[string]interface{}{"ok": true}, "true"},
		{"null", "{{ v }}", map[string]interface{}{"v": nil}, "null"},
		{"sequence", "{{ tags }}", map[string]interface{}{"tags": []interface{}{"a", "b"}}, "a,b"},
		{"mapping", "{{ user }}", map[string]interface{}{"user": map[string]interface{}{}}, "[object Object]"},
		{"length", "{{ tags.length }}", map[string]interface{}{"tags": []string{"a", "b"}}, "2"},
		{"index", "{{ tags.1 }}", map[string]interface{}{"tags": []string{"a", "b"}}, "b"},
		{"no context", "Hello {{ name }}", nil, "Hello "},
		{"plain text", "no directives here", map[string]interface{}{"a": 1}, "no directives here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, eng.RenderContent(tt.template, tt.data))
		})
	}
}

func TestConditionals(t *testing.T) {
	eng := newTestEngine()
	tpl := "@if(a == b)X@elseY@endif"

	t.Run("equal", func(t *testing.T) {
		assert.Equal(t, "X", eng.RenderContent(tpl, map[string]interface{}{"a": 1, "b": 1}))
	})

	t.Run("not equal", func(t *testing.T) {
		assert.Equal(t, "Y", eng.RenderContent(tpl, map[string]interface{}{"a": 1, "b": 2}))
	})

	t.Run("loose and strict", func(t *testing.T) {
		data := map[string]interface{}{"a": 1, "b": "1"}
		assert.Equal(t, "X", eng.RenderContent("@if(a == b)X@elseY@endif", data))
		assert.Equal(t, "Y", eng.RenderContent("@if(a === b)X@elseY@endif", data))
		assert.Equal(t, "Y", eng.RenderContent("@if(a != b)X@elseY@endif", data))
		assert.Equal(t, "X", eng.RenderContent("@if(a !== b)X@elseY@endif", data))
	})

	t.Run("missing else branch", func(t *testing.T) {
		assert.Equal(t, "[]", eng.RenderContent("[@if(a == b)X@endif]", map[string]interface{}{"a": 1, "b": 2}))
	})

	t.Run("truthiness", func(t *testing.T) {
		tpl := "@if(user.admin)yes@elseno@endif"
		assert.Equal(t, "yes", eng.RenderContent(tpl, map[string]interface{}{"user": map[string]interface{}{"admin": true}}))
		assert.Equal(t, "no", eng.RenderContent(tpl, map[string]interface{}{"user": map[string]interface{}{"admin": 0}}))
		assert.Equal(t, "no", eng.RenderContent(tpl, nil))
	})

	t.Run("unknown operator tests left side", func(t *testing.T) {
		assert.Equal(t, "T", eng.RenderContent("@if(a > b)T@elseF@endif", map[string]interface{}{"a": 1, "b": 5}))
		assert.Equal(t, "F", eng.RenderContent("@if(a > b)T@elseF@endif", map[string]interface{}{"a": "", "b": 5}))
	})

	t.Run("surrounding spaces", func(t *testing.T) {
		assert.Equal(t, "X", eng.RenderContent("@if( a == b )X@elseY@endif", map[string]interface{}{"a": "k", "b": "k"}))
	})

	t.Run("both sides undefined are equal", func(t *testing.T) {
		assert.Equal(t, "X", eng.RenderContent("@if(x == y)X@elseY@endif", nil))
	})
}

func TestForeach(t *testing.T) {
	eng := newTestEngine()

	t.Run("concatenates in order", func(t *testing.T) {
		out := eng.RenderContent("@foreach(items as it){{ it.label }}@endforeach", map[string]interface{}{"items": items("A", "B")})
		assert.Equal(t, "AB", out)
	})

	t.Run("item binding survives the flat interpolation pass", func(t *testing.T) {
		out := eng.RenderContent("@foreach(items as it){{it.label}}@endforeach", map[string]interface{}{"items": items("A", "B")})
		assert.Equal(t, "AB", out)
	})

	t.Run("outer values inside body", func(t *testing.T) {
		out := eng.RenderContent("@foreach(items as it){{ title }}-{{ it.label }};@endforeach", map[string]interface{}{
			"title": "T",
			"items": items("A", "B"),
		})
		assert.Equal(t, "T-A;T-B;", out)
	})

	t.Run("outer context wins over item binding", func(t *testing.T) {
		out := eng.RenderContent("@foreach(items as it){{ it.label }}@endforeach", map[string]interface{}{
			"it":    map[string]interface{}{"label": "outer"},
			"items": items("A", "B"),
		})
		assert.Equal(t, "outerouter", out)
	})

	t.Run("conditionals in body see the outer context", func(t *testing.T) {
		out := eng.RenderContent("@foreach(items as it)@if(it.on)Y@elseN@endif@endforeach", map[string]interface{}{
			"items": []interface{}{map[string]interface{}{"on": true}, map[string]interface{}{"on": true}},
		})
		assert.Equal(t, "NN", out)
	})

	t.Run("non sequence", func(t *testing.T) {
		tpl := "[@foreach(items as it)x@endforeach]"
		assert.Equal(t, "[]", eng.RenderContent(tpl, map[string]interface{}{"items": map[string]interface{}{"a": 1}}))
		assert.Equal(t, "[]", eng.RenderContent(tpl, nil))
		assert.Equal(t, "[]", eng.RenderContent(tpl, map[string]interface{}{"items": "abc"}))
	})

	t.Run("header without as", func(t *testing.T) {
		assert.Equal(t, "", eng.RenderContent("@foreach(items)x@endforeach", map[string]interface{}{"items": items("A")}))
	})

	t.Run("typed slices", func(t *testing.T) {
		out := eng.RenderContent("@foreach(names as n){{ n }} @endforeach", map[string]interface{}{"names": []string{"a", "b"}})
		assert.Equal(t, "a b ", out)
	})

	t.Run("does not mutate the context", func(t *testing.T) {
		data := map[string]interface{}{"items": items("A")}
		eng.RenderContent("@foreach(items as it){{ it.label }}@endforeach", data)
		assert.Len(t, data, 1)
		_, bound := data["it"]
		assert.False(t, bound)
	})
}

func TestForLoops(t *testing.T) {
	eng := newTestEngine()

	tests := []struct {
		name     string
		template string
		data     map[string]interface{}
		expected string
	}{
		{"counter", "@for(var i = 0; i < 3; i++){{ i }}@endfor", nil, "012"},
		{"counter with spacing", "@for(let i = 0; i < 3; i++) {{ i }}@endfor", nil, " 0 1 2"},
		{"context keys", "@for(let i = 0; i < n; i++){{ label }}@endfor", map[string]interface{}{"n": 2, "label": "x"}, "xx"},
		{"length", "@for(let i = 0; i < items.length; i++){{ i }},@endfor", map[string]interface{}{"items": []interface{}{1, 2, 3}}, "0,1,2,"},
		{"dotted paths left for interpolation", "@for(let i = 0; i < 2; i++){{ user.name }}@endfor", map[string]interface{}{"user": map[string]interface{}{"name": "Ann"}}, "AnnAnn"},
		{"decrement", "@for(let i = 3; i > 0; i--){{ i }}@endfor", nil, "321"},
		{"compound step", "@for(let i = 0; i <= 10; i += 5){{ i }} @endfor", nil, "0 5 10 "},
		{"strict inequality", "@for(let i = 0; i !== 3; i++){{ i }}@endfor", nil, "012"},
		{"loop modifies context key", "@for(let i = 0; i < 3; i++, j--){{ i }}-{{ j }} @endfor", map[string]interface{}{"j": 10}, "0-10 1-9 2-8 "},
		{"iterate values", "@for(const c of colors){{ c }};@endfor", map[string]interface{}{"colors": []interface{}{"red", "green"}}, "red;green;"},
		{"iterate keys", "@for(let k in m){{ k }}@endfor", map[string]interface{}{"m": map[string]interface{}{"b": 1, "a": 2}}, "ab"},
		{"zero iterations", "[@for(let i = 0; i < 0; i++)x@endfor]", nil, "[]"},
		{"whitespace around the body is kept", "@for(var i = 0; i < 3; i++) {{ i }} @endfor", nil, " 0  1  2 "},
		{"numeric string bound", "@for(let i = 0; i < n; i++){{ i }}@endfor", map[string]interface{}{"n": "3"}, "012"},
		{"loose inequality against a string", "@for(let i = 0; i != stop; i++){{ i }}@endfor", map[string]interface{}{"stop": "3"}, "012"},
		{"strict inequality against a string", "@for(let i = 0; i !== stop && i < 5; i++){{ i }}@endfor", map[string]interface{}{"stop": "3"}, "01234"},
		{"increment a numeric string", "@for(let i = start; i < 3; i++){{ i }}@endfor", map[string]interface{}{"start": "1"}, "12"},
		{"string concatenation", "@for(let s = ''; s.length < 3; s += 'a'){{ s }},@endfor", nil, ",a,aa,"},
		{"followed by other directives", "@for(let i = 0; i < 2; i++){{ i }}@endfor|@if(ok)yes@endif", map[string]interface{}{"ok": true}, "01|yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, eng.RenderContent(tt.template, tt.data))
		})
	}
}

func TestForLoopFailuresRenderEmpty(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	eng := newTestEngine(WithForLoopLimit(5), WithMetrics(metrics))

	tests := []struct {
		name     string
		template string
	}{
		{"unsupported header", "[@for(i from 1 to 3)x@endfor]"},
		{"bad expression", "[@for(let i = 0; i <; i++)x@endfor]"},
		{"unsupported step", "[@for(let i = 0; i < 3; i == 1)x@endfor]"},
		{"iteration limit", "[@for(let i = 0; ; i++)x@endfor]"},
		{"iterate a number", "[@for(const x of n)x@endfor]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "[]", eng.RenderContent(tt.template, map[string]interface{}{"n": 4}))
		})
	}
	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(metrics.failures.WithLabelValues("for")))
}

func TestRender(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	eng := newTestEngine(WithMetrics(metrics))
	eng.Register("greeting", "Hi {{ user.name }}")

	t.Run("registered template", func(t *testing.T) {
		out, err := eng.Render("greeting", map[string]interface{}{"user": map[string]interface{}{"name": "Ann"}})
		require.NoError(t, err)
		assert.Equal(t, "Hi Ann", out)
	})

	t.Run("missing template", func(t *testing.T) {
		out, err := eng.Render("nope", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
		assert.Equal(t, "", out)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.renders.WithLabelValues(resultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.renders.WithLabelValues(resultNotFound)))
}

func TestRenderIsRepeatable(t *testing.T) {
	eng := newTestEngine()
	tpl := "@for(let i = 0; i < 2; i++){{ i }}@endfor @foreach(items as it){{ it.label }}@endforeach @if(a == a)ok@endif"
	eng.Register("page", tpl)
	data := map[string]interface{}{"items": items("A", "B"), "a": 1}

	first, err := eng.Render("page", data)
	require.NoError(t, err)
	second, err := eng.Render("page", data)
	require.NoError(t, err)

	assert.Equal(t, "01 AB ok", first)
	assert.Equal(t, first, second)
	text, _ := eng.Templates().Get("page")
	assert.Equal(t, tpl, text)
}
