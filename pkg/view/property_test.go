package view

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestInterpolationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	eng := newTestEngine()

	properties.Property("text without markup is returned unchanged", prop.ForAll(
		func(text string) bool {
			return eng.RenderContent(text, map[string]interface{}{"a": 1}) == text
		},
		gen.AlphaString(),
	))

	properties.Property("a resolvable path is replaced by its value", prop.ForAll(
		func(name string) bool {
			data := map[string]interface{}{"user": map[string]interface{}{"name": name}}
			return eng.RenderContent("Hi {{ user.name }}!", data) == "Hi "+name+"!"
		},
		gen.AlphaString(),
	))

	properties.Property("an unresolvable path is replaced by nothing", prop.ForAll(
		func(key string) bool {
			if key == "" {
				return true
			}
			return eng.RenderContent("<{{ missing."+key+" }}>", map[string]interface{}{}) == "<>"
		},
		gen.Identifier(),
	))

	properties.Property("foreach emits one body per element", prop.ForAll(
		func(n int) bool {
			list := make([]interface{}, n)
			for i := range list {
				list[i] = i
			}
			out := eng.RenderContent("@foreach(list as x)*@endforeach", map[string]interface{}{"list": list})
			return len(out) == n
		},
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
