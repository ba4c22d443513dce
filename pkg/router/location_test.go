package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation(t *testing.T) {
	loc := NewLocation("http://app.local/index.html?q=go&page=2#/blog")
	assert.Equal(t, "#/blog", loc.Hash())
	assert.Equal(t, "?q=go&page=2", loc.Search())
	assert.Equal(t, "go", loc.Query().Get("q"))

	var seen []string
	removeFirst := loc.OnHashChange(func(h string) { seen = append(seen, "a"+h) })
	loc.OnHashChange(func(h string) { seen = append(seen, "b"+h) })

	loc.SetHash("/about")
	assert.Equal(t, []string{"a#/about", "b#/about"}, seen)

	removeFirst()
	loc.SetHash("#/about")
	loc.SetHash("#/contact")
	assert.Equal(t, []string{"a#/about", "b#/about", "b#/contact"}, seen)

	loc.SetSearch("tab=1")
	assert.Equal(t, "1", loc.Query().Get("tab"))
}
