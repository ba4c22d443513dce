// Package controller provides the helpers every application controller
// embeds: view rendering, navigation and response shaping.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"path"

	json "github.com/goccy/go-json"

	"larafront/pkg/api"
	"larafront/pkg/router"
	"larafront/pkg/view"
)

// DefaultViewsDir is where EnsureTemplate looks for <name>.html.
const DefaultViewsDir = "resources/views"

// Base is embedded by controllers. All fields are shared with the app; a
// fresh Base per dispatch is cheap.
type Base struct {
	View     *view.Engine
	API      *api.Client
	Router   *router.Router
	Doc      view.Mutator
	ViewsDir string
	Logger   *slog.Logger
}

// Render renders a registered template.
func (b *Base) Render(name string, data map[string]interface{}) (string, error) {
	return b.View.Render(name, data)
}

// Redirect navigates to path.
func (b *Base) Redirect(p string) {
	b.Router.Navigate(p)
}

// JSON encodes data as a JSON string.
func (b *Base) JSON(data interface{}) (string, error) {
	out, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// APIResponse wraps data with a status; 0 means 200.
func (b *Base) APIResponse(data interface{}, status int) router.Response {
	if status == 0 {
		status = http.StatusOK
	}
	return router.Normalize(router.Response{Data: data, Status: status})
}

// RequestData returns the location's query string parameters. Repeated keys
// keep their last value.
func (b *Base) RequestData() map[string]interface{} {
	return api.FormData(b.Router.Location().Query())
}

// PostData is always empty: form submissions reach actions as their params.
func (b *Base) PostData() map[string]interface{} {
	return map[string]interface{}{}
}

// EnsureTemplate loads <ViewsDir>/<name>.html unless name is registered.
func (b *Base) EnsureTemplate(ctx context.Context, name string) error {
	if b.View.Has(name) {
		return nil
	}
	dir := b.ViewsDir
	if dir == "" {
		dir = DefaultViewsDir
	}
	_, err := b.View.LoadTemplate(ctx, name, path.Join(dir, name+".html"))
	return err
}

// UpdateElement renders name into selector of the app document.
func (b *Base) UpdateElement(selector, name string, data map[string]interface{}) error {
	if b.Doc == nil {
		b.logger().Warn("⚠️  No document attached", "selector", selector)
		return nil
	}
	return b.View.UpdateElement(b.Doc, selector, name, data)
}

// Show ensures name is loaded and renders it into selector.
func (b *Base) Show(ctx context.Context, selector, name string, data map[string]interface{}) error {
	if err := b.EnsureTemplate(ctx, name); err != nil {
		return err
	}
	return b.UpdateElement(selector, name, data)
}

func (b *Base) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
