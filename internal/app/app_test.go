package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larafront/pkg/dom"
	"larafront/pkg/router"
)

const page = `<html><body>
<a id="nav" href="#" data-route="/inbox"><span id="label">Inbox</span></a>
<button id="load" data-api-url="/api/stats" data-target="#stats">Load</button>
<button id="plain">Nothing</button>
<div id="stats"></div>
<form id="send" data-action="/api/messages" data-target="#out">
  <input name="email" value="ann@example.com">
</form>
<form id="edit" data-action="/api/messages" data-method="put"><input name="email" value=""></form>
<form id="native"><input name="q" value="x"></form>
<div id="out"></div>
<div id="app"></div>
</body></html>`

type calls struct {
	inbox int
	put   map[string]interface{}
}

func newTestApp(t *testing.T) (*App, *calls) {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := New(DefaultConfig(), WithLogger(logger), WithDocument(doc), WithRegisterer(prometheus.NewRegistry()))

	c := &calls{}
	a.Controllers.Register("Inbox", func() router.Controller {
		return router.ActionMap{
			"index": func(ctx context.Context, p map[string]interface{}) (interface{}, error) {
				c.inbox++
				return "<p>inbox</p>", nil
			},
			"stats": func(ctx context.Context, p map[string]interface{}) (interface{}, error) {
				return map[string]interface{}{"unread": 3}, nil
			},
			"send": func(ctx context.Context, p map[string]interface{}) (interface{}, error) {
				return "<p>sent to " + p["email"].(string) + "</p>", nil
			},
			"update": func(ctx context.Context, p map[string]interface{}) (interface{}, error) {
				c.put = p
				return map[string]interface{}{"status": 422, "data": map[string]interface{}{"error": "invalid"}}, nil
			},
		}
	})
	a.Router.Get("/inbox", "Inbox", "index")
	a.Router.Get("/api/stats", "Inbox", "stats")
	a.Router.Post("/api/messages", "Inbox", "send")
	a.Router.Put("/api/messages", "Inbox", "update")
	return a, c
}

func TestLoadConfig(t *testing.T) {
	for _, key := range []string{"APP_ENV", "APP_DEBUG", "API_URL", "VIEWS_DIR", "FOR_LOOP_LIMIT", "SANITIZE_HTML", "PREVIEW_ADDR", "BLOCKED_IPS", "RATE_LIMIT_REQUESTS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("APP_ENV=production\nAPP_DEBUG=true\nFOR_LOOP_LIMIT=50\nSANITIZE_HTML=1\nAPI_URL=https://api.example.com\nBLOCKED_IPS=10.0.0.1,10.0.0.2\n"), 0o644))

	cfg, err := LoadConfig(env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 50, cfg.ForLoopLimit)
	assert.True(t, cfg.SanitizeHTML)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, "resources/views", cfg.ViewsDir)
	assert.Equal(t, ":3000", cfg.PreviewAddr)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.BlockedIPs)
}

func TestLoadConfigReportsUnreadableFiles(t *testing.T) {
	t.Setenv("APP_ENV", "")
	os.Unsetenv("APP_ENV")

	dir := t.TempDir()
	cfg, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), dir)
	assert.Equal(t, "local", cfg.Env)
}

func TestConfigure(t *testing.T) {
	a, _ := newTestApp(t)
	a.Configure(map[string]interface{}{"apiUrl": "https://api.test", "debug": "true", "forLoopLimit": -1, "other": 1})

	cfg := a.Config()
	assert.Equal(t, "https://api.test", cfg.APIURL)
	assert.True(t, cfg.Debug)
	assert.Equal(t, DefaultConfig().ForLoopLimit, cfg.ForLoopLimit)
	assert.Equal(t, "https://api.test", a.API.BaseURL())

	a.SetDebug(false)
	assert.False(t, a.Config().Debug)
}

func TestHandleClick(t *testing.T) {
	a, c := newTestApp(t)
	ctx := context.Background()
	require.ErrorIs(t, a.Init(ctx), router.ErrRouteNotFound)

	t.Run("route link", func(t *testing.T) {
		handled, err := a.HandleClick(ctx, a.Doc.QuerySelector("#label"))
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, 1, c.inbox)
		assert.Equal(t, "#/inbox", a.Router.Location().Hash())
	})

	t.Run("api target", func(t *testing.T) {
		handled, err := a.HandleClick(ctx, a.Doc.QuerySelector("#load"))
		require.NoError(t, err)
		assert.True(t, handled)
		html, _ := a.Doc.InnerHTML("#stats")
		assert.Equal(t, `{&#34;unread&#34;:3}`, html)
	})

	t.Run("plain element", func(t *testing.T) {
		handled, err := a.HandleClick(ctx, a.Doc.QuerySelector("#plain"))
		require.NoError(t, err)
		assert.False(t, handled)
	})
}

func TestHandleSubmit(t *testing.T) {
	a, c := newTestApp(t)
	ctx := context.Background()

	var events []Event
	a.On(EventFormSuccess, func(ev Event) { events = append(events, ev) })
	a.On(EventFormError, func(ev Event) { events = append(events, ev) })

	assert.True(t, a.HandleSubmit(ctx, a.Doc.QuerySelector("#send")))
	html, _ := a.Doc.InnerHTML("#out")
	assert.Equal(t, "<p>sent to ann@example.com</p>", html)
	require.Len(t, events, 1)
	assert.Equal(t, EventFormSuccess, events[0].Name)
	assert.Equal(t, "send", events[0].Form.Attr("id"))

	assert.True(t, a.HandleSubmit(ctx, a.Doc.QuerySelector("#edit")))
	assert.Equal(t, map[string]interface{}{"email": ""}, c.put)
	require.Len(t, events, 2)
	assert.Equal(t, 422, events[1].Response.Status)

	assert.False(t, a.HandleSubmit(ctx, a.Doc.QuerySelector("#native")))
	assert.Len(t, events, 2)
}

func TestFormErrorEvent(t *testing.T) {
	a, _ := newTestApp(t)
	var got Event
	a.On(EventFormError, func(ev Event) { got = ev })

	_, err := a.HandleFormSubmission(context.Background(), a.Doc.QuerySelector("#send"), "http://127.0.0.1:0/nowhere", "POST")
	require.Error(t, err)
	assert.Equal(t, EventFormError, got.Name)
	assert.Equal(t, err, got.Err)
}

func TestGuard(t *testing.T) {
	a, _ := newTestApp(t)
	a.SetDebug(true)

	err := a.Guard(func() error { panic("kaboom") })
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")

	sentinel := errors.New("plain")
	assert.Equal(t, sentinel, a.Guard(func() error { return sentinel }))
	assert.NoError(t, a.Guard(func() error { return nil }))
}

func TestRegistries(t *testing.T) {
	a, _ := newTestApp(t)
	a.RegisterComponent("Modal", struct{ Title string }{"hi"})
	a.RegisterHelper("upper", func(s string) string { return s })

	c, ok := a.Component("Modal")
	require.True(t, ok)
	assert.Equal(t, struct{ Title string }{"hi"}, c)

	_, ok = a.Helper("upper")
	assert.True(t, ok)
	_, ok = a.Helper("lower")
	assert.False(t, ok)

	assert.Equal(t, []string{"Modal"}, a.Components())
}
