package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larafront/pkg/dom"
	"larafront/pkg/router"
	"larafront/pkg/view"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newLocalRouter() *router.Router {
	reg := router.NewRegistry()
	reg.Register("ApiController", func() router.Controller {
		return router.ActionMap{
			"getUsers": func(ctx context.Context, p map[string]interface{}) (interface{}, error) {
				return []interface{}{map[string]interface{}{"name": "Ann"}}, nil
			},
			"createUser": func(ctx context.Context, p map[string]interface{}) (interface{}, error) {
				return map[string]interface{}{"status": 201, "data": p}, nil
			},
		}
	})
	r := router.NewRouter(nil, reg, quiet)
	r.Get("/api/users", "ApiController", "getUsers")
	r.Post("/api/users", "ApiController", "createUser")
	return r
}

type captured struct {
	method      string
	path        string
	query       string
	contentType string
	accept      string
	token       string
	body        []byte
}

func newRemote(t *testing.T, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.contentType = r.Header.Get("Content-Type")
		got.accept = r.Header.Get("Accept")
		got.token = r.Header.Get("X-Token")
		if r.URL.Path != "/upload" {
			got.body, _ = io.ReadAll(r.Body)
		}

		switch r.URL.Path {
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"title":"Remote","items":[1,2]}`))
		case "/text":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<b>remote</b>"))
		case "/missing":
			http.Error(w, "nope", http.StatusNotFound)
		case "/upload":
			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			content, _ := io.ReadAll(file)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"name": header.Filename, "content": string(content)})
		default:
			w.Write([]byte("ok"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLocalRoutes(t *testing.T) {
	c := NewClient(WithRouter(newLocalRouter()), WithLogger(quiet))
	ctx := context.Background()

	resp, err := c.Get(ctx, "/api/users")
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, router.TypeJSON, resp.Type)
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Ann"}}, resp.Data)

	resp, err = c.Post(ctx, "/api/users", map[string]interface{}{"name": "Bo"})
	require.NoError(t, err)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, map[string]interface{}{"name": "Bo"}, resp.Data)
}

func TestNetworkRequests(t *testing.T) {
	got := &captured{}
	srv := newRemote(t, got)
	c := NewClient(WithRouter(newLocalRouter()), WithLogger(quiet))
	c.SetBaseURL(srv.URL)
	c.SetHeaders(map[string]string{"X-Token": "abc"})
	ctx := context.Background()

	t.Run("json response", func(t *testing.T) {
		resp, err := c.Get(ctx, "/json")
		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, got.method)
		assert.Equal(t, "application/json", got.accept)
		assert.Equal(t, "abc", got.token)
		assert.Equal(t, router.TypeJSON, resp.Type)
		assert.Equal(t, map[string]interface{}{"title": "Remote", "items": []interface{}{float64(1), float64(2)}}, resp.Data)
	})

	t.Run("text response", func(t *testing.T) {
		resp, err := c.Get(ctx, srv.URL+"/text")
		require.NoError(t, err)
		assert.Equal(t, "<b>remote</b>", resp.Data)
		assert.Equal(t, router.TypeHTML, resp.Type)
	})

	t.Run("json body", func(t *testing.T) {
		_, err := c.Put(ctx, "/echo", map[string]interface{}{"a": 1})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, got.method)
		assert.Equal(t, "application/json", got.contentType)
		assert.JSONEq(t, `{"a":1}`, string(got.body))
	})

	t.Run("query for get data", func(t *testing.T) {
		_, err := c.Request(ctx, "get", "/echo", RequestOptions{Data: map[string]interface{}{"q": "go"}})
		require.NoError(t, err)
		assert.Equal(t, "q=go", got.query)
		assert.Empty(t, got.body)
	})

	t.Run("local path with other method goes remote", func(t *testing.T) {
		_, err := c.Delete(ctx, "/api/users")
		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, got.method)
		assert.Equal(t, "/api/users", got.path)
	})

	t.Run("status error", func(t *testing.T) {
		resp, err := c.Get(ctx, "/missing")
		require.Error(t, err)
		assert.EqualError(t, err, "HTTP 404: Not Found")
		assert.True(t, IsStatus(err, http.StatusNotFound))
		require.NotNil(t, resp)
		assert.False(t, resp.OK)
	})

	t.Run("upload", func(t *testing.T) {
		resp, err := c.UploadFile(ctx, "/upload", "notes.txt", strings.NewReader("hello"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got.contentType, "multipart/form-data"))
		assert.Equal(t, map[string]interface{}{"name": "notes.txt", "content": "hello"}, resp.Data)

		_, err = c.UploadFile(ctx, "/upload", "x", nil)
		assert.ErrorIs(t, err, ErrNoFile)
	})
}

func TestElementUpdates(t *testing.T) {
	got := &captured{}
	srv := newRemote(t, got)
	c := NewClient(WithRouter(newLocalRouter()), WithBaseURL(srv.URL), WithLogger(quiet))
	ctx := context.Background()
	doc := dom.NewDocument()

	_, err := c.UpdateElement(ctx, doc, "#app", "/text")
	require.NoError(t, err)
	html, _ := doc.InnerHTML("#app")
	assert.Equal(t, "<b>remote</b>", html)

	_, err = c.AppendToElement(ctx, doc, "#app", "/api/users")
	require.NoError(t, err)
	html, _ = doc.InnerHTML("#app")
	assert.Equal(t, `<b>remote</b>[{&#34;name&#34;:&#34;Ann&#34;}]`, html)

	_, err = c.UpdateElement(ctx, doc, "#app", "/missing")
	assert.Error(t, err)
}

func TestRenderTemplate(t *testing.T) {
	got := &captured{}
	srv := newRemote(t, got)
	views := view.NewEngine(view.WithLogger(quiet), view.WithFS(fstest.MapFS{
		"resources/views/card.html": {Data: []byte("<h2>{{ title }}</h2>@foreach(items as n)<i>{{n}}</i>@endforeach")},
	}))
	c := NewClient(WithBaseURL(srv.URL), WithViews(views), WithLogger(quiet))
	doc := dom.NewDocument()

	_, err := c.RenderTemplate(context.Background(), doc, "#app", "card", "/json")
	require.NoError(t, err)
	assert.True(t, views.Has("card"))
	html, _ := doc.InnerHTML("#app")
	assert.Equal(t, "<h2>Remote</h2><i>1</i><i>2</i>", html)
}

func TestSubmitForm(t *testing.T) {
	c := NewClient(WithRouter(newLocalRouter()), WithLogger(quiet))
	doc, err := dom.ParseString(`<form id="f"><input name="name" value="Cy"><input name="tag" value="a"><input name="tag" value="b"></form>`)
	require.NoError(t, err)

	resp, err := c.SubmitForm(context.Background(), doc, "#f", "/api/users")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "Cy", "tag": "b"}, resp.Data)

	_, err = c.SubmitForm(context.Background(), doc, "#nope", "/api/users")
	assert.ErrorIs(t, err, ErrFormNotFound)
}
