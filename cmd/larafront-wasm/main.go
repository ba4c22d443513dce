//go:build js && wasm

// Command larafront-wasm runs the demo application inside a browser page.
// It keeps a virtual document in step with the page's #app element and
// exposes the view engine and router to JavaScript:
//
//	larafrontRegisterTemplate(name, content)
//	larafrontRender(name, data)            -> html
//	larafrontRenderString(content, data)   -> html
//	larafrontNavigate(path)                -> Promise<void>
//	larafrontCall(method, path, data)      -> Promise<{status, type, data}>
//
// Route dispatch may block on HTTP, so it runs off the event loop and
// reports back through a Promise.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"syscall/js"

	json "github.com/goccy/go-json"

	"larafront/internal/app"
	"larafront/internal/controllers"
	"larafront/pkg/logger"
)

const interceptor = `document.addEventListener("click", function (e) {
  var link = e.target.closest("[data-route]");
  if (link) { e.preventDefault(); larafrontNavigate(link.getAttribute("data-route")); }
});`

var (
	a *app.App
	// dispatchMu serializes route dispatch and the #app sync that follows.
	dispatchMu sync.Mutex
)

func main() {
	log := logger.New(os.Stdout, "local", false)
	var err error
	if a, err = newApp(log); err != nil {
		log.Error("❌ Failed to load views", "error", err)
		return
	}

	global := js.Global()
	global.Set("larafrontRegisterTemplate", js.FuncOf(registerTemplate))
	global.Set("larafrontRender", js.FuncOf(render))
	global.Set("larafrontRenderString", js.FuncOf(renderString))
	global.Set("larafrontNavigate", js.FuncOf(navigate))
	global.Set("larafrontCall", js.FuncOf(call))

	loc := global.Get("location")
	a.Router.Location().SetHash(loc.Get("hash").String())
	if err := a.Init(context.Background()); err != nil {
		log.Warn("⚠️  Initial route failed", "error", err)
	}
	syncApp()

	global.Call("addEventListener", "hashchange", js.FuncOf(func(js.Value, []js.Value) interface{} {
		hash := loc.Get("hash").String()
		go func() {
			dispatchMu.Lock()
			defer dispatchMu.Unlock()
			a.Router.Location().SetHash(hash)
			syncApp()
		}()
		return nil
	}))
	injectInterceptor()

	log.Info("🚀 larafront running in the browser")
	select {}
}

func newApp(log *slog.Logger) (*app.App, error) {
	demo := app.New(app.DefaultConfig(), app.WithLogger(log))
	if _, err := controllers.LoadViews(demo.Views); err != nil {
		return nil, err
	}
	controllers.Register(demo.Controllers, demo.Base)
	controllers.RegisterWebRoutes(demo.Router)
	return demo, nil
}

// syncApp copies the virtual #app into the page.
func syncApp() {
	html, err := a.Doc.InnerHTML("#app")
	if err != nil {
		return
	}
	doc := js.Global().Get("document")
	if doc.IsUndefined() || doc.IsNull() {
		return
	}
	el := doc.Call("getElementById", "app")
	if el.IsNull() || el.IsUndefined() {
		return
	}
	el.Set("innerHTML", html)
}

func injectInterceptor() {
	doc := js.Global().Get("document")
	if doc.IsUndefined() || doc.IsNull() {
		return
	}
	script := doc.Call("createElement", "script")
	script.Set("textContent", interceptor)
	doc.Get("head").Call("appendChild", script)
}

// jsData accepts a JS object or a JSON string.
func jsData(v js.Value) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if v.IsUndefined() || v.IsNull() {
		return data, nil
	}
	raw := v.String()
	if v.Type() == js.TypeObject {
		raw = js.Global().Get("JSON").Call("stringify", v).String()
	}
	return data, json.Unmarshal([]byte(raw), &data)
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

func registerTemplate(_ js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return "error: missing arguments (name, content)"
	}
	a.Views.Register(args[0].String(), args[1].String())
	return nil
}

func render(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return "error: missing template name"
	}
	data, err := jsData(arg(args, 1))
	if err != nil {
		return "error parsing json: " + err.Error()
	}
	html, err := a.Views.Render(args[0].String(), data)
	if err != nil {
		return "error: " + err.Error()
	}
	return html
}

func renderString(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return "error: missing template content"
	}
	data, err := jsData(arg(args, 1))
	if err != nil {
		return "error parsing json: " + err.Error()
	}
	return a.Views.RenderContent(args[0].String(), data)
}

// promise runs fn on its own goroutine and settles a JS Promise with the
// result.
func promise(fn func() (interface{}, error)) js.Value {
	executor := js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			v, err := fn()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	// The executor runs synchronously inside the constructor.
	defer executor.Release()
	return js.Global().Get("Promise").New(executor)
}

func navigate(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return promise(func() (interface{}, error) { return nil, errors.New("missing path") })
	}
	path := args[0].String()
	return promise(func() (interface{}, error) {
		dispatchMu.Lock()
		defer dispatchMu.Unlock()
		a.Router.Navigate(path)
		syncApp()
		if h := js.Global().Get("history"); h.Truthy() {
			h.Call("pushState", nil, "", "#"+path)
		}
		return nil, nil
	})
}

func call(_ js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return promise(func() (interface{}, error) { return nil, errors.New("missing arguments (method, path)") })
	}
	method, path := args[0].String(), args[1].String()
	data, err := jsData(arg(args, 2))
	return promise(func() (interface{}, error) {
		if err != nil {
			return nil, err
		}
		dispatchMu.Lock()
		resp := a.Router.CallRoute(context.Background(), path, method, data)
		dispatchMu.Unlock()

		body, err := json.Marshal(resp)
		if err != nil {
			a.Logger.Warn("⚠️  Response not serializable", "error", err)
			return nil, err
		}
		return js.Global().Get("JSON").Call("parse", string(body)), nil
	})
}
