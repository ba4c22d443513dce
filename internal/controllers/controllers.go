// Package controllers holds the demo application: its controllers, their
// views and the web route table.
package controllers

import (
	"context"
	"embed"
	"html"
	"io/fs"

	"github.com/spf13/cast"

	"larafront/pkg/controller"
	"larafront/pkg/router"
	"larafront/pkg/view"
)

//go:embed views/*.html
var views embed.FS

// Views returns the embedded templates rooted at their directory.
func Views() fs.FS {
	sub, _ := fs.Sub(views, "views")
	return sub
}

// LoadViews registers the embedded templates on e by file name.
func LoadViews(e *view.Engine) (int, error) {
	return e.LoadDir(Views(), ".", ".html")
}

// DefaultInspireURL is the external catalogue Api.inspire proxies.
const DefaultInspireURL = "https://dummyjson.com/products"

// Register adds the demo controllers to reg. base is called per dispatch.
func Register(reg *router.Registry, base func() *controller.Base) {
	reg.Register("HomeController", func() router.Controller { return &Home{Base: base()} })
	reg.Register("ApiController", func() router.Controller {
		return &Api{Base: base(), InspireURL: DefaultInspireURL}
	})
	reg.Register("ErrorController", func() router.Controller { return &Error{Base: base()} })
}

// RegisterWebRoutes declares the route table. The catch-all goes last.
func RegisterWebRoutes(r *router.Router) {
	r.Get("/", "HomeController", "index")
	r.Get("/about", "HomeController", "about")
	r.Get("/contact", "HomeController", "contact")

	r.Get("/api/users", "ApiController", "getUsers")
	r.Get("/api/inspire", "ApiController", "inspire")
	r.Post("/api/messages", "ApiController", "sendMessage")

	r.Get("*", "ErrorController", "notFound")
}

// page renders name into #app and returns the markup.
func page(ctx context.Context, b *controller.Base, name string, data map[string]interface{}) (interface{}, error) {
	if err := b.EnsureTemplate(ctx, name); err != nil {
		return nil, err
	}
	out, err := b.Render(name, data)
	if err != nil {
		return nil, err
	}
	if b.Doc != nil {
		b.Doc.SetInnerHTML("#app", out)
	}
	return out, nil
}

type Home struct {
	*controller.Base
}

func (h *Home) Actions() map[string]router.Action {
	return map[string]router.Action{
		"index":   h.Index,
		"about":   h.About,
		"contact": h.Contact,
	}
}

func (h *Home) Index(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return page(ctx, h.Base, "home", map[string]interface{}{
		"title":       "Welcome to Custom Framework",
		"description": "A Laravel-like frontend framework built with Go",
		"features": []interface{}{
			"Laravel-like routing",
			"Template system",
			"API integration",
			"Live reload preview",
		},
	})
}

func (h *Home) About(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return page(ctx, h.Base, "about", map[string]interface{}{
		"title":   "About Us",
		"content": "This is a frontend framework inspired by Laravel.",
		"team": []interface{}{
			map[string]interface{}{"name": "Developer 1", "role": "Lead Developer"},
			map[string]interface{}{"name": "Developer 2", "role": "Frontend Developer"},
		},
	})
}

func (h *Home) Contact(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return page(ctx, h.Base, "contact", map[string]interface{}{
		"title": "Contact Us",
		"email": "contact@example.com",
		"phone": "+1 234 567 8900",
	})
}

type Api struct {
	*controller.Base
	InspireURL string
}

func (a *Api) Actions() map[string]router.Action {
	return map[string]router.Action{
		"getUsers":    a.GetUsers,
		"inspire":     a.Inspire,
		"sendMessage": a.SendMessage,
	}
}

func (a *Api) GetUsers(context.Context, map[string]interface{}) (interface{}, error) {
	return []interface{}{
		map[string]interface{}{"id": 1, "name": "John Doe", "email": "john@example.com"},
		map[string]interface{}{"id": 2, "name": "Jane Smith", "email": "jane@example.com"},
	}, nil
}

// Inspire proxies the external catalogue. Failures become an error payload,
// not an error.
func (a *Api) Inspire(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	resp, err := a.API.Get(ctx, a.InspireURL)
	if err != nil {
		return map[string]interface{}{"error": "Failed to fetch external API"}, nil
	}
	return map[string]interface{}{"products": resp.Data}, nil
}

func (a *Api) SendMessage(_ context.Context, params map[string]interface{}) (interface{}, error) {
	email := cast.ToString(params["email"])
	if email == "" {
		return a.APIResponse(map[string]interface{}{"error": "email is required"}, 422), nil
	}
	return "<p class=\"sent\">Thanks! We will reply to " + html.EscapeString(email) + ".</p>", nil
}

type Error struct {
	*controller.Base
}

func (e *Error) Actions() map[string]router.Action {
	return map[string]router.Action{"notFound": e.NotFound}
}

func (e *Error) NotFound(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return page(ctx, e.Base, "not_found", map[string]interface{}{
		"path": "/" + cast.ToString(params["*"]),
	})
}
