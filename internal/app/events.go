package app

import (
	"context"
	"net/http"
	"strings"

	"larafront/pkg/api"
	"larafront/pkg/dom"
)

const (
	EventFormSuccess = "form-success"
	EventFormError   = "form-error"
)

// Event is dispatched to listeners after a delegated form submission.
type Event struct {
	Name     string
	Form     *dom.Element
	Response *api.Response
	Err      error
}

// On registers fn for events called name.
func (a *App) On(name string, fn func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners[name] = append(a.listeners[name], fn)
}

func (a *App) emit(ev Event) {
	a.mu.RLock()
	fns := append([]func(Event){}, a.listeners[ev.Name]...)
	a.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// HandleClick delegates a click on target. A target inside an
// a[data-route] navigates; a target carrying data-api-url and data-target
// loads the URL into that element. It reports whether the default action
// should be prevented.
func (a *App) HandleClick(ctx context.Context, target *dom.Element) (bool, error) {
	if target == nil {
		return false, nil
	}
	handled := false

	if link := target.Closest("a"); link != nil {
		if route := link.Attr("data-route"); route != "" {
			a.Router.Navigate(route)
			handled = true
		}
	}

	apiURL := target.Attr("data-api-url")
	selector := target.Attr("data-target")
	if apiURL != "" && selector != "" {
		if _, err := a.API.UpdateElement(ctx, a.Doc, selector, apiURL); err != nil {
			a.ReportError(err)
			return true, err
		}
		handled = true
	}
	return handled, nil
}

// HandleSubmit delegates the submission of form. Forms without data-action
// are left alone.
func (a *App) HandleSubmit(ctx context.Context, form *dom.Element) bool {
	if form == nil {
		return false
	}
	action := form.Attr("data-action")
	if action == "" {
		return false
	}
	method := form.Attr("data-method")
	if method == "" {
		method = http.MethodPost
	}
	a.HandleFormSubmission(ctx, form, action, method)
	return true
}

// HandleFormSubmission sends the form's values to action, writes the
// response into the form's data-target element and emits form-success or
// form-error.
func (a *App) HandleFormSubmission(ctx context.Context, form *dom.Element, action, method string) (*api.Response, error) {
	data := api.FormData(form.FormValues())

	var (
		resp *api.Response
		err  error
	)
	switch strings.ToUpper(method) {
	case http.MethodGet:
		resp, err = a.API.Request(ctx, http.MethodGet, action, api.RequestOptions{Data: data})
	case http.MethodPut:
		resp, err = a.API.Put(ctx, action, data)
	case http.MethodDelete:
		resp, err = a.API.Request(ctx, http.MethodDelete, action, api.RequestOptions{Data: data})
	default:
		resp, err = a.API.Post(ctx, action, data)
	}

	if err != nil {
		a.Logger.Error("❌ Form submission failed", "action", action, "method", method, "error", err)
		a.emit(Event{Name: EventFormError, Form: form, Response: resp, Err: err})
		return resp, err
	}

	if selector := form.Attr("data-target"); selector != "" {
		a.Doc.SetInnerHTML(selector, api.Markup(resp.Data))
	}
	a.emit(Event{Name: EventFormSuccess, Form: form, Response: resp})
	return resp, nil
}
