package api

import (
	"context"
	"errors"
	"io"
	"net/url"

	json "github.com/goccy/go-json"

	"larafront/pkg/view"
)

// Document is the DOM surface the client writes responses into.
type Document interface {
	view.Mutator
	FormValues(selector string) (url.Values, error)
}

// UpdateElement GETs url and replaces the inner markup of selector with the
// response: strings as-is, anything else as JSON.
func (c *Client) UpdateElement(ctx context.Context, doc view.Mutator, selector, url string) (*Response, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		c.logger.Error("❌ Failed to update element", "selector", selector, "url", url, "error", err)
		return resp, err
	}
	doc.SetInnerHTML(selector, Markup(resp.Data))
	return resp, nil
}

// AppendToElement GETs url and appends the response to selector.
func (c *Client) AppendToElement(ctx context.Context, doc view.Mutator, selector, url string) (*Response, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		c.logger.Error("❌ Failed to append to element", "selector", selector, "url", url, "error", err)
		return resp, err
	}
	doc.AppendInnerHTML(selector, Markup(resp.Data))
	return resp, nil
}

// RenderTemplate GETs url and renders template name with the response data
// into selector. A template not yet registered is loaded from
// resources/views/<name>.html first.
func (c *Client) RenderTemplate(ctx context.Context, doc view.Mutator, selector, name, url string) (*Response, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		c.logger.Error("❌ Failed to render template", "template", name, "url", url, "error", err)
		return resp, err
	}
	if !c.views.Has(name) {
		if _, err := c.views.LoadTemplate(ctx, name, "resources/views/"+name+".html"); err != nil {
			return resp, err
		}
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		data = map[string]interface{}{"data": resp.Data}
	}
	return resp, c.views.UpdateElement(doc, selector, name, data)
}

// SubmitForm POSTs the controls of the form matched by selector to url.
func (c *Client) SubmitForm(ctx context.Context, doc Document, selector, url string) (*Response, error) {
	values, err := doc.FormValues(selector)
	if err != nil {
		return nil, ErrFormNotFound
	}
	return c.Post(ctx, url, FormData(values))
}

// UploadFile POSTs content as the multipart field "file".
func (c *Client) UploadFile(ctx context.Context, url, filename string, content io.Reader) (*Response, error) {
	if content == nil {
		return nil, ErrNoFile
	}
	return c.Request(ctx, "POST", url, RequestOptions{
		Data: &upload{field: "file", filename: filename, content: content},
	})
}

// Markup is data as inserted into an element: strings as-is, anything else
// as JSON.
func Markup(data interface{}) string {
	if s, ok := data.(string); ok {
		return s
	}
	out, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(out)
}

// IsStatus reports whether err is a network status error with code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
