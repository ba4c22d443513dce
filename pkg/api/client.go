// Package api is the HTTP client used by controllers and the app shell.
// Requests whose path and method name a registered route are answered by the
// router in-process; everything else goes over the network.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"larafront/pkg/router"
	"larafront/pkg/view"
)

// Response is what every request resolves to, local or remote.
type Response struct {
	Data   interface{} `json:"data"`
	Status int         `json:"status"`
	Type   string      `json:"type,omitempty"`
	Header http.Header `json:"-"`
	OK     bool        `json:"ok"`
}

// RequestOptions carries per-request data and headers. Headers override the
// client defaults.
type RequestOptions struct {
	Data    interface{}
	Headers map[string]string
}

type Client struct {
	mu      sync.RWMutex
	baseURL string
	headers map[string]string

	http   *http.Client
	router *router.Router
	views  *view.Engine
	logger *slog.Logger
}

type Option func(*Client)

func WithRouter(r *router.Router) Option {
	return func(c *Client) { c.router = r }
}

func WithViews(e *view.Engine) Option {
	return func(c *Client) { c.views = e }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.views == nil {
		c.views = view.NewEngine(view.WithLogger(c.logger), view.WithHTTPClient(c.http))
	}
	return c
}

func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = u
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetHeaders merges headers into the defaults sent with every network request.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range headers {
		c.headers[k] = v
	}
}

func (c *Client) Views() *view.Engine { return c.views }

func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, url, RequestOptions{})
}

func (c *Client) Post(ctx context.Context, url string, data interface{}) (*Response, error) {
	return c.Request(ctx, http.MethodPost, url, RequestOptions{Data: data})
}

func (c *Client) Put(ctx context.Context, url string, data interface{}) (*Response, error) {
	return c.Request(ctx, http.MethodPut, url, RequestOptions{Data: data})
}

func (c *Client) Delete(ctx context.Context, url string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, url, RequestOptions{})
}

func (c *Client) Patch(ctx context.Context, url string, data interface{}) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, url, RequestOptions{Data: data})
}

// Request performs method on url. Network responses outside 2xx are returned
// together with a *StatusError.
func (c *Client) Request(ctx context.Context, method, url string, opts RequestOptions) (*Response, error) {
	method = strings.ToUpper(method)

	if c.router != nil && c.router.HasRoute(url, method) {
		res := c.router.CallRoute(ctx, url, method, toMap(opts.Data))
		return &Response{
			Data:   res.Data,
			Status: res.Status,
			Type:   res.Type,
			Header: http.Header{},
			OK:     res.OK(),
		}, nil
	}

	resp, err := c.send(ctx, method, url, opts)
	if err != nil {
		c.logger.Error("❌ API request failed", "method", method, "url", url, "error", err)
		return resp, err
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, target string, opts RequestOptions) (*Response, error) {
	c.mu.RLock()
	fullURL := target
	if !strings.HasPrefix(target, "http") {
		fullURL = c.baseURL + target
	}
	headers := make(map[string]string, len(c.headers)+len(opts.Headers))
	for k, v := range c.headers {
		headers[k] = v
	}
	c.mu.RUnlock()
	for k, v := range opts.Headers {
		headers[k] = v
	}

	var body io.Reader
	switch data := opts.Data.(type) {
	case nil:
	case *upload:
		buf, contentType, err := data.encode()
		if err != nil {
			return nil, err
		}
		body = buf
		headers["Content-Type"] = contentType
	default:
		switch method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			payload, err := json.Marshal(data)
			if err != nil {
				return nil, fmt.Errorf("failed to encode body: %w", err)
			}
			body = bytes.NewReader(payload)
		default:
			fullURL = withQuery(fullURL, toMap(data))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &Response{
		Status: res.StatusCode,
		Header: res.Header,
		OK:     res.StatusCode >= 200 && res.StatusCode < 300,
		Type:   router.TypeHTML,
		Data:   string(raw),
	}
	if strings.Contains(res.Header.Get("Content-Type"), "application/json") {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		out.Data = decoded
		out.Type = router.TypeJSON
	}
	if !out.OK {
		return out, &StatusError{Code: res.StatusCode}
	}
	return out, nil
}

// upload is a single-file multipart body.
type upload struct {
	field    string
	filename string
	content  io.Reader
}

func (u *upload) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile(u.field, u.filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, u.content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func toMap(data interface{}) map[string]interface{} {
	switch d := data.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		return d
	case url.Values:
		return FormData(d)
	}
	m, err := cast.ToStringMapE(data)
	if err != nil {
		return nil
	}
	return m
}

func withQuery(target string, data map[string]interface{}) string {
	if len(data) == 0 {
		return target
	}
	q := url.Values{}
	for k, v := range data {
		q.Set(k, cast.ToString(v))
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + q.Encode()
}

// FormData flattens form values the way a browser FormData walk into a
// plain object does: the last value of a repeated name wins.
func FormData(values url.Values) map[string]interface{} {
	data := make(map[string]interface{}, len(values))
	for k, v := range values {
		if len(v) > 0 {
			data[k] = v[len(v)-1]
		}
	}
	return data
}
