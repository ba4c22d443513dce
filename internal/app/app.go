// Package app wires the view engine, router, API client and document into a
// running application and delegates DOM events to them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"

	"larafront/pkg/api"
	"larafront/pkg/controller"
	"larafront/pkg/dom"
	"larafront/pkg/router"
	"larafront/pkg/view"
)

var ErrPanic = errors.New("recovered panic")

type App struct {
	mu     sync.RWMutex
	config Config

	Logger      *slog.Logger
	Views       *view.Engine
	Router      *router.Router
	API         *api.Client
	Doc         *dom.Document
	Controllers *router.Registry
	Metrics     *view.Metrics

	listeners  map[string][]func(Event)
	components map[string]interface{}
	helpers    map[string]interface{}
}

type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	fsys       fs.FS
	client     *http.Client
	location   *router.Location
	doc        *dom.Document
}

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithRegisterer enables render metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithFS sets the filesystem templates are loaded from.
func WithFS(fsys fs.FS) Option { return func(o *options) { o.fsys = fsys } }

func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

func WithLocation(l *router.Location) Option { return func(o *options) { o.location = l } }

func WithDocument(d *dom.Document) Option { return func(o *options) { o.doc = d } }

func New(cfg Config, opts ...Option) *App {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.fsys == nil {
		o.fsys = os.DirFS(".")
	}
	if o.client == nil {
		o.client = http.DefaultClient
	}

	a := &App{
		config:      cfg,
		Logger:      o.logger,
		Controllers: router.NewRegistry(),
		listeners:   make(map[string][]func(Event)),
		components:  make(map[string]interface{}),
		helpers:     make(map[string]interface{}),
	}
	if o.registerer != nil {
		a.Metrics = view.NewMetrics(o.registerer)
	}

	a.Views = view.NewEngine(
		view.WithLogger(o.logger),
		view.WithMetrics(a.Metrics),
		view.WithForLoopLimit(cfg.ForLoopLimit),
		view.WithFS(o.fsys),
		view.WithHTTPClient(o.client),
	)

	a.Doc = o.doc
	if a.Doc == nil {
		var docOpts []dom.Option
		if cfg.SanitizeHTML {
			docOpts = append(docOpts, dom.WithSanitizer(bluemonday.UGCPolicy()))
		}
		a.Doc = dom.NewDocument(docOpts...)
	}

	a.Router = router.NewRouter(o.location, a.Controllers, o.logger)
	a.API = api.NewClient(
		api.WithRouter(a.Router),
		api.WithViews(a.Views),
		api.WithHTTPClient(o.client),
		api.WithLogger(o.logger),
		api.WithBaseURL(cfg.APIURL),
	)
	return a
}

// Base returns the controller helpers bound to this app.
func (a *App) Base() *controller.Base {
	return &controller.Base{
		View:     a.Views,
		API:      a.API,
		Router:   a.Router,
		Doc:      a.Doc,
		ViewsDir: a.Config().ViewsDir,
		Logger:   a.Logger,
	}
}

func (a *App) Config() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// Init starts routing and dispatches the current location.
func (a *App) Init(ctx context.Context) error {
	err := a.Router.Init(ctx)
	if err != nil {
		a.ReportError(err)
	}
	a.Logger.Info("✅ Framework initialized", "env", a.Config().Env, "routes", len(a.Router.Routes()))
	return err
}

// Configure merges opts into the configuration and applies the API URL.
func (a *App) Configure(opts map[string]interface{}) {
	a.mu.Lock()
	a.config = a.config.Merge(opts)
	cfg := a.config
	a.mu.Unlock()

	if cfg.APIURL != "" {
		a.API.SetBaseURL(cfg.APIURL)
	}
}

func (a *App) SetDebug(enabled bool) {
	a.mu.Lock()
	a.config.Debug = enabled
	a.mu.Unlock()

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	a.Logger.Info("Debug mode: "+state, "debug", enabled)
}

// Guard runs fn, turning a panic into an error wrapping ErrPanic. Errors are
// reported like any other.
func (a *App) Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			a.ReportError(err)
		}
	}()
	if err = fn(); err != nil {
		a.ReportError(err)
	}
	return err
}

// ReportError logs err when debug is on.
func (a *App) ReportError(err error) {
	if err == nil || !a.Config().Debug {
		return
	}
	a.Logger.Error("❌ Global error", "error", err)
}

func (a *App) RegisterComponent(name string, component interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.components[name] = component
}

func (a *App) Component(name string) (interface{}, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.components[name]
	return c, ok
}

func (a *App) RegisterHelper(name string, fn interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.helpers[name] = fn
}

func (a *App) Helper(name string) (interface{}, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.helpers[name]
	return h, ok
}

// Components lists registered component names.
func (a *App) Components() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.components))
	for n := range a.components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
