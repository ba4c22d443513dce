package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"larafront/pkg/livereload"
	"larafront/pkg/middleware"
	"larafront/pkg/router"
	"larafront/pkg/view"
)

func newServeCommand(opts *options) *cobra.Command {
	var addr string
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the preview server with live reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := boot(cmd, opts)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = s.config.PreviewAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := livereload.NewHub(s.logger)
			if watch {
				w, err := newViewWatcher(s.app.Views, s.config.ViewsDir, hub, s.logger)
				if err != nil {
					s.logger.Warn("⚠️  Template watcher disabled", "dir", s.config.ViewsDir, "error", err)
				} else {
					defer w.Close()
					go w.Run(ctx)
				}
			}
			return runServer(ctx, s, addr, newPreviewHandler(s, hub), hub)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default PREVIEW_ADDR or :3000)")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload templates from the views directory on change")
	return cmd
}

func runServer(ctx context.Context, s *session, addr string, h http.Handler, hub *livereload.Hub) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 Preview server ready", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("⚠️  Shutting down server...")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("❌ Server Forced Shutdown", "error", err)
		return err
	}
	s.logger.Info("✅ Server Gracefully Stopped")
	return nil
}

// newPreviewHandler serves:
//
//	GET  /               the document after dispatching ?path= (default "/")
//	POST /_render/{name} a registered template rendered with the JSON body
//	     /_routes/*      the route table over HTTP
//	GET  /metrics        Prometheus metrics
//	GET  /livereload     WebSocket reload notifications
//	GET  /health         liveness
func newPreviewHandler(s *session, hub *livereload.Hub) http.Handler {
	cfg := s.config
	log := s.logger

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.NewHTTPMetrics(s.registry).Middleware)
	r.Use(middleware.Recoverer(log, cfg.Debug))
	r.Use(middleware.SecurityHeaders(cfg.Env == "production"))
	if len(cfg.BlockedIPs) > 0 {
		r.Use(middleware.NewBlockList(log, cfg.BlockedIPs...).Middleware)
	}
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	} else {
		log.Debug("rate limiting disabled")
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Handle("/livereload", hub)
	r.Post("/_render/{name}", renderHandler(s.app.Views))
	r.Mount("/_routes", s.app.Router.Handler())

	var pageMu sync.Mutex
	r.With(livereload.InjectMiddleware).Get("/", func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Query().Get("path")
		if path == "" {
			path = "/"
		}

		pageMu.Lock()
		defer pageMu.Unlock()
		s.app.Router.Navigate(path)
		if err := s.app.Router.HandleRoute(req.Context()); err != nil && !errors.Is(err, router.ErrRouteNotFound) {
			s.app.ReportError(err)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		s.app.Doc.Render(w)
	})
	return r
}

func renderHandler(views *view.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		data := map[string]interface{}{}
		if req.ContentLength != 0 {
			if err := json.NewDecoder(req.Body).Decode(&data); err != nil {
				router.WriteResponse(w, router.Response{
					Status: http.StatusBadRequest,
					Data:   map[string]interface{}{"error": "invalid JSON body"},
					Type:   router.TypeJSON,
				})
				return
			}
		}

		html, err := views.Render(strings.ReplaceAll(name, ":", "/"), data)
		if errors.Is(err, view.ErrTemplateNotFound) {
			router.WriteResponse(w, router.Response{
				Status: http.StatusNotFound,
				Data:   map[string]interface{}{"error": err.Error()},
				Type:   router.TypeJSON,
			})
			return
		}
		router.WriteResponse(w, router.Response{Status: http.StatusOK, Data: html, Type: router.TypeHTML})
	}
}
