// Package cli implements the larafront command line.
package cli

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"larafront/internal/app"
	"larafront/internal/controllers"
	"larafront/pkg/logger"
)

// Version is set at build time with -ldflags "-X larafront/internal/cli.Version=...".
var Version = "dev"

type options struct {
	envFile string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "larafront",
		Short: "Laravel-style front-end framework: templates, routes and a preview server",
		Long: `larafront renders directive templates (@for, @foreach, @if, {{ }}),
dispatches hash routes to controllers and serves a live-reloading preview.

  larafront render page.html --data data.yaml
  larafront routes
  larafront call GET /api/users
  larafront navigate /about
  larafront serve`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading configuration")

	root.AddCommand(
		newRenderCommand(opts),
		newRoutesCommand(opts),
		newCallCommand(opts),
		newNavigateCommand(opts),
		newServeCommand(opts),
		newMakeViewCommand(opts),
		newVersionCommand(),
	)
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

type session struct {
	app      *app.App
	config   app.Config
	logger   *slog.Logger
	registry *prometheus.Registry
}

// boot builds the demo application: configuration, embedded views (with the
// views directory on disk taking precedence), controllers and routes.
func boot(cmd *cobra.Command, opts *options) (*session, error) {
	cfg, envErr := app.LoadConfig(opts.envFile)
	log := logger.New(cmd.ErrOrStderr(), cfg.Env, cfg.Debug)
	if envErr != nil {
		log.Warn("⚠️  Failed to load env file", "error", envErr)
	}
	reg := prometheus.NewRegistry()

	a := app.New(cfg, app.WithLogger(log), app.WithRegisterer(reg))
	if _, err := controllers.LoadViews(a.Views); err != nil {
		return nil, err
	}
	if info, err := os.Stat(cfg.ViewsDir); err == nil && info.IsDir() {
		n, err := a.Views.LoadDir(os.DirFS(cfg.ViewsDir), ".", ".html")
		if err != nil {
			return nil, err
		}
		log.Debug("views loaded", "dir", cfg.ViewsDir, "count", n)
	}

	controllers.Register(a.Controllers, a.Base)
	controllers.RegisterWebRoutes(a.Router)

	return &session{app: a, config: cfg, logger: log, registry: reg}, nil
}
