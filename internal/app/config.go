package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"larafront/pkg/view"
)

type Config struct {
	Env          string
	Debug        bool
	APIURL       string
	ViewsDir     string
	ForLoopLimit int
	SanitizeHTML bool
	PreviewAddr  string
	BlockedIPs   []string
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
}

func DefaultConfig() Config {
	return Config{
		Env:          "local",
		ViewsDir:     "resources/views",
		ForLoopLimit: view.DefaultForLoopLimit,
		PreviewAddr:  ":3000",
	}
}

// LoadConfig reads the given .env files (".env" when none are named) into
// the process environment, then builds a Config from it. Missing files are
// skipped; a file that cannot be read or parsed is reported in the error and
// the Config is still built from the environment.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var errs []error
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
		}
	}

	cfg := DefaultConfig()
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	cfg.Debug = cast.ToBool(os.Getenv("APP_DEBUG"))
	cfg.APIURL = os.Getenv("API_URL")
	if v := os.Getenv("VIEWS_DIR"); v != "" {
		cfg.ViewsDir = v
	}
	if n := cast.ToInt(os.Getenv("FOR_LOOP_LIMIT")); n > 0 {
		cfg.ForLoopLimit = n
	}
	cfg.SanitizeHTML = cast.ToBool(os.Getenv("SANITIZE_HTML"))
	if v := os.Getenv("PREVIEW_ADDR"); v != "" {
		cfg.PreviewAddr = v
	}
	cfg.RateLimit = cast.ToInt(os.Getenv("RATE_LIMIT_REQUESTS"))
	if v := os.Getenv("BLOCKED_IPS"); v != "" {
		cfg.BlockedIPs = strings.Split(v, ",")
	}
	return cfg, errors.Join(errs...)
}

// Merge applies runtime options such as {"apiUrl": "...", "debug": true}.
// Unknown keys are ignored.
func (c Config) Merge(opts map[string]interface{}) Config {
	for k, v := range opts {
		switch k {
		case "env":
			c.Env = cast.ToString(v)
		case "debug":
			c.Debug = cast.ToBool(v)
		case "apiUrl":
			c.APIURL = cast.ToString(v)
		case "viewsDir":
			c.ViewsDir = cast.ToString(v)
		case "forLoopLimit":
			if n := cast.ToInt(v); n > 0 {
				c.ForLoopLimit = n
			}
		case "sanitizeHtml":
			c.SanitizeHTML = cast.ToBool(v)
		case "previewAddr":
			c.PreviewAddr = cast.ToString(v)
		}
	}
	return c
}
