package view

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// LoadTemplate fetches a template and registers it under name. HTTP(S)
// locations are fetched over the network, anything else is read from the
// engine's filesystem (the working directory unless WithFS was given).
func (e *Engine) LoadTemplate(ctx context.Context, name, location string) (string, error) {
	text, err := e.fetch(ctx, location)
	if err != nil {
		e.logger.Error("❌ Error loading template", "template", name, "location", location, "error", err)
		return "", err
	}
	e.templates.Register(name, text)
	return text, nil
}

func (e *Engine) fetch(ctx context.Context, location string) (string, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return "", err
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", fmt.Errorf("fetch %s: HTTP %d", location, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	fsys := e.fsys
	if fsys == nil {
		fsys = os.DirFS(".")
	}
	body, err := fs.ReadFile(fsys, strings.TrimPrefix(path.Clean(location), "/"))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// LoadDir registers every file under root ending in ext. Templates are named
// by their slash path relative to root without the extension, e.g.
// "admin/users" for admin/users.html.
func (e *Engine) LoadDir(fsys fs.FS, root, ext string) (int, error) {
	count := 0
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ext) {
			return nil
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, strings.TrimSuffix(root, "/")+"/")
		}
		e.templates.Register(strings.TrimSuffix(rel, ext), string(body))
		count++
		return nil
	})
	return count, err
}
