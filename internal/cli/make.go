package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"larafront/internal/app"
)

const viewStub = `<section class="%s">
  <h1>{{ title }}</h1>
  @if(items)
  <ul>
    @foreach(items as item)<li>{{ item }}</li>@endforeach
  </ul>
  @else
  <p>Nothing here yet.</p>
  @endif
</section>
`

// newMakeViewCommand scaffolds a template in the views directory.
// "Admin/User List" becomes <views>/admin/user-list.html.
func newMakeViewCommand(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "make:view <name>",
		Short: "Create a new view template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(opts.envFile)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %v\n", err)
			}

			segments := viewSegments(args[0])
			if len(segments) == 0 {
				return fmt.Errorf("invalid view name %q", args[0])
			}
			path := filepath.Join(append([]string{cfg.ViewsDir}, segments...)...) + templateExt

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("view already exists: %s (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			content := fmt.Sprintf(viewStub, segments[len(segments)-1])
			if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Created view: %s (%s)\n", path, strings.Join(segments, "/"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing view")
	return cmd
}

func viewSegments(name string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '.' }) {
		if s := slug.Make(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
