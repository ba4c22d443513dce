package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"larafront/pkg/router"
)

func newRenderCommand(opts *options) *cobra.Command {
	var dataArg, out string
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a template file with a data context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := boot(cmd, opts)
			if err != nil {
				return err
			}
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			data, err := loadData(dataArg)
			if err != nil {
				return fmt.Errorf("invalid --data: %w", err)
			}

			html := rt.app.Views.RenderContent(string(text), data)
			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), html)
				return nil
			}
			if err := atomic.WriteFile(out, strings.NewReader(html)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Rendered %s to %s\n", args[0], out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataArg, "data", "d", "", "context as inline JSON or a .json/.yaml/.yml file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result to this file instead of stdout")
	return cmd
}

// loadData accepts inline JSON or a path to a JSON or YAML file.
func loadData(arg string) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return data, nil
	}
	if strings.HasPrefix(arg, "{") {
		return data, json.Unmarshal([]byte(arg), &data)
	}

	raw, err := os.ReadFile(arg)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
	}
	return data, err
}

func newRoutesCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List registered routes in registration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := boot(cmd, opts)
			if err != nil {
				return err
			}
			routes := rt.app.Router.Routes()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(routes)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "METHOD\tURI\tCONTROLLER\tACTION")
			fmt.Fprintln(w, "------\t---\t----------\t------")
			for _, r := range routes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Method, r.Path, r.Controller, r.Action)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print routes as JSON")
	return cmd
}

func newCallCommand(opts *options) *cobra.Command {
	var dataArg string
	cmd := &cobra.Command{
		Use:   "call <method> <path>",
		Short: "Call a route's action directly and print the normalized response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := boot(cmd, opts)
			if err != nil {
				return err
			}
			data, err := loadData(dataArg)
			if err != nil {
				return fmt.Errorf("invalid --data: %w", err)
			}

			resp := rt.app.Router.CallRoute(cmd.Context(), args[1], strings.ToUpper(args[0]), data)
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVarP(&dataArg, "data", "d", "", "request data as inline JSON or a .json/.yaml/.yml file")
	return cmd
}

func printResponse(cmd *cobra.Command, resp router.Response) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "HTTP %d (%s)\n", resp.Status, resp.Type)
	if s, ok := resp.Data.(string); ok {
		fmt.Fprintln(out, s)
	} else {
		body, err := json.MarshalIndent(resp.Data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(body))
	}
	if !resp.OK() {
		return fmt.Errorf("route returned HTTP %d", resp.Status)
	}
	return nil
}

func newNavigateCommand(opts *options) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "navigate <path>",
		Short: "Dispatch a hash route and print the resulting page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := boot(cmd, opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt.app.Router.Navigate(args[0])
			if err := rt.app.Init(ctx); err != nil {
				return err
			}
			defer rt.app.Router.Stop()

			if full {
				fmt.Fprintln(cmd.OutOrStdout(), rt.app.Doc.String())
				return nil
			}
			html, err := rt.app.Doc.InnerHTML("#app")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), html)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print the whole document instead of #app")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "larafront %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
