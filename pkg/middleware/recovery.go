package middleware

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	json "github.com/goccy/go-json"
)

// Recoverer turns a panic into a 500. JSON clients get a JSON body; with
// detail on, the panic value and stack are included.
func Recoverer(logger *slog.Logger, detail bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				stack := string(debug.Stack())
				logger.Error("🔥 PANIC RECOVERED", "error", rvr, "path", r.URL.Path, "method", r.Method)

				msg := fmt.Sprintf("%v", rvr)
				if strings.Contains(r.Header.Get("Accept"), "application/json") {
					body := map[string]interface{}{"status": http.StatusInternalServerError, "error": "Internal Server Error"}
					if detail {
						body["detail"] = msg
						body["stack"] = stack
					}
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(body)
					return
				}

				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				if detail {
					fmt.Fprintf(w, "<html><body><h1>Runtime Error</h1><p>%s %s</p><pre>%s</pre><pre>%s</pre></body></html>",
						html.EscapeString(r.Method), html.EscapeString(r.URL.Path), html.EscapeString(msg), html.EscapeString(stack))
					return
				}
				w.Write([]byte("<html><body><h1>500</h1><p>Internal Server Error</p></body></html>"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
