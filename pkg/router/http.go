package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

// Handler exposes the route table over HTTP. Each route answers its own
// method; path parameters, the query string and the request body (JSON or
// form) are merged into the action data.
//
// chi picks the most specific pattern, so overlapping routes may resolve
// differently than Match's first-registered-wins order.
func (r *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	for _, rt := range r.Routes() {
		route := rt
		mux.MethodFunc(route.Method, chiPattern(route.Path), func(w http.ResponseWriter, req *http.Request) {
			data := requestData(req)
			if rctx := chi.RouteContext(req.Context()); rctx != nil {
				for i, key := range rctx.URLParams.Keys {
					data[key] = rctx.URLParams.Values[i]
				}
			}
			WriteResponse(w, r.Dispatch(req.Context(), &route, data))
		})
	}
	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		WriteResponse(w, Response{Status: http.StatusNotFound, Data: map[string]interface{}{"error": "Not found"}, Type: TypeJSON})
	})
	return mux
}

// WriteResponse renders resp as text/html or application/json.
func WriteResponse(w http.ResponseWriter, resp Response) {
	if resp.Type == TypeHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(resp.Status)
		s, _ := resp.Data.(string)
		w.Write([]byte(s))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp.Data)
}

func chiPattern(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func requestData(req *http.Request) map[string]interface{} {
	data := make(map[string]interface{})

	if strings.Contains(req.Header.Get("Content-Type"), "application/json") && req.Body != nil {
		var body map[string]interface{}
		if err := json.NewDecoder(req.Body).Decode(&body); err == nil {
			for k, v := range body {
				data[k] = v
			}
		}
	} else {
		req.ParseMultipartForm(32 << 20)
	}

	for k, v := range req.Form {
		if len(v) == 1 {
			data[k] = v[0]
		} else {
			data[k] = v
		}
	}
	if req.Form == nil {
		for k, v := range req.URL.Query() {
			if len(v) == 1 {
				data[k] = v[0]
			} else {
				data[k] = v
			}
		}
	}
	return data
}
