package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cast"
)

const (
	TypeHTML = "html"
	TypeJSON = "json"
)

// Response is the normalized result of calling a route directly.
type Response struct {
	Data   interface{} `json:"data"`
	Status int         `json:"status"`
	Type   string      `json:"type"`
}

// OK reports a 2xx status.
func (r Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// CallRoute invokes a route's action without navigating, API style.
func (r *Router) CallRoute(ctx context.Context, path, method string, data map[string]interface{}) Response {
	if method == "" {
		method = http.MethodGet
	}
	route, params := r.Lookup(path, method)
	if route == nil {
		return Response{Status: http.StatusNotFound, Data: map[string]interface{}{"error": "Not found"}, Type: TypeJSON}
	}
	return r.Dispatch(ctx, route, mergeParams(data, params))
}

// Dispatch runs route's action with data and normalizes its result.
func (r *Router) Dispatch(ctx context.Context, route *Route, data map[string]interface{}) Response {
	action, err := r.resolve(route)
	if err != nil {
		msg := "Action not found"
		if errors.Is(err, ErrControllerNotFound) {
			msg = "Controller not found"
		}
		r.logger.Warn("⚠️  Route call failed", "path", route.Path, "error", err)
		return Response{Status: http.StatusInternalServerError, Data: map[string]interface{}{"error": msg}, Type: TypeJSON}
	}

	result, err := action(ctx, data)
	if err != nil {
		r.logger.Error("❌ Action failed", "controller", route.Controller, "action", route.Action, "error", err)
		return Response{Status: http.StatusInternalServerError, Data: map[string]interface{}{"error": err.Error()}, Type: TypeJSON}
	}
	return Normalize(result)
}

// Normalize turns an action result into a Response. Response values and
// mappings carrying "status" or "data" keep their status; strings are HTML;
// anything else is JSON.
func Normalize(result interface{}) Response {
	switch res := result.(type) {
	case Response:
		return normalizeShaped(res.Data, res.Status)
	case *Response:
		if res != nil {
			return normalizeShaped(res.Data, res.Status)
		}
	case map[string]interface{}:
		status, hasStatus := res["status"]
		data, hasData := res["data"]
		if hasStatus || hasData {
			if !hasData {
				data = res
			}
			code := http.StatusOK
			if hasStatus {
				code = cast.ToInt(status)
			}
			return normalizeShaped(data, code)
		}
	case string:
		return Response{Data: res, Status: http.StatusOK, Type: TypeHTML}
	}
	return Response{Data: result, Status: http.StatusOK, Type: TypeJSON}
}

func normalizeShaped(data interface{}, status int) Response {
	if status == 0 {
		status = http.StatusOK
	}
	typ := TypeJSON
	if _, ok := data.(string); ok {
		typ = TypeHTML
	}
	return Response{Data: data, Status: status, Type: typ}
}

func mergeParams(data map[string]interface{}, params map[string]string) map[string]interface{} {
	merged := make(map[string]interface{}, len(data)+len(params))
	for k, v := range data {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}
