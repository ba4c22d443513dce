package router

import "errors"

var (
	ErrRouteNotFound      = errors.New("route not found")
	ErrControllerNotFound = errors.New("controller not found")
	ErrActionNotFound     = errors.New("action not found")
)
