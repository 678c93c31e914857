// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/pairs/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the table endpoints, each wrapped in logging and metrics middleware.
func NewRouter(logger *logrus.Logger, ts *TableServer) *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern, route string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.LogMiddleware(logger)(middleware.MetricsMiddleware(route)(h)))
	}

	handle("GET /themes", "/themes", ThemesHandler(ts))
	handle("POST /table/create", "/table/create", CreateTableHandler(ts))
	handle("GET /table/{id}", "/table/state", TableStateHandler(ts))
	handle("POST /table/{id}/restart", "/table/restart", RestartTableHandler(ts))
	handle("GET /table/ws/{id}", "/table/ws", TableWSHandler(logger, ts))

	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
