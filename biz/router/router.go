package router

import (
	"net/http"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"

	"github.com/yi-nology/mediaedge/biz/handler"
	"github.com/yi-nology/mediaedge/biz/handler/version"
	"github.com/yi-nology/mediaedge/biz/middleware"
)

// Options selects the optional routes.
type Options struct {
	// AdminToken guards the admin group. Empty disables it.
	AdminToken string
	// MetricsPath serves Metrics when both are set.
	MetricsPath string
	Metrics     http.Handler
}

// RegisterRoutes configures the fixed routes first and hands every other
// path to the edge handler.
func RegisterRoutes(r *server.Hertz, edge *handler.EdgeHandler, admin *handler.AdminHandler, opts Options) {
	r.GET("/ping", handler.Ping)
	r.GET("/_version", version.GetVersion)

	if opts.Metrics != nil && opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, adaptor.HertzHandler(opts.Metrics))
	}

	if admin != nil && opts.AdminToken != "" {
		g := r.Group("/_admin", middleware.RequireAdminToken(opts.AdminToken))
		g.DELETE("/derivatives/*key", admin.PurgeDerivatives)
	}

	r.Any("/*path", edge.Serve)
}
