package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/mediaedge/pkg/common"
)

// Logging returns a middleware that logs request and response information.
func Logging() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		c.Next(ctx)

		latency := time.Since(start)
		statusCode := c.Response.StatusCode()
		size := len(c.Response.Body())

		hlog.CtxInfof(ctx, "[%s] %s %s %d %dB %v rid=%s",
			c.ClientIP(),
			c.Request.Method(),
			c.Request.URI().Path(),
			statusCode,
			size,
			latency,
			common.GetRequestID(ctx),
		)
	}
}
