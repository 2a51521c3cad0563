package middleware

import (
	"context"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/mediaedge/pkg/common"
)

// Recovery returns a middleware that recovers from panics and logs the error.
// The panic value stays in the log; clients get a plain 500.
func Recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()
				hlog.CtxErrorf(ctx, "panic recovered: %v rid=%s\n%s", err, common.GetRequestID(ctx), string(stack))

				c.Response.Header.Set("Cache-Control", "private, no-store")
				c.Data(consts.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Internal server error"))
				c.Abort()
			}
		}()

		c.Next(ctx)
	}
}
