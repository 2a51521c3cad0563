package middleware

import (
	"context"
	"crypto/subtle"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken rejects requests whose X-Admin-Token header does not
// match token with 401.
func RequireAdminToken(token string) app.HandlerFunc {
	expected := []byte(token)
	return func(ctx context.Context, c *app.RequestContext) {
		got := c.GetHeader(AdminTokenHeader)
		if len(got) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			hlog.CtxWarnf(ctx, "admin request rejected: %s %s", c.Request.Method(), c.Request.URI().Path())
			c.JSON(consts.StatusUnauthorized, map[string]any{
				"code":  consts.StatusUnauthorized,
				"error": "authentication required",
				"msg":   "missing or invalid " + AdminTokenHeader + " header",
			})
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}
