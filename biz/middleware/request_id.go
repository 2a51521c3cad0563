package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"

	"github.com/yi-nology/mediaedge/pkg/common"
)

// RequestID reuses the caller's X-Request-Id or generates one, stores it in
// the context and echoes it on the response.
func RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(common.RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Response.Header.Set(common.RequestIDHeader, id)
		c.Next(common.ContextWithRequestID(ctx, id))
	}
}
