package service

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/mediaedge/pkg/common"
)

// Response headers set by the edge function.
const (
	HeaderContentType  = "Content-Type"
	HeaderCacheControl = "Cache-Control"
	HeaderLocation     = "Location"
	HeaderServerTiming = "Server-Timing"
)

const (
	fileCacheControl     = "public, max-age=31536000"
	redirectCacheControl = "private, no-store"
	errorContentType     = "text/plain; charset=utf-8"
)

// Response is a transport-neutral HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Header returns a response header, or "" when unset.
func (r *Response) Header(key string) string {
	return r.Headers[key]
}

// errorResponse is the single exit for failed requests. The cause is logged;
// the caller only gets the status and the generic message.
func errorResponse(ctx context.Context, err error) *Response {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindStorage, Status: consts.StatusInternalServerError, Message: "internal error", Err: err}
	}

	if e.Status >= consts.StatusInternalServerError {
		hlog.CtxErrorf(ctx, "[%s] request failed: %v", common.GetRequestID(ctx), e)
	} else {
		hlog.CtxWarnf(ctx, "[%s] request rejected: %v", common.GetRequestID(ctx), e)
	}

	return &Response{
		StatusCode: e.Status,
		Headers:    map[string]string{HeaderContentType: errorContentType},
		Body:       []byte(e.Message),
	}
}
