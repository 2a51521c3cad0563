package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/mediaedge/biz/service"
	"github.com/yi-nology/mediaedge/pkg/common"
)

// Ping answers liveness probes.
func Ping(ctx context.Context, c *app.RequestContext) {
	c.String(consts.StatusOK, "pong")
}

// writeResponse copies a service response onto the hertz response.
func writeResponse(c *app.RequestContext, resp *service.Response) {
	for key, value := range resp.Headers {
		if key == service.HeaderContentType {
			continue
		}
		c.Response.Header.Set(key, value)
	}
	if contentType := resp.Header(service.HeaderContentType); contentType != "" {
		c.Data(resp.StatusCode, contentType, resp.Body)
		return
	}
	c.Status(resp.StatusCode)
}

func writeOK(c *app.RequestContext, data interface{}) {
	c.JSON(consts.StatusOK, common.CommonResponse{
		Code: consts.StatusOK,
		Msg:  "success",
		Data: data,
	})
}

func writeBadRequest(c *app.RequestContext, err error) {
	c.JSON(consts.StatusOK, common.CommonResponse{
		Code:  consts.StatusBadRequest,
		Msg:   err.Error(),
		Error: err.Error(),
	})
}

func writeInternalError(c *app.RequestContext, err error) {
	c.JSON(consts.StatusOK, common.CommonResponse{
		Code:  consts.StatusInternalServerError,
		Msg:   "internal error",
		Error: err.Error(),
	})
}
