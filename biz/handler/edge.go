package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/yi-nology/mediaedge/biz/service"
)

// EdgeHandler serves files and image derivatives over hertz.
type EdgeHandler struct {
	service *service.Service
}

func NewEdgeHandler(svc *service.Service) *EdgeHandler {
	return &EdgeHandler{service: svc}
}

// Serve handles every path that is not claimed by another route. The
// method check happens in the service so that non-GET requests get the
// same 400 on every transport.
func (h *EdgeHandler) Serve(ctx context.Context, c *app.RequestContext) {
	resp := h.service.Handle(ctx, string(c.Request.Method()), string(c.Request.URI().Path()))
	writeResponse(c, resp)
}
