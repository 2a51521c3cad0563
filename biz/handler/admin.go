package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/mediaedge/biz/service"
)

// AdminHandler exposes maintenance operations on cached derivatives.
type AdminHandler struct {
	service *service.Service
}

func NewAdminHandler(svc *service.Service) *AdminHandler {
	return &AdminHandler{service: svc}
}

// PurgeResult is returned by PurgeDerivatives.
type PurgeResult struct {
	OriginalKey string `json:"original_key"`
	Purged      int    `json:"purged"`
}

// PurgeDerivatives deletes every cached derivative of the original named by
// the wildcard path parameter.
// @router /_admin/derivatives/*key [DELETE]
func (h *AdminHandler) PurgeDerivatives(ctx context.Context, c *app.RequestContext) {
	originalKey := strings.TrimPrefix(c.Param("key"), "/")
	if originalKey == "" {
		writeBadRequest(c, errors.New("original key is required"))
		return
	}

	n, err := h.service.PurgeDerivatives(ctx, originalKey)
	if err != nil {
		if errors.Is(err, service.ErrPurgeUnavailable) {
			writeBadRequest(c, err)
			return
		}
		hlog.CtxErrorf(ctx, "purge derivatives of %s: %v", originalKey, err)
		writeInternalError(c, err)
		return
	}

	writeOK(c, PurgeResult{OriginalKey: originalKey, Purged: n})
}
