package handler

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/yi-nology/mediaedge/biz/service"
	"github.com/yi-nology/mediaedge/pkg/common"
)

// LambdaHandler adapts the service to Lambda function URL invocations.
type LambdaHandler struct {
	service *service.Service
}

func NewLambdaHandler(svc *service.Service) *LambdaHandler {
	return &LambdaHandler{service: svc}
}

// Handle is registered with lambda.Start. Successful bodies are binary and
// travel base64 encoded; error bodies are plain text.
func (h *LambdaHandler) Handle(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = common.ContextWithRequestID(ctx, requestID)

	path := req.RequestContext.HTTP.Path
	if path == "" {
		path = req.RawPath
	}

	resp := h.service.Handle(ctx, req.RequestContext.HTTP.Method, path)
	return toLambdaResponse(resp), nil
}

func toLambdaResponse(resp *service.Response) events.LambdaFunctionURLResponse {
	out := events.LambdaFunctionURLResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
	}
	if len(resp.Body) == 0 {
		return out
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		out.Body = base64.StdEncoding.EncodeToString(resp.Body)
		out.IsBase64Encoded = true
		return out
	}
	out.Body = string(resp.Body)
	return out
}
