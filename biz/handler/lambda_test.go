package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/yi-nology/mediaedge/biz/service"
	"github.com/yi-nology/mediaedge/pkg/storage"
	"github.com/yi-nology/mediaedge/pkg/storage/local"
)

func newLambdaService(t *testing.T) *service.Service {
	t.Helper()
	originals, err := local.New(t.TempDir())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 20)), nil))
	require.NoError(t, originals.PutObject(context.Background(), "users/u1/images/cat.jpg", bytes.NewReader(buf.Bytes()), int64(buf.Len()), storage.ObjectMeta{ContentType: "image/jpeg"}))
	return service.NewService(originals, service.Options{CacheControl: "max-age=60"})
}

func TestLambdaHandler(t *testing.T) {
	lh := NewLambdaHandler(newLambdaService(t))

	req := events.LambdaFunctionURLRequest{RawPath: "/images/u1/cat.jpg/width=10,format=png"}
	req.RequestContext.RequestID = "req-1"
	req.RequestContext.HTTP.Method = "GET"
	req.RequestContext.HTTP.Path = req.RawPath

	resp, err := lh.Handle(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.True(t, resp.IsBase64Encoded)
	require.Equal(t, "image/png", resp.Headers["Content-Type"])
	data, err := base64.StdEncoding.DecodeString(resp.Body)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	req.RequestContext.HTTP.Method = "PUT"
	resp, err = lh.Handle(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)
	require.False(t, resp.IsBase64Encoded)
	require.Equal(t, "Only GET method is supported", resp.Body)
}

func TestLambdaRedirectHasNoBody(t *testing.T) {
	resp := toLambdaResponse(&service.Response{
		StatusCode: 302,
		Headers:    map[string]string{"Location": "/images/u1/a.jpg?width=1"},
	})
	require.Equal(t, 302, resp.StatusCode)
	require.Empty(t, resp.Body)
	require.False(t, resp.IsBase64Encoded)
	require.Equal(t, "/images/u1/a.jpg?width=1", resp.Headers["Location"])
}
