package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yi-nology/mediaedge/biz/dal/db"
	"github.com/yi-nology/mediaedge/pkg/operations"
	"github.com/yi-nology/mediaedge/pkg/storage"
	"github.com/yi-nology/mediaedge/pkg/storage/local"
	"github.com/yi-nology/mediaedge/pkg/transform"
)

var errUnavailable = errors.New("store unavailable")

// flakyStore wraps a real store and fails selected operations.
type flakyStore struct {
	storage.Storage
	failGet map[string]bool
	failPut bool
	reads   []string
	writes  []string
}

func (f *flakyStore) GetObject(ctx context.Context, key string) (*storage.Object, error) {
	f.reads = append(f.reads, key)
	if f.failGet[key] {
		return nil, errUnavailable
	}
	return f.Storage.GetObject(ctx, key)
}

func (f *flakyStore) PutObject(ctx context.Context, key string, data io.Reader, size int64, meta storage.ObjectMeta) error {
	if f.failPut {
		return errUnavailable
	}
	f.writes = append(f.writes, key)
	return f.Storage.PutObject(ctx, key, data, size, meta)
}

type recordedMetrics struct {
	responses     map[string]int
	stages        []string
	cacheFailures int
}

func (m *recordedMetrics) ObserveResponse(branch string, status int) {
	if m.responses == nil {
		m.responses = map[string]int{}
	}
	m.responses[branch+":"+strconv.Itoa(status)]++
}

func (m *recordedMetrics) ObserveStage(stage string, _ time.Duration) {
	m.stages = append(m.stages, stage)
}

func (m *recordedMetrics) IncCacheWriteFailures() { m.cacheFailures++ }

func newFlakyStore(t *testing.T) *flakyStore {
	t.Helper()
	s, err := local.New(t.TempDir())
	require.NoError(t, err)
	return &flakyStore{Storage: s, failGet: map[string]bool{}}
}

func put(t *testing.T, s storage.Storage, key string, data []byte, contentType string) {
	t.Helper()
	require.NoError(t, s.PutObject(context.Background(), key, bytes.NewReader(data), int64(len(data)),
		storage.ObjectMeta{ContentType: contentType}))
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(w, h)))
	return buf.Bytes()
}

const cacheTTL = "max-age=31622400"

var serverTiming = regexp.MustCompile(`^img-download;dur=\d+,img-transform;dur=\d+(,img-upload;dur=\d+)?$`)

func TestImageTransformInlineAndCached(t *testing.T) {
	ctx := context.Background()
	originals := newFlakyStore(t)
	derivatives := newFlakyStore(t)
	m := &recordedMetrics{}
	put(t, originals, "users/u1/images/photos/a.jpg", encodeJPEG(t, 600, 400), "image/jpeg")

	svc := NewService(originals, Options{MaxImageSize: 6 * 1024 * 1024, CacheControl: cacheTTL},
		WithDerivativeStore(derivatives), WithMetrics(m))

	resp := svc.Handle(ctx, "GET", "/images/u1/photos/a.jpg/width=100,format=webp,quality=50")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "image/webp", resp.Header(HeaderContentType))
	require.Equal(t, cacheTTL, resp.Header(HeaderCacheControl))
	require.Regexp(t, serverTiming, resp.Header(HeaderServerTiming))
	require.Contains(t, resp.Header(HeaderServerTiming), "img-upload;dur=")

	cfg, _, err := image.DecodeConfig(bytes.NewReader(resp.Body))
	require.NoError(t, err)
	require.Equal(t, 100, cfg.Width)

	require.Equal(t, []string{"users/u1/images/photos/a.jpg/width=100,format=webp,quality=50"}, derivatives.writes)
	cached, err := derivatives.GetObject(ctx, derivatives.writes[0])
	require.NoError(t, err)
	defer cached.Body.Close()
	require.Equal(t, "image/webp", cached.ContentType)
	body, _ := io.ReadAll(cached.Body)
	require.Equal(t, resp.Body, body)

	require.Equal(t, 1, m.responses["image:200"])
	require.Equal(t, []string{StageDownload, StageTransform, StageUpload}, m.stages)
}

func TestImageWithoutDerivativeStoreHasNoUploadTiming(t *testing.T) {
	originals := newFlakyStore(t)
	put(t, originals, "users/u1/images/a.png", encodePNG(t, 40, 20), "image/png")

	svc := NewService(originals, Options{CacheControl: cacheTTL})

	resp := svc.Handle(context.Background(), "GET", "/images/u1/a.png/")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header(HeaderContentType))
	require.Regexp(t, serverTiming, resp.Header(HeaderServerTiming))
	require.NotContains(t, resp.Header(HeaderServerTiming), "img-upload")
}

func TestSizeLimitBoundary(t *testing.T) {
	original := encodePNG(t, 64, 64)
	ops := "width=32,format=png"
	expected, err := transform.Transform(original, "image/png", operations.Parse(ops))
	require.NoError(t, err)
	size := int64(expected.Len())

	t.Run("ExactlyAtLimitIsInline", func(t *testing.T) {
		originals := newFlakyStore(t)
		put(t, originals, "users/u1/images/a.png", original, "image/png")
		svc := NewService(originals, Options{MaxImageSize: size}, WithDerivativeStore(newFlakyStore(t)))

		resp := svc.Handle(context.Background(), "GET", "/images/u1/a.png/"+ops)
		require.Equal(t, 200, resp.StatusCode)
		require.Len(t, resp.Body, int(size))
	})

	t.Run("OneByteOverRedirects", func(t *testing.T) {
		originals := newFlakyStore(t)
		derivatives := newFlakyStore(t)
		put(t, originals, "users/u1/images/a.png", original, "image/png")
		svc := NewService(originals, Options{MaxImageSize: size - 1}, WithDerivativeStore(derivatives))

		resp := svc.Handle(context.Background(), "GET", "/images/u1/a.png/"+ops)
		require.Equal(t, 302, resp.StatusCode)
		require.Equal(t, "/images/u1/a.png?width=32&format=png", resp.Header(HeaderLocation))
		require.Equal(t, "private, no-store", resp.Header(HeaderCacheControl))
		require.Empty(t, resp.Body)
		require.Len(t, derivatives.writes, 1)
	})

	t.Run("OneByteOverWithoutStoreIsForbidden", func(t *testing.T) {
		originals := newFlakyStore(t)
		put(t, originals, "users/u1/images/a.png", original, "image/png")
		svc := NewService(originals, Options{MaxImageSize: size - 1})

		resp := svc.Handle(context.Background(), "GET", "/images/u1/a.png/"+ops)
		require.Equal(t, 403, resp.StatusCode)
		require.Equal(t, "Requested transformed image is too big", string(resp.Body))
	})
}

func TestCacheWriteFailureIsNotFatal(t *testing.T) {
	originals := newFlakyStore(t)
	derivatives := newFlakyStore(t)
	derivatives.failPut = true
	m := &recordedMetrics{}
	put(t, originals, "users/u1/images/a.png", encodePNG(t, 40, 40), "image/png")

	svc := NewService(originals, Options{CacheControl: cacheTTL}, WithDerivativeStore(derivatives), WithMetrics(m))

	resp := svc.Handle(context.Background(), "GET", "/images/u1/a.png/width=20")
	require.Equal(t, 200, resp.StatusCode)
	require.NotContains(t, resp.Header(HeaderServerTiming), "img-upload")
	require.Equal(t, 1, m.cacheFailures)
}

func TestTooBigWithFailedWriteIsForbidden(t *testing.T) {
	originals := newFlakyStore(t)
	derivatives := newFlakyStore(t)
	derivatives.failPut = true
	put(t, originals, "users/u1/images/a.png", encodePNG(t, 40, 40), "image/png")

	svc := NewService(originals, Options{MaxImageSize: 1}, WithDerivativeStore(derivatives))

	resp := svc.Handle(context.Background(), "GET", "/images/u1/a.png/width=20")
	require.Equal(t, 403, resp.StatusCode)
	require.Empty(t, resp.Header(HeaderLocation))
}

func TestReorderedOperationsAreCachedSeparately(t *testing.T) {
	originals := newFlakyStore(t)
	derivatives := newFlakyStore(t)
	put(t, originals, "users/u1/images/a.png", encodePNG(t, 200, 100), "image/png")
	svc := NewService(originals, Options{}, WithDerivativeStore(derivatives))

	first := svc.Handle(context.Background(), "GET", "/images/u1/a.png/width=100,height=50")
	second := svc.Handle(context.Background(), "GET", "/images/u1/a.png/height=50,width=100")
	require.Equal(t, 200, first.StatusCode)
	require.Equal(t, 200, second.StatusCode)
	require.Equal(t, first.Body, second.Body)
	require.Equal(t, []string{
		"users/u1/images/a.png/width=100,height=50",
		"users/u1/images/a.png/height=50,width=100",
	}, derivatives.writes)
}

func TestSVGWithoutFormatBecomesPNG(t *testing.T) {
	originals := newFlakyStore(t)
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32"><circle cx="16" cy="16" r="12" fill="#0a0"/></svg>`
	put(t, originals, "users/u1/images/logo.svg", []byte(svg), "image/svg+xml")
	svc := NewService(originals, Options{})

	resp := svc.Handle(context.Background(), "GET", "/images/u1/logo.svg/width=16")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header(HeaderContentType))
}

func TestImageWithoutStoredContentType(t *testing.T) {
	originals := newFlakyStore(t)
	put(t, originals, "users/u1/images/a.png", encodePNG(t, 40, 20), "")
	put(t, originals, "users/u1/images/logo", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 8 8"><rect width="8" height="8" fill="#00f"/></svg>`), "")
	svc := NewService(originals, Options{})

	resp := svc.Handle(context.Background(), "GET", "/images/u1/a.png/width=10")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header(HeaderContentType))

	resp = svc.Handle(context.Background(), "GET", "/images/u1/logo/")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header(HeaderContentType))
}

func TestSniffImageType(t *testing.T) {
	png := encodePNG(t, 4, 4)
	tests := []struct {
		name        string
		data        []byte
		contentType string
		want        string
	}{
		{name: "stored type wins", data: png, contentType: "image/jpeg", want: "image/jpeg"},
		{name: "png sniffed", data: png, want: "image/png"},
		{name: "svg sniffed", data: []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), want: "image/svg+xml"},
		{name: "non-image dropped", data: []byte("plain words"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, sniffImageType(tt.data, tt.contentType))
		})
	}
}

func TestTruncatedOriginalIsServed(t *testing.T) {
	originals := newFlakyStore(t)
	full := encodeJPEG(t, 400, 300)
	put(t, originals, "users/u1/images/cut.jpg", full[:len(full)*3/4], "image/jpeg")
	svc := NewService(originals, Options{})

	resp := svc.Handle(context.Background(), "GET", "/images/u1/cut.jpg/width=100")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "image/jpeg", resp.Header(HeaderContentType))
}

func TestImageErrors(t *testing.T) {
	originals := newFlakyStore(t)
	put(t, originals, "users/u1/images/broken.jpg", []byte("not an image"), "image/jpeg")
	originals.failGet["users/u1/images/down.jpg"] = true
	svc := NewService(originals, Options{})

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"Missing", "/images/u1/missing.jpg/width=10", 404, "The requested image does not exist"},
		{"NoUser", "/width=10", 404, "The requested image does not exist"},
		{"StoreDown", "/images/u1/down.jpg/width=10", 500, "Error downloading original image"},
		{"Undecodable", "/images/u1/broken.jpg/width=10", 500, "error transforming image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := svc.Handle(context.Background(), "GET", tt.path)
			require.Equal(t, tt.status, resp.StatusCode)
			require.Equal(t, tt.body, string(resp.Body))
			require.Empty(t, resp.Header(HeaderServerTiming))
		})
	}
}

func TestNonGetIsRejectedBeforeStorage(t *testing.T) {
	originals := newFlakyStore(t)
	svc := NewService(originals, Options{})

	for _, method := range []string{"POST", "PUT", "DELETE", "HEAD"} {
		resp := svc.Handle(context.Background(), method, "/images/u1/a.jpg/width=10")
		require.Equal(t, 400, resp.StatusCode)
		require.Equal(t, "Only GET method is supported", string(resp.Body))
	}
	require.Empty(t, originals.reads)
}

func TestFilesFallback(t *testing.T) {
	originals := newFlakyStore(t)
	put(t, originals, "abc-123/folder/file.pdf", []byte("%PDF-1.4"), "")
	svc := NewService(originals, Options{})

	resp := svc.Handle(context.Background(), "GET", "/files/abc-123/folder/file.pdf")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "%PDF-1.4", string(resp.Body))
	require.Equal(t, "application/octet-stream", resp.Header(HeaderContentType))
	require.Equal(t, "public, max-age=31536000", resp.Header(HeaderCacheControl))
	require.Equal(t, []string{
		"users/abc-123/files/folder/file.pdf",
		"files/abc-123/folder/file.pdf",
		"abc-123/folder/file.pdf",
	}, originals.reads)
}

func TestFilesPrefersCurrentLayout(t *testing.T) {
	originals := newFlakyStore(t)
	put(t, originals, "users/abc-123/files/doc.txt", []byte("new"), "text/plain")
	put(t, originals, "abc-123/doc.txt", []byte("old"), "text/plain")
	svc := NewService(originals, Options{})

	resp := svc.Handle(context.Background(), "GET", "/files/abc-123/doc.txt")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "new", string(resp.Body))
	require.Equal(t, "text/plain", resp.Header(HeaderContentType))
	require.Len(t, originals.reads, 1)
}

func TestFilesStorageErrorStopsFallback(t *testing.T) {
	originals := newFlakyStore(t)
	put(t, originals, "abc-123/file.pdf", []byte("x"), "application/pdf")
	originals.failGet["files/abc-123/file.pdf"] = true
	svc := NewService(originals, Options{})

	resp := svc.Handle(context.Background(), "GET", "/files/abc-123/file.pdf")
	require.Equal(t, 500, resp.StatusCode)
	require.Equal(t, "S3 error", string(resp.Body))
	require.Equal(t, []string{"users/abc-123/files/file.pdf", "files/abc-123/file.pdf"}, originals.reads)
}

func TestFilesNotFound(t *testing.T) {
	svc := NewService(newFlakyStore(t), Options{})

	for _, path := range []string{"/files/abc-123/nothing.pdf", "/files/nothing.pdf", "/files/"} {
		resp := svc.Handle(context.Background(), "GET", path)
		require.Equal(t, 404, resp.StatusCode, path)
		require.Equal(t, "Not found", string(resp.Body), path)
	}
}

func TestLegacyFilesPath(t *testing.T) {
	originals := newFlakyStore(t)
	put(t, originals, "report.csv", []byte("a,b"), "text/csv")
	svc := NewService(originals, Options{})

	resp := svc.Handle(context.Background(), "GET", "/files/report.csv")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "text/csv", resp.Header(HeaderContentType))
	require.Equal(t, []string{"files/report.csv", "report.csv"}, originals.reads)
}

func TestLedgerAndPurge(t *testing.T) {
	ctx := context.Background()
	gdb := db.SetupTestDB(t)
	defer db.CleanupTestDB(t, gdb)

	originals := newFlakyStore(t)
	derivatives := newFlakyStore(t)
	put(t, originals, "users/u1/images/a.png", encodePNG(t, 40, 40), "image/png")
	logic := NewLogic(gdb)
	svc := NewService(originals, Options{}, WithDerivativeStore(derivatives), WithLedger(logic))

	for _, ops := range []string{"width=10", "width=20,format=webp"} {
		resp := svc.Handle(ctx, "GET", "/images/u1/a.png/"+ops)
		require.Equal(t, 200, resp.StatusCode)
	}

	rows, err := logic.ListDerivatives(ctx, "users/u1/images/a.png")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "image/webp", rows[1].ContentType)

	n, err := svc.PurgeDerivatives(ctx, "users/u1/images/a.png")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for _, key := range derivatives.writes {
		exists, err := derivatives.ObjectExists(ctx, key)
		require.NoError(t, err)
		require.False(t, exists, key)
	}
	rows, err = logic.ListDerivatives(ctx, "users/u1/images/a.png")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestPurgeRequiresLedger(t *testing.T) {
	svc := NewService(newFlakyStore(t), Options{}, WithDerivativeStore(newFlakyStore(t)))

	_, err := svc.PurgeDerivatives(context.Background(), "users/u1/images/a.png")
	require.ErrorIs(t, err, ErrPurgeUnavailable)
}

func TestErrorKindsMatch(t *testing.T) {
	err := wrap(ErrFileStorage, "files/a", errUnavailable)
	require.ErrorIs(t, err, ErrImageDownload) // same kind
	require.ErrorIs(t, err, errUnavailable)
	require.NotErrorIs(t, err, ErrFileNotFound)
	require.True(t, strings.Contains(err.Error(), "files/a"))
}
