package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/mediaedge/biz/dal/model"
	"github.com/yi-nology/mediaedge/pkg/metrics"
	"github.com/yi-nology/mediaedge/pkg/operations"
	"github.com/yi-nology/mediaedge/pkg/storage"
	"github.com/yi-nology/mediaedge/pkg/transform"
	"github.com/yi-nology/mediaedge/pkg/validator"
)

// Options is the read-only policy shared by every request.
type Options struct {
	// MaxImageSize is the largest derivative returned inline. Zero or
	// negative disables the limit.
	MaxImageSize int64
	// CacheControl is written with derivatives and sent on inline image responses.
	CacheControl string
}

// Ledger records derivatives written to the derivative store.
type Ledger interface {
	RecordDerivative(ctx context.Context, d *model.Derivative) error
	ListDerivatives(ctx context.Context, originalKey string) ([]model.Derivative, error)
	ForgetDerivatives(ctx context.Context, derivativeKeys []string) (int64, error)
}

// Service serves originals and on-demand derivatives.
type Service struct {
	originals   storage.Storage
	derivatives storage.Storage
	ledger      Ledger
	metrics     metrics.Metrics
	opts        Options
}

// Option customises a Service.
type Option func(*Service)

// WithDerivativeStore enables caching of transformed images.
func WithDerivativeStore(s storage.Storage) Option {
	return func(svc *Service) { svc.derivatives = s }
}

// WithLedger records every cached derivative.
func WithLedger(l Ledger) Option {
	return func(svc *Service) { svc.ledger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

func NewService(originals storage.Storage, opts Options, options ...Option) *Service {
	svc := &Service{
		originals: originals,
		metrics:   metrics.Noop{},
		opts:      opts,
	}
	for _, o := range options {
		o(svc)
	}
	return svc
}

// Handle serves one request. It never returns nil.
func (s *Service) Handle(ctx context.Context, method, path string) *Response {
	if method != consts.MethodGet {
		resp := errorResponse(ctx, ErrMethodNotAllowed)
		s.metrics.ObserveResponse("none", resp.StatusCode)
		return resp
	}

	route := ParseRoute(path)

	var resp *Response
	switch route.Branch {
	case BranchFiles:
		resp = s.serveFile(ctx, route)
	default:
		resp = s.serveImage(ctx, route)
	}
	s.metrics.ObserveResponse(string(route.Branch), resp.StatusCode)
	return resp
}

func (s *Service) serveFile(ctx context.Context, route Route) *Response {
	if strings.TrimPrefix(route.RawPath, filesPrefix) == "" {
		return errorResponse(ctx, wrap(ErrFileNotFound, "", fmt.Errorf("empty file path")))
	}

	obj, key, err := storage.Resolve(ctx, s.originals, route, layoutsFor(route)...)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return errorResponse(ctx, wrap(ErrFileNotFound, "", err))
		}
		return errorResponse(ctx, wrap(ErrFileStorage, key, err))
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return errorResponse(ctx, wrap(ErrFileStorage, key, err))
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = validator.DefaultContentType
	}
	hlog.CtxDebugf(ctx, "serving file %s (%d bytes)", key, len(data))

	return &Response{
		StatusCode: consts.StatusOK,
		Headers: map[string]string{
			HeaderContentType:  contentType,
			HeaderCacheControl: fileCacheControl,
		},
		Body: data,
	}
}

func (s *Service) serveImage(ctx context.Context, route Route) *Response {
	if route.UserID == "" {
		return errorResponse(ctx, wrap(ErrImageNotFound, "", fmt.Errorf("no user id in %q", route.RawPath)))
	}

	timing := &TimingLog{}
	key := route.StorageKey()

	start := time.Now()
	data, contentType, err := s.download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return errorResponse(ctx, wrap(ErrImageNotFound, StageDownload, err))
		}
		return errorResponse(ctx, wrap(ErrImageDownload, StageDownload, err))
	}
	hlog.CtxInfof(ctx, "fetched original %s (%d bytes, %s)", key, len(data), contentType)
	s.observe(timing, StageDownload, time.Since(start))
	contentType = sniffImageType(data, contentType)

	start = time.Now()
	artifact, err := transform.Transform(data, contentType, operations.Parse(route.Operations))
	if err != nil {
		stage := StageTransform
		var terr *transform.Error
		if errors.As(err, &terr) {
			stage = terr.Stage
		}
		return errorResponse(ctx, wrap(ErrTransform, stage, err))
	}
	s.observe(timing, StageTransform, time.Since(start))
	if artifact.Salvaged {
		hlog.CtxWarnf(ctx, "original %s is damaged, served a partial decode", key)
	}

	return s.deliver(ctx, route, artifact, timing)
}

// sniffImageType fills in a missing stored content type from the bytes.
// Non-image guesses are dropped so the decoder's own format wins.
func sniffImageType(data []byte, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if sniffed := validator.DetectMimeType(data, ""); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}

func (s *Service) download(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.originals.GetObject(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", key, err)
	}
	return data, obj.ContentType, nil
}

// deliver applies the size guard, caches the derivative when a store is
// configured and picks between an inline body, a redirect and a 403.
func (s *Service) deliver(ctx context.Context, route Route, artifact *transform.Artifact, timing *TimingLog) *Response {
	tooBig := s.opts.MaxImageSize > 0 && int64(artifact.Len()) > s.opts.MaxImageSize

	stored := false
	if s.derivatives != nil {
		start := time.Now()
		if err := s.cache(ctx, route, artifact); err != nil {
			hlog.CtxWarnf(ctx, "could not cache derivative %s: %v", route.DerivativeKey(), err)
			s.metrics.IncCacheWriteFailures()
		} else {
			stored = true
			s.observe(timing, StageUpload, time.Since(start))
		}
	}

	if tooBig {
		if !stored {
			return errorResponse(ctx, wrap(ErrTooBig, "",
				fmt.Errorf("%d bytes exceeds %d", artifact.Len(), s.opts.MaxImageSize)))
		}
		return &Response{
			StatusCode: consts.StatusFound,
			Headers: map[string]string{
				HeaderLocation:     redirectLocation(route),
				HeaderCacheControl: redirectCacheControl,
				HeaderServerTiming: timing.String(),
			},
		}
	}

	headers := map[string]string{
		HeaderContentType:  artifact.ContentType,
		HeaderServerTiming: timing.String(),
	}
	if s.opts.CacheControl != "" {
		headers[HeaderCacheControl] = s.opts.CacheControl
	}
	return &Response{StatusCode: consts.StatusOK, Headers: headers, Body: artifact.Data}
}

func (s *Service) cache(ctx context.Context, route Route, artifact *transform.Artifact) error {
	key := route.DerivativeKey()
	meta := storage.ObjectMeta{ContentType: artifact.ContentType, CacheControl: s.opts.CacheControl}
	if err := s.derivatives.PutObject(ctx, key, bytes.NewReader(artifact.Data), int64(artifact.Len()), meta); err != nil {
		return err
	}

	if s.ledger != nil {
		err := s.ledger.RecordDerivative(ctx, &model.Derivative{
			DerivativeKey: key,
			OriginalKey:   route.StorageKey(),
			Operations:    route.Operations,
			ContentType:   artifact.ContentType,
			Size:          int64(artifact.Len()),
		})
		if err != nil {
			hlog.CtxWarnf(ctx, "could not record derivative %s: %v", key, err)
		}
	}
	return nil
}

func (s *Service) observe(timing *TimingLog, stage string, d time.Duration) {
	timing.Add(stage, d)
	s.metrics.ObserveStage(stage, d)
}

// redirectLocation points at the public path of the image with the
// operations turned into a query string.
func redirectLocation(route Route) string {
	return route.PublicPath() + "?" + operations.Parse(route.Operations).Query()
}

// PurgeDerivatives deletes every recorded derivative of originalKey from the
// derivative store and the ledger. It returns how many rows were removed.
func (s *Service) PurgeDerivatives(ctx context.Context, originalKey string) (int, error) {
	if s.ledger == nil || s.derivatives == nil {
		return 0, ErrPurgeUnavailable
	}

	rows, err := s.ledger.ListDerivatives(ctx, originalKey)
	if err != nil {
		return 0, fmt.Errorf("list derivatives: %w", err)
	}

	keys := make([]string, 0, len(rows))
	var deleteErr error
	for _, row := range rows {
		if err := s.derivatives.DeleteObject(ctx, row.DerivativeKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			deleteErr = errors.Join(deleteErr, err)
			continue
		}
		keys = append(keys, row.DerivativeKey)
	}

	n, err := s.ledger.ForgetDerivatives(ctx, keys)
	if err != nil {
		return int(n), fmt.Errorf("forget derivatives: %w", err)
	}
	hlog.CtxInfof(ctx, "purged %d derivatives of %s", n, originalKey)
	if deleteErr != nil {
		return int(n), fmt.Errorf("delete derivatives: %w", deleteErr)
	}
	return int(n), nil
}
