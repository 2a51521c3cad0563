package service

import (
	"fmt"

	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Kind classifies request failures.
type Kind string

const (
	KindMethodNotAllowed  Kind = "method_not_allowed"
	KindObjectNotFound    Kind = "object_not_found"
	KindStorage           Kind = "storage"
	KindTransform         Kind = "transform"
	KindSizeLimitExceeded Kind = "size_limit_exceeded"
	KindUnavailable       Kind = "unavailable"
)

// Error is a request failure. Status and Message are what the caller sees;
// Stage and Err stay in the logs.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	if e.Stage != "" {
		msg += " at " + e.Stage
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMethodNotAllowed = &Error{Kind: KindMethodNotAllowed, Status: consts.StatusBadRequest, Message: "Only GET method is supported"}
	ErrImageNotFound    = &Error{Kind: KindObjectNotFound, Status: consts.StatusNotFound, Message: "The requested image does not exist"}
	ErrFileNotFound     = &Error{Kind: KindObjectNotFound, Status: consts.StatusNotFound, Message: "Not found"}
	ErrImageDownload    = &Error{Kind: KindStorage, Status: consts.StatusInternalServerError, Message: "Error downloading original image"}
	ErrFileStorage      = &Error{Kind: KindStorage, Status: consts.StatusInternalServerError, Message: "S3 error"}
	ErrTransform        = &Error{Kind: KindTransform, Status: consts.StatusInternalServerError, Message: "error transforming image"}
	ErrTooBig           = &Error{Kind: KindSizeLimitExceeded, Status: consts.StatusForbidden, Message: "Requested transformed image is too big"}
	ErrPurgeUnavailable = &Error{Kind: KindUnavailable, Status: consts.StatusBadRequest, Message: "derivative ledger and derivative store are required"}
)

// wrap returns a copy of template carrying the underlying cause.
func wrap(template *Error, stage string, err error) *Error {
	e := *template
	e.Stage = stage
	e.Err = err
	return &e
}
