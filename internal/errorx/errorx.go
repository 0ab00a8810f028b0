// Package errorx maps request failures onto HTTP status codes and the
// {"error": "..."} body returned by every endpoint.
package errorx

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"
)

const defaultMsg = "internal server error"

// CodeError is an error that carries its HTTP status.
type CodeError struct {
	Code int
	Msg  string
}

// Body is the JSON error payload. It must not implement error, otherwise
// httpx writes it as plain text.
type Body struct {
	Error string `json:"error"`
}

func (e *CodeError) Error() string {
	return e.Msg
}

func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func BadRequest(msg string) *CodeError {
	return New(http.StatusBadRequest, msg)
}

func Unauthorized(msg string) *CodeError {
	return New(http.StatusUnauthorized, msg)
}

func NotFound(msg string) *CodeError {
	return New(http.StatusNotFound, msg)
}

func Unavailable(msg string) *CodeError {
	return New(http.StatusServiceUnavailable, msg)
}

// Internal hides err from the client behind msg. err is logged by Handler.
func Internal(msg string, err error) error {
	return &internalError{public: New(http.StatusInternalServerError, msg), cause: err}
}

type internalError struct {
	public *CodeError
	cause  error
}

func (e *internalError) Error() string {
	if e.cause == nil {
		return e.public.Msg
	}
	return e.public.Msg + ": " + e.cause.Error()
}

func (e *internalError) Unwrap() error { return e.cause }

// Handler is installed with httpx.SetErrorHandlerCtx.
func Handler(ctx context.Context, err error) (int, any) {
	var internal *internalError
	if errors.As(err, &internal) {
		logx.WithContext(ctx).Errorf("request failed: %v", err)
		return internal.public.Code, &Body{Error: internal.public.Msg}
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code, &Body{Error: ce.Msg}
	}
	logx.WithContext(ctx).Errorf("unhandled request error: %v", err)
	return http.StatusInternalServerError, &Body{Error: defaultMsg}
}
