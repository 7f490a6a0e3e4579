package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx that was current where the error was
// produced, so it can be logged with ride and offer ids far from its origin.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// ErrorCtx merges the LogCtx carried by err over the one in ctx. Fields the
// error does not know about, like the HTTP request id, are kept from ctx.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
