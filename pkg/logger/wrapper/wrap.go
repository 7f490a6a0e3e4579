package wrap

import (
	"context"
	"errors"
)

// Error wraps err with the current LogCtx from the context. An error that
// already carries a LogCtx keeps its chain and only has the context refreshed.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	c, _ := ctx.Value(LogCtxKey).(LogCtx)

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		e.logCtx = c
		return err
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: c,
	}
}
