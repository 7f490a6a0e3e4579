package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action    string
		DriverID  string
		RideID    string
		OfferID   string
		RequestID string
	}

	// logCtxKeyStruct is an unexported type for context keys defined in this package.
	logCtxKeyStruct struct{}
)

// logCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

// WithLogCtx returns a new context with the provided LogCtx
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	// Check if there's an existing LogCtx and merge values
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		if newLc.Action == "" {
			newLc.Action = lc.Action
		}
		if newLc.DriverID == "" {
			newLc.DriverID = lc.DriverID
		}
		if newLc.RideID == "" {
			newLc.RideID = lc.RideID
		}
		if newLc.OfferID == "" {
			newLc.OfferID = lc.OfferID
		}
		if newLc.RequestID == "" {
			newLc.RequestID = lc.RequestID
		}
	}
	return context.WithValue(ctx, LogCtxKey, newLc)
}

func update(ctx context.Context, fn func(lc *LogCtx)) context.Context {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	fn(&lc)
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithAction adds or updates the Action in the LogCtx within the context
func WithAction(ctx context.Context, action string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.Action = action })
}

// WithDriverID adds or updates the DriverID in the LogCtx within the context
func WithDriverID(ctx context.Context, driverID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.DriverID = driverID })
}

// WithRideID adds or updates the RideID in the LogCtx within the context
func WithRideID(ctx context.Context, rideID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RideID = rideID })
}

// WithOfferID adds or updates the OfferID in the LogCtx within the context
func WithOfferID(ctx context.Context, offerID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.OfferID = offerID })
}

// WithRequestID adds or updates the RequestID in the LogCtx within the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RequestID = requestID })
}

// GetRequestID returns the request id stored in ctx, if any.
func GetRequestID(ctx context.Context) string {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	return lc.RequestID
}

// GetAction returns the action stored in ctx, if any.
func GetAction(ctx context.Context) string {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	return lc.Action
}
