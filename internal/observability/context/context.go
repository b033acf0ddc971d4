package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type deviceIDKey struct{}

// WithRequestID stores the inbound request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithDeviceID stores the device whose records the request touches.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return ctx
	}
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}

func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(deviceIDKey{}).(string); ok {
		return v
	}
	return ""
}
