// Package telemetry reports server faults to Sentry. Without a DSN every
// function is a no-op.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

type Options struct {
	DSN         string
	Environment string
	Release     string
	// Transport replaces the HTTP transport, for tests.
	Transport sentry.Transport
}

// Init configures the global Sentry client. The returned func flushes
// buffered events and must be called before the process exits.
func Init(opts Options) (func(), error) {
	if opts.DSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		AttachStacktrace: true,
		Transport:        opts.Transport,
	})
	if err != nil {
		return func() {}, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(flushTimeout) }, nil
}

// CaptureError sends err with the given tags.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic value.
func CapturePanic(ctx context.Context, recovered any, tags map[string]string) {
	CaptureError(ctx, fmt.Errorf("panic: %v", recovered), tags)
}
