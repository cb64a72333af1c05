package upload

import (
	"context"
	"time"
)

type resultKey struct{}

// WithResult returns a copy of ctx carrying res.
func WithResult(ctx context.Context, res *Result) context.Context {
	return context.WithValue(ctx, resultKey{}, res)
}

// FromContext returns the Result stored by Middleware or Handle.
func FromContext(ctx context.Context) (*Result, bool) {
	if ctx == nil {
		return nil, false
	}
	res, ok := ctx.Value(resultKey{}).(*Result)
	return res, ok && res != nil
}

// storageContext returns the context handed to filters and storage engines.
func (u *Uploader) storageContext(ctx context.Context) context.Context {
	if u.preserveContext {
		return ctx
	}
	return detachedContext{parent: ctx}
}

// detachedContext follows the parent's deadline and cancellation but hides
// its values.
type detachedContext struct {
	parent context.Context
}

func (c detachedContext) Deadline() (time.Time, bool) { return c.parent.Deadline() }
func (c detachedContext) Done() <-chan struct{}       { return c.parent.Done() }
func (c detachedContext) Err() error                  { return c.parent.Err() }
func (c detachedContext) Value(any) any               { return nil }
