// File: internal/browser/context.go
package browser

import (
	"context"
	"time"
)

// CombineContext derives a context from primary that is additionally canceled
// when secondary is done. chromedp contexts carry CDP connection values, so
// operational deadlines must be layered on top of the session context rather
// than replacing it.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}

// valueOnlyContext inherits values from its parent but ignores the parent's
// deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (valueOnlyContext) Done() <-chan struct{}       { return nil }
func (valueOnlyContext) Err() error                  { return nil }

// Detach returns a context usable for cleanup work that must outlive the
// parent's cancellation while keeping its CDP values.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
