package support

import (
	"context"
	"sync/atomic"
	"time"
)

// Token is a cancellation flag polled by the search at every ply. The zero
// value is ready to use.
type Token struct {
	flag atomic.Bool
}

// Cancel sets the flag. It is safe to call from any goroutine, any number of times.
func (t *Token) Cancel() { t.flag.Store(true) }

// Cancelled reports whether Cancel has been called. A nil token is never cancelled.
func (t *Token) Cancelled() bool { return t != nil && t.flag.Load() }

// WatchDeadline cancels tok when the deadline passes or ctx is done,
// whichever comes first. The returned stop func releases the watchdog; it
// does not cancel the token.
func WatchDeadline(ctx context.Context, deadline time.Time, tok *Token) (stop func()) {
	done := make(chan struct{})
	timer := time.NewTimer(time.Until(deadline))
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			tok.Cancel()
		case <-ctx.Done():
			tok.Cancel()
		case <-done:
		}
	}()
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}
}
