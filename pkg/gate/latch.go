// Package gate provides a single-use countdown latch used to hold workers
// until an external party releases them.
package gate

import (
	"context"
	"sync"
)

// Latch is a one-shot barrier. It opens when its count reaches zero or when
// Release is called, and never closes again.
type Latch struct {
	mu    sync.Mutex
	count int
	open  chan struct{}
}

// NewLatch creates a latch that opens after count calls to CountDown.
// A count of zero or less yields an already open latch.
func NewLatch(count int) *Latch {
	l := &Latch{
		count: count,
		open:  make(chan struct{}),
	}
	if count <= 0 {
		l.count = 0
		close(l.open)
	}
	return l
}

// Opened returns a latch that is already open
func Opened() *Latch {
	return NewLatch(0)
}

// CountDown decrements the count, opening the latch when it reaches zero.
// Calls on an open latch are no-ops.
func (l *Latch) CountDown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 {
		close(l.open)
	}
}

// Release opens the latch regardless of the remaining count
func (l *Latch) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return
	}
	l.count = 0
	close(l.open)
}

// Count returns the remaining count
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// IsOpen reports whether the latch has opened
func (l *Latch) IsOpen() bool {
	select {
	case <-l.open:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the latch opens
func (l *Latch) Done() <-chan struct{} {
	return l.open
}

// Wait blocks until the latch opens or ctx is done. An open latch wins over
// a cancelled context.
func (l *Latch) Wait(ctx context.Context) error {
	if l.IsOpen() {
		return nil
	}

	select {
	case <-l.open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
