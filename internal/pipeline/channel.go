package pipeline

import (
	"sync"
	"time"

	"mushlight/internal/frame"
)

// FrameChannel is the single-slot handoff buffer between the generator and
// transmitter tasks. The two one-token channels are the binary permission
// signals: exactly one of them holds a token outside the brief copy window.
// The mutex covers only the instant of copy-in/copy-out, never a wait or the
// downstream processing, so generation of the next frame overlaps
// transmission of the current one.
type FrameChannel struct {
	mu   sync.Mutex
	slot frame.Frame

	canGenerate chan struct{}
	canTransmit chan struct{}
}

// NewFrameChannel returns a channel in the "empty" state: the generator may
// proceed, the transmitter must wait.
func NewFrameChannel() *FrameChannel {
	c := &FrameChannel{
		canGenerate: make(chan struct{}, 1),
		canTransmit: make(chan struct{}, 1),
	}
	c.canGenerate <- struct{}{}
	return c
}

// TryAcquireGenerate waits up to timeout for permission to publish.
// A false return is not an error; it exists so the caller can recheck its
// running flag.
func (c *FrameChannel) TryAcquireGenerate(timeout time.Duration) bool {
	return acquire(c.canGenerate, timeout)
}

// Publish stores the frame and grants the transmit permission. The caller
// must hold the generate permission. The frame must not be mutated after
// publishing.
func (c *FrameChannel) Publish(f frame.Frame) {
	c.mu.Lock()
	c.slot = f
	c.mu.Unlock()

	select {
	case c.canTransmit <- struct{}{}:
	default:
	}
}

// TryAcquireTransmit waits up to timeout for permission to take a frame.
func (c *FrameChannel) TryAcquireTransmit(timeout time.Duration) bool {
	return acquire(c.canTransmit, timeout)
}

// TakeAndRelease removes the pending frame and immediately grants the
// generate permission, so the producer resumes before transmission
// completes. Returns nil when no frame is pending (a shutdown wake).
func (c *FrameChannel) TakeAndRelease() frame.Frame {
	c.mu.Lock()
	f := c.slot
	c.slot = nil
	c.mu.Unlock()

	select {
	case c.canGenerate <- struct{}{}:
	default:
	}
	return f
}

// Wake asserts both permissions so any task blocked in an acquire returns
// promptly. Used only at shutdown; tasks recheck their running flag after
// every acquire.
func (c *FrameChannel) Wake() {
	select {
	case c.canGenerate <- struct{}{}:
	default:
	}
	select {
	case c.canTransmit <- struct{}{}:
	default:
	}
}

func acquire(permit chan struct{}, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-permit:
		return true
	case <-t.C:
		return false
	}
}
