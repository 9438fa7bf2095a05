package pipeline

import "time"

// heartbeatStale is the age beyond which a task is reported not alive.
const heartbeatStale = time.Second

// Health is a read-only snapshot of one pipeline. Produced by Pipeline.Health
// for the external supervisory loop; it never mutates pipeline state.
type Health struct {
	Name              string
	Running           bool
	FPS               float64
	FramesGenerated   uint64
	FramesTransmitted uint64

	PatternAlive bool
	SPIAlive     bool

	PatternErrors int
	SPIErrors     int

	// Heartbeat ages in seconds at snapshot time.
	PatternHeartbeatAge float64
	SPIHeartbeatAge     float64
}

// Fatal reports whether this snapshot must trigger an ordered application
// shutdown: a dead task or an error counter at the fatal threshold.
func (h Health) Fatal() bool {
	if !h.PatternAlive || !h.SPIAlive {
		return true
	}
	return h.PatternErrors >= maxConsecutiveErrors || h.SPIErrors >= maxConsecutiveErrors
}
