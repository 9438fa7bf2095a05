package pipeline

import (
	"errors"
	"fmt"
	"time"

	"mushlight/internal/frame"
)

// generateLoop is the generator task: it repeatedly waits for the slot,
// renders a frame from the pattern and publishes it. Single-frame failures
// are recovered locally by publishing a dark frame; reaching the fatal
// threshold terminates only this task. The transmitter keeps draining, so
// the final substitute frame still reaches the hardware, and the failure
// surfaces through the health snapshot.
func (p *Pipeline) generateLoop() {
	defer p.wg.Done()
	p.logger.Debug("generator task started")

	for p.running.Load() {
		waitStart := time.Now()
		if !p.ch.TryAcquireGenerate(waitTimeout) {
			// Idle poll so shutdown is noticed; not contention, not recorded.
			continue
		}
		p.rec.Record(MetricPatternWait, msSince(waitStart))

		if !p.running.Load() {
			break
		}
		p.patternHeartbeat.Store(p.now().UnixNano())

		pat := p.currentPattern()

		calcStart := time.Now()
		f, err := pat.Render()
		calcMs := msSince(calcStart)

		if err == nil {
			if f == nil {
				err = errors.New("pattern returned no frame")
			} else if len(f) != p.ledCount {
				err = fmt.Errorf("pattern returned %d pixels, expected %d", len(f), p.ledCount)
			}
		}

		if err != nil {
			count := p.patternErrors.Add(1)
			p.logger.Error("pattern error",
				"err", err, "count", count, "max", maxConsecutiveErrors)

			// Keep the handoff protocol synchronized and the strip dark
			// rather than stale.
			p.ch.Publish(frame.Black(p.ledCount))

			if count >= maxConsecutiveErrors {
				p.logger.Error("generator task exiting after repeated pattern errors")
				break
			}
			continue
		}

		p.rec.Record(MetricColorCalc, calcMs)
		p.ch.Publish(f)
		p.framesGenerated.Add(1)
		p.patternErrors.Store(0)
	}

	p.logger.Debug("generator task exited")
}
