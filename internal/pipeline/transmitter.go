package pipeline

import (
	"math"
	"time"
)

// transmitLoop is the transmitter task: it waits for a pending frame, takes
// it (immediately releasing the slot so generation resumes), stages the
// pixels into the sink and commits. Transmission runs to completion without
// yielding; a half-transmitted frame would corrupt the physical display.
// Reaching the fatal threshold terminates only this task; the failure
// surfaces through the health snapshot.
func (p *Pipeline) transmitLoop() {
	defer p.wg.Done()
	p.logger.Debug("transmitter task started")

	fpsFrames := 0
	fpsStart := time.Now()

	for p.running.Load() {
		waitStart := time.Now()
		if !p.ch.TryAcquireTransmit(waitTimeout) {
			continue
		}
		p.rec.Record(MetricSPIWait, msSince(waitStart))

		if !p.running.Load() {
			break
		}
		p.spiHeartbeat.Store(p.now().UnixNano())

		f := p.ch.TakeAndRelease()
		if f == nil {
			// Woken without a pending frame.
			continue
		}

		prepStart := time.Now()
		for i, c := range f {
			p.sink.SetPixel(i, c)
		}
		p.rec.Record(MetricBufferPrep, msSince(prepStart))

		txStart := time.Now()
		err := p.sink.Show()
		p.rec.Record(MetricSPITransmit, msSince(txStart))

		if err != nil {
			count := p.spiErrors.Add(1)
			p.logger.Error("transmit error",
				"err", err, "count", count, "max", maxConsecutiveErrors)

			if count >= maxConsecutiveErrors {
				p.logger.Error("transmitter task exiting after repeated transmit errors")
				break
			}
			continue
		}

		p.framesTransmitted.Add(1)
		p.spiErrors.Store(0)

		fpsFrames++
		if elapsed := time.Since(fpsStart); elapsed >= time.Second {
			p.fpsBits.Store(math.Float64bits(float64(fpsFrames) / elapsed.Seconds()))
			fpsFrames = 0
			fpsStart = time.Now()
		}
	}

	p.logger.Debug("transmitter task exited")
}
