package bridge

import (
	"time"

	"github.com/google/uuid"
	"github.com/guseggert/procbridge/codec"
)

type callResult struct {
	value map[string]any
	err   error
}

// pendingRequest is one in-flight call. It sits in the bridge's FIFO queue
// until a response frame, its timeout, or a worker exit resolves it; done is
// buffered so resolution never blocks the bridge.
type pendingRequest struct {
	id     string
	op     string
	sentAt time.Time
	timer  *time.Timer
	done   chan callResult
}

func (r *pendingRequest) resolve(v map[string]any) { r.done <- callResult{value: v} }
func (r *pendingRequest) reject(err error)         { r.done <- callResult{err: err} }

// send writes the envelope as one newline-terminated line and enqueues a
// pending request at the tail. The write happens under the bridge mutex so
// concurrent sends can't interleave partial lines. A failed write fails the
// request immediately without enqueueing it.
func (b *Bridge) send(op string, envelope any, timeout time.Duration) (*pendingRequest, error) {
	line, err := b.encode(envelope)
	if err != nil {
		return nil, &WriteError{Op: op, Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || b.worker == nil {
		return nil, ErrProcessUnavailable
	}

	if _, err := b.worker.Stdin.Write(append(line, '\n')); err != nil {
		return nil, &WriteError{Op: op, Err: err}
	}

	req := &pendingRequest{
		id:     uuid.NewString(),
		op:     op,
		sentAt: time.Now(),
		done:   make(chan callResult, 1),
	}
	req.timer = time.AfterFunc(timeout, func() { b.expire(req, timeout) })
	b.queue = append(b.queue, req)

	if b.metrics != nil {
		b.metrics.Requests.Inc()
		b.metrics.InFlight.Inc()
	}
	b.log.Debugw("request sent", "Op", op, "RequestID", req.id, "Timeout", timeout)
	return req, nil
}

// ingest feeds a raw stdout chunk into the frame scanner and dispatches any
// complete frames. Chunks from a superseded worker generation are dropped.
func (b *Bridge) ingest(gen int, chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	for _, frame := range b.frames.append(chunk) {
		b.dispatchFrameLocked(frame)
	}
}

// dispatchFrameLocked matches one frame to the head of the queue. There is no
// wire-level correlation id: the worker answers one line per line in order,
// so the oldest pending request owns the next frame. A frame with nothing
// pending is out-of-band chatter, not an error.
func (b *Bridge) dispatchFrameLocked(frame string) {
	if len(b.queue) == 0 {
		b.log.Debugw("discarding unsolicited frame", "Frame", frame)
		if b.metrics != nil {
			b.metrics.UnsolicitedFrames.Inc()
		}
		return
	}
	req := b.queue[0]
	b.queue = b.queue[1:]
	req.timer.Stop()
	if b.metrics != nil {
		b.metrics.InFlight.Dec()
	}

	value, err := codec.Decode(frame)
	if err != nil {
		if b.metrics != nil {
			b.metrics.DecodeFailures.Inc()
		}
		b.log.Debugw("response frame failed to decode", "Op", req.op, "RequestID", req.id, "Error", err)
		req.reject(&DecodeError{Frame: frame, Err: err})
		return
	}
	b.log.Debugw("request resolved",
		"Op", req.op, "RequestID", req.id, "ElapsedMS", time.Since(req.sentAt).Milliseconds())
	req.resolve(value)
}

// expire removes a timed-out request from wherever it sits in the queue, so a
// hung request can't block correlation forever. If the request was already
// resolved the timer lost the race and this is a no-op.
func (b *Bridge) expire(req *pendingRequest, timeout time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, queued := range b.queue {
		if queued == req {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			if b.metrics != nil {
				b.metrics.Timeouts.Inc()
				b.metrics.InFlight.Dec()
			}
			b.log.Debugw("request timed out", "Op", req.op, "RequestID", req.id, "Timeout", timeout)
			req.reject(&TimeoutError{Op: req.op, Timeout: timeout})
			return
		}
	}
}

func (b *Bridge) failAllLocked(err error) {
	if b.metrics != nil {
		b.metrics.InFlight.Sub(float64(len(b.queue)))
	}
	for _, req := range b.queue {
		req.timer.Stop()
		b.log.Debugw("failing pending request", "Op", req.op, "RequestID", req.id, "Error", err)
		req.reject(err)
	}
	b.queue = nil
}
