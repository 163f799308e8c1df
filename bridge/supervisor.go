package bridge

import (
	"bufio"
	"context"
	"io"
	"time"
)

// spawnLocked launches a new worker and wires its streams. The caller must
// hold b.mu. The generation counter guards against goroutines of a dead
// worker touching state that now belongs to its successor.
func (b *Bridge) spawnLocked() error {
	w, err := b.launcher.Launch(context.Background())
	if err != nil {
		return err
	}
	b.worker = w
	b.gen++
	b.frames.reset()

	gen := b.gen
	go b.readStdout(w, gen)
	go b.readStderr(w, gen)
	go b.waitForExit(w, gen)

	b.log.Debugw("worker started", "PID", w.PID, "Gen", gen)
	return nil
}

func (b *Bridge) readStdout(w *Worker, gen int) {
	buf := make([]byte, 8192)
	for {
		n, err := w.Stdout.Read(buf)
		if n > 0 {
			b.ingest(gen, buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				b.log.Debugf("stdout reader got error: %s", err)
			}
			return
		}
	}
}

// readStderr logs the worker's diagnostic stream line by line. Stderr never
// participates in framing or correlation.
func (b *Bridge) readStderr(w *Worker, gen int) {
	scanner := bufio.NewScanner(w.Stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		b.log.Debugw("worker stderr", "Gen", gen, "Line", scanner.Text())
	}
}

func (b *Bridge) waitForExit(w *Worker, gen int) {
	code, err := w.Wait()
	if err != nil {
		b.log.Debugf("unexpected wait error: %s", err)
		code = -1
	}
	b.handleExit(gen, code)
}

// handleExit fails everything in flight and decides whether to restart.
// Restarts are only for unplanned exits: a stopped bridge never respawns, and
// once the budget is spent the bridge is permanently degraded.
func (b *Bridge) handleExit(gen, code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	b.worker = nil
	b.failAllLocked(&ProcessExitedError{ExitCode: code})

	if b.stopped {
		b.log.Debugw("worker exited after close", "ExitCode", code)
		return
	}
	if b.restarts >= b.maxRestarts {
		b.degraded = true
		b.log.Errorw("restart budget exhausted, bridge is permanently degraded",
			"ExitCode", code, "Restarts", b.restarts)
		return
	}
	b.restarts++
	delay := time.Duration(b.restarts) * b.restartDelay
	if b.metrics != nil {
		b.metrics.Restarts.Inc()
	}
	b.log.Infow("worker exited, scheduling restart",
		"ExitCode", code, "Attempt", b.restarts, "Delay", delay)
	time.AfterFunc(delay, b.respawn)
}

func (b *Bridge) respawn() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || b.worker != nil {
		return
	}
	err := b.spawnLocked()
	if err == nil {
		return
	}
	// a failed spawn consumes budget like a crash does
	if b.restarts >= b.maxRestarts {
		b.degraded = true
		b.log.Errorw("respawn failed and restart budget exhausted, bridge is permanently degraded", "Error", err)
		return
	}
	b.restarts++
	delay := time.Duration(b.restarts) * b.restartDelay
	b.log.Errorw("respawning worker failed, retrying", "Error", err, "Attempt", b.restarts, "Delay", delay)
	time.AfterFunc(delay, b.respawn)
}
