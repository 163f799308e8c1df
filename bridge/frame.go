package bridge

import (
	"bytes"
	"strings"
)

// frameScanner reassembles an ordered stream of arbitrary byte chunks into
// complete newline-delimited frames. The buffer holds at most one trailing
// partial frame between calls.
type frameScanner struct {
	buf []byte
}

// append concatenates chunk onto the buffer and returns all complete frames
// now available, in arrival order. Whitespace-only frames are dropped.
func (s *frameScanner) append(chunk []byte) []string {
	s.buf = append(s.buf, chunk...)

	var frames []string
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			return frames
		}
		line := string(s.buf[:i])
		s.buf = s.buf[i+1:]
		if strings.TrimSpace(line) == "" {
			continue
		}
		frames = append(frames, line)
	}
}

// reset discards any buffered partial frame. Called when a new worker is
// spawned so that leftovers from a dead worker can't corrupt the new stream.
func (s *frameScanner) reset() {
	s.buf = nil
}
