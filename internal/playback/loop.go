package playback

import (
	"io"
	"sync"
)

// loopReader serves a PCM buffer endlessly, wrapping to the start at the end.
type loopReader struct {
	mu   sync.Mutex
	data []byte
	pos  int
}

func newLoopReader(data []byte) *loopReader {
	return &loopReader{data: data}
}

func (r *loopReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) {
		if r.pos >= len(r.data) {
			r.pos = 0
		}
		c := copy(p[n:], r.data[r.pos:])
		r.pos += c
		n += c
	}
	return n, nil
}
