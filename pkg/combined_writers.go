package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter writes every message to all of its writers. A failing
// writer does not stop the others; its error is reported with the rest.
type CombinedWriter struct {
	Writers []io.Writer
}

// NewCombinedWriter skips nil writers, so optional log sinks can be passed as they are.
func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	cw := &CombinedWriter{}
	for _, w := range writers {
		if w != nil {
			cw.Writers = append(cw.Writers, w)
		}
	}
	return cw
}

// Write reports len(p) when at least one writer took the whole message,
// so the log library does not treat a single broken sink as a short write.
func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var (
		err    error
		wholes int
	)
	for _, w := range cw.Writers {
		written, werr := w.Write(p)
		if werr == nil && written < len(p) {
			werr = io.ErrShortWrite
		}
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		wholes++
	}
	if wholes == 0 && len(cw.Writers) > 0 {
		return 0, err
	}
	return len(p), err
}
