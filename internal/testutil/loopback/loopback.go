// Package loopback provides an in-memory transport pair so engine tests can
// play both ends of the serial link without hardware.
package loopback

import "io"

// Endpoint is one end of the pair. Bytes written to one endpoint are read
// from the other; Close unblocks the peer's pending read, mimicking a serial
// hangup.
type Endpoint struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// Pair returns the two connected endpoints: hand one to the engine and drive
// the other as the fake device.
func Pair() (*Endpoint, *Endpoint) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &Endpoint{r: ar, w: aw}, &Endpoint{r: br, w: bw}
}

func (e *Endpoint) Read(p []byte) (int, error) {
	return e.r.Read(p)
}

func (e *Endpoint) Write(p []byte) (int, error) {
	return e.w.Write(p)
}

func (e *Endpoint) Close() error {
	e.w.CloseWithError(io.ErrClosedPipe)
	e.r.CloseWithError(io.ErrClosedPipe)
	return nil
}
