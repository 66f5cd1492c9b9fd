// Package transport owns the raw byte stream to the device. Port discovery
// and enumeration are the caller's concern; this package only opens a path it
// is handed.
package transport

import "io"

// Transport is a byte stream with disconnect detection: a Read or Write error
// means the device is gone. Reads are owned exclusively by the engine's
// receive loop; writes may come from any goroutine but are serialized above
// this layer.
type Transport interface {
	io.ReadWriteCloser
}
