package transport

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultBaudRate is the rate the deck firmware runs its serial link at.
const DefaultBaudRate = 460800

// SerialPort is a Transport over a local serial device.
type SerialPort struct {
	port serial.Port
	path string
}

// OpenSerial opens the serial device at path. Closing the port unblocks any
// pending read, which is how the receive loop observes disconnect.
func OpenSerial(path string, baudRate int) (*SerialPort, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("baud", baudRate).Msg("serial port opened")
	return &SerialPort{port: port, path: path}, nil
}

func (s *SerialPort) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialPort) Close() error {
	log.Debug().Str("path", s.path).Msg("serial port closing")
	return s.port.Close()
}

// Path returns the device path the port was opened with.
func (s *SerialPort) Path() string {
	return s.path
}
