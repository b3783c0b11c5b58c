// Package mount owns the serial connection to the telescope mount and turns
// the protocol package's framed strings into request/response exchanges.
// The link is half duplex: exactly one command may be outstanding at a time,
// and a response is any accumulation of bytes ending in "#".
package mount

import (
	"time"

	"github.com/tarm/serial"
)

// Transport is the raw byte pipe to the mount. Read returns (0, nil) when
// the configured read timeout expires with no data, matching tarm/serial
// semantics; the session layer turns that into a timeout error.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Opener opens a Transport on a named port. It exists so tests and the
// discovery prober can substitute fakes for real serial hardware.
type Opener func(port string, baud int, readTimeout time.Duration) (Transport, error)

// OpenSerial opens a real serial port with the mount's fixed framing:
// 8 data bits, 1 stop bit, no parity, no flow control.
func OpenSerial(port string, baud int, readTimeout time.Duration) (Transport, error) {
	cfg := &serial.Config{
		Name:        port,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: readTimeout,
	}
	return serial.OpenPort(cfg)
}
